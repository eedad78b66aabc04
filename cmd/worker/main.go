package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-billing-api/internal/metrics"
	"go-billing-api/internal/notification"
	"go-billing-api/pkg/config"
	"go-billing-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const serviceName = "billing-worker"

// The worker drains the Redis invoice queue filled by the API and mails
// each invoice. It serves /metrics on METRICS_PORT.
func main() {
	cfg := config.Load(serviceName)

	log, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: serviceName,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.Queue.Driver != notification.DriverRedis {
		log.Fatal("worker needs QUEUE_DRIVER=redis; the memory queue is drained inside the API process",
			zap.String("queue_driver", cfg.Queue.Driver))
	}
	log.Info("starting", cfg.Fields()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, closeQueue, err := notification.OpenQueue(ctx, cfg.Queue)
	if err != nil {
		log.Fatal("invoice queue unavailable", zap.Error(err))
	}
	defer closeQueue()

	metrics.Register()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())
	go func() {
		if err := app.Listen(":" + cfg.Server.MetricsPort); err != nil {
			log.Warn("metrics listener stopped", zap.Error(err))
		}
	}()

	worker := &notification.Worker{
		Source:      queue,
		Requeue:     queue,
		Mailer:      notification.NewMailer(cfg.SMTP, log),
		Log:         log.Named("notify"),
		Concurrency: cfg.Queue.Workers,
		MaxAttempts: cfg.Queue.MaxAttempts,
	}
	worker.Run(ctx)

	_ = app.Shutdown()
	log.Info("worker exited")
}
