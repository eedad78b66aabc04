package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-billing-api/internal/handler"
	"go-billing-api/internal/metrics"
	"go-billing-api/internal/model"
	"go-billing-api/internal/notification"
	"go-billing-api/internal/repository"
	"go-billing-api/internal/service"
	"go-billing-api/internal/ws"
	"go-billing-api/pkg/config"
	"go-billing-api/pkg/database"
	"go-billing-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

const serviceName = "billing-api"

func main() {
	// 1. Load config and logger
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
	log.Info("starting", cfg.Fields()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.DB, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := model.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	// 3. Invoice queue. The memory driver is drained in this process; the
	// redis driver is drained by cmd/worker.
	queue, closeQueue, err := notification.OpenQueue(ctx, cfg.Queue)
	if err != nil {
		log.Fatal("invoice queue unavailable", zap.Error(err))
	}
	defer closeQueue()

	workerDone := make(chan struct{})
	if cfg.Queue.Driver == notification.DriverRedis {
		close(workerDone)
	} else {
		worker := &notification.Worker{
			Source:      queue,
			Requeue:     queue,
			Mailer:      notification.NewMailer(cfg.SMTP, log),
			Log:         log.Named("notify"),
			Concurrency: cfg.Queue.Workers,
			MaxAttempts: cfg.Queue.MaxAttempts,
		}
		go func() {
			worker.Run(ctx)
			close(workerDone)
		}()
	}

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(log.Named("ws"))
	go wsHub.Run(ctx)

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	billRepo := repository.NewBillRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	reportRepo := repository.NewReportRepo(db)

	catalogService := service.NewCatalogService(productRepo, db, wsHub)
	billingService := service.NewBillingService(productRepo, billRepo, purchaseRepo, db, queue, wsHub)
	purchaseService := service.NewPurchaseService(purchaseRepo)
	reportService := service.NewReportService(reportRepo, cfg.Report.LowStockThreshold)

	handlers := handler.Handlers{
		Product:  handler.NewProductHandler(catalogService),
		Billing:  handler.NewBillingHandler(billingService),
		Purchase: handler.NewPurchaseHandler(purchaseService),
		Report:   handler.NewReportHandler(reportService),
		Health:   handler.NewHealthHandler(db),
	}

	// 6. Setup Fiber
	metrics.Register()
	app := fiber.New(fiber.Config{
		AppName:      "Billing API v1.0",
		ErrorHandler: handler.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestid.New())
	app.Use(logger.Middleware(log))
	app.Use(metrics.Middleware(serviceName))

	// 7. Routes
	handler.RegisterRoutes(app, handlers, wsHub)

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	<-workerDone

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("server exited")
}
