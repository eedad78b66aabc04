package notification

import (
	"context"
	"sync"
	"time"

	"go-billing-api/internal/metrics"

	"go.uber.org/zap"
)

// Worker pulls invoices from a Source and mails them. Failed deliveries go
// back on the queue until MaxAttempts is reached.
type Worker struct {
	Source      Source
	Requeue     Dispatcher
	Mailer      Mailer
	Log         *zap.Logger
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Run blocks until ctx is cancelled and all goroutines have returned.
func (w *Worker) Run(ctx context.Context) {
	n := w.Concurrency
	if n < 1 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, w.Log.With(zap.Int("worker", id)))
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, log *zap.Logger) {
	for {
		invoice, err := w.Source.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error("failed to read invoice queue", zap.Error(err))
			if !sleep(ctx, w.retryDelay()) {
				return
			}
			continue
		}
		w.deliver(ctx, log, invoice)
	}
}

func (w *Worker) deliver(ctx context.Context, log *zap.Logger, invoice Invoice) {
	log = log.With(zap.String("bill_id", invoice.BillID), zap.String("recipient", invoice.Recipient))

	err := w.Mailer.Send(ctx, invoice.Recipient, InvoiceSubject, invoice.Body)
	if err == nil {
		metrics.ObserveNotification("sent")
		log.Info("invoice email sent")
		return
	}

	invoice.Attempts++
	if invoice.Attempts >= w.maxAttempts() || w.Requeue == nil {
		metrics.ObserveNotification("failed")
		log.Error("invoice email failed, giving up", zap.Int("attempts", invoice.Attempts), zap.Error(err))
		return
	}

	metrics.ObserveNotification("retried")
	log.Warn("invoice email failed, retrying", zap.Int("attempts", invoice.Attempts), zap.Error(err))
	if !sleep(ctx, w.retryDelay()) {
		return
	}
	if err := w.Requeue.Dispatch(ctx, invoice); err != nil {
		metrics.ObserveNotification("failed")
		log.Error("invoice could not be requeued", zap.Error(err))
	}
}

func (w *Worker) maxAttempts() int {
	if w.MaxAttempts < 1 {
		return 1
	}
	return w.MaxAttempts
}

func (w *Worker) retryDelay() time.Duration {
	if w.RetryDelay <= 0 {
		return time.Second
	}
	return w.RetryDelay
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
