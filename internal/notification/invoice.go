// Package notification queues invoice emails and delivers them from a
// worker pool, outside the request that created the bill.
package notification

import (
	"context"
	"errors"
)

// InvoiceSubject is the subject line of every invoice email.
const InvoiceSubject = "Invoice Details"

var ErrQueueFull = errors.New("notification queue is full")

// Invoice is one pending invoice email.
type Invoice struct {
	BillID    string `json:"bill_id"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
	Attempts  int    `json:"attempts"`
}

// Dispatcher hands an invoice off for delivery without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, invoice Invoice) error
}

// Source yields queued invoices, blocking until one is available or ctx ends.
type Source interface {
	Next(ctx context.Context) (Invoice, error)
}

// Queue is both ends of an invoice queue.
type Queue interface {
	Dispatcher
	Source
}
