package notification

import "context"

// ChannelQueue keeps invoices in process memory. Pending invoices are lost
// on restart; use RedisQueue when that matters.
type ChannelQueue struct {
	ch chan Invoice
}

func NewChannelQueue(size int) *ChannelQueue {
	if size < 1 {
		size = 1
	}
	return &ChannelQueue{ch: make(chan Invoice, size)}
}

func (q *ChannelQueue) Dispatch(ctx context.Context, invoice Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- invoice:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *ChannelQueue) Next(ctx context.Context) (Invoice, error) {
	select {
	case <-ctx.Done():
		return Invoice{}, ctx.Err()
	case invoice := <-q.ch:
		return invoice, nil
	}
}

// Len reports how many invoices are waiting.
func (q *ChannelQueue) Len() int {
	return len(q.ch)
}
