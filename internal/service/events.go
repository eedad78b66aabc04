package service

import (
	"go-billing-api/internal/model"
	"go-billing-api/internal/ws"
)

// EventPublisher receives events after the owning transaction commits.
// *ws.Hub implements it.
type EventPublisher interface {
	Publish(event ws.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(ws.Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func stockEvent(action string, p model.Product, message string) ws.Event {
	return ws.Event{
		Type:   "stock_update",
		Action: action,
		Data: map[string]any{
			"product_id":      p.ProductID,
			"name":            p.Name,
			"available_stock": p.AvailableStock,
			"price":           p.Price,
		},
		Message: message,
	}
}
