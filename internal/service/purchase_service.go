package service

import (
	"context"
	"fmt"

	"go-billing-api/internal/model"
	"go-billing-api/internal/repository"
)

type PurchaseService interface {
	History(ctx context.Context, email string) ([]model.PurchaseHistory, error)
}

type purchaseService struct {
	purchaseRepo repository.PurchaseRepository
}

func NewPurchaseService(phRepo repository.PurchaseRepository) PurchaseService {
	return &purchaseService{purchaseRepo: phRepo}
}

// History returns every purchase row for the exact email, oldest first.
func (s *purchaseService) History(ctx context.Context, email string) ([]model.PurchaseHistory, error) {
	if !ValidEmail(email) {
		return nil, invalid("Invalid email format")
	}
	rows, err := s.purchaseRepo.FindByCustomer(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("purchase history: %w", err)
	}
	if len(rows) == 0 {
		return nil, notFound("No purchase history found")
	}
	return rows, nil
}
