package repository

import (
	"context"

	"go-billing-api/internal/model"

	"gorm.io/gorm"
)

type PurchaseRepository interface {
	CreateBatch(tx *gorm.DB, purchases []model.PurchaseHistory) error
	FindByCustomer(ctx context.Context, email string) ([]model.PurchaseHistory, error)
}

type purchaseRepo struct {
	db *gorm.DB
}

func NewPurchaseRepo(db *gorm.DB) PurchaseRepository {
	return &purchaseRepo{db}
}

func (r *purchaseRepo) CreateBatch(tx *gorm.DB, purchases []model.PurchaseHistory) error {
	if len(purchases) == 0 {
		return nil
	}
	return tx.Create(&purchases).Error
}

// FindByCustomer matches the email exactly, oldest purchase first.
func (r *purchaseRepo) FindByCustomer(ctx context.Context, email string) ([]model.PurchaseHistory, error) {
	var purchases []model.PurchaseHistory
	err := r.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("purchased_at ASC").
		Find(&purchases).Error
	return purchases, err
}
