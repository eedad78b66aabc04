package repository

import (
	"context"
	"time"

	"go-billing-api/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BillFilter narrows FindAll. Ranges only apply when both ends are set.
type BillFilter struct {
	ID            *uuid.UUID
	CustomerEmail string
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	StartDate     *time.Time
	EndDate       *time.Time
}

type BillRepository interface {
	Create(tx *gorm.DB, bill *model.Bill) error
	FindAll(ctx context.Context, filter BillFilter) ([]model.Bill, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type billRepo struct {
	db *gorm.DB
}

func NewBillRepo(db *gorm.DB) BillRepository {
	return &billRepo{db}
}

// Create runs on the caller's transaction so the bill commits together with
// its stock decrements.
func (r *billRepo) Create(tx *gorm.DB, bill *model.Bill) error {
	return tx.Create(bill).Error
}

func (r *billRepo) FindAll(ctx context.Context, filter BillFilter) ([]model.Bill, error) {
	query := r.db.WithContext(ctx).Model(&model.Bill{})

	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.CustomerEmail != "" {
		query = query.Where("LOWER(customer_email) = LOWER(?)", filter.CustomerEmail)
	}
	if filter.MinAmount != nil && filter.MaxAmount != nil {
		query = query.Where("total_amount >= ? AND total_amount <= ?", *filter.MinAmount, *filter.MaxAmount)
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		query = query.Where("created_at >= ? AND created_at <= ?", filter.StartDate.UTC(), filter.EndDate.UTC())
	}

	bills := []model.Bill{}
	err := query.Order("created_at DESC").Find(&bills).Error
	return bills, err
}

func (r *billRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	if err := r.db.WithContext(ctx).First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// Delete removes the bill and its purchase rows in one transaction.
func (r *billRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bill_id = ?", id).Delete(&model.PurchaseHistory{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Bill{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
