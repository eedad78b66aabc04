package repository

import (
	"context"
	"time"

	"go-billing-api/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogStats summarises the product table.
type CatalogStats struct {
	TotalProducts      int64           `json:"total_products"`
	LowStockCount      int64           `json:"low_stock_count"`
	InventoryValuation decimal.Decimal `json:"inventory_valuation"`
}

// SalesStats summarises bills created in a period.
type SalesStats struct {
	BillCount int64           `json:"bill_count"`
	Revenue   decimal.Decimal `json:"revenue"`
	Collected decimal.Decimal `json:"collected"`
}

type ReportRepository interface {
	GetCatalogStats(ctx context.Context, lowStockThreshold int) (*CatalogStats, error)
	GetSalesStats(ctx context.Context, startDate, endDate time.Time) (*SalesStats, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) GetCatalogStats(ctx context.Context, lowStockThreshold int) (*CatalogStats, error) {
	var stats CatalogStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Product{}).Where("available_stock < ?", lowStockThreshold).Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	var valuation decimal.NullDecimal
	if err := db.Model(&model.Product{}).Select("SUM(price * available_stock)").Row().Scan(&valuation); err != nil {
		return nil, err
	}
	stats.InventoryValuation = nullToZero(valuation)

	return &stats, nil
}

func (r *reportRepo) GetSalesStats(ctx context.Context, startDate, endDate time.Time) (*SalesStats, error) {
	var (
		count     int64
		revenue   decimal.NullDecimal
		collected decimal.NullDecimal
	)

	err := r.db.WithContext(ctx).Model(&model.Bill{}).
		Select("COUNT(*), SUM(total_amount), SUM(paid_amount)").
		Where("created_at >= ? AND created_at <= ?", startDate.UTC(), endDate.UTC()).
		Row().Scan(&count, &revenue, &collected)
	if err != nil {
		return nil, err
	}

	return &SalesStats{
		BillCount: count,
		Revenue:   nullToZero(revenue),
		Collected: nullToZero(collected),
	}, nil
}

func nullToZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
