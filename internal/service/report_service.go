package service

import (
	"context"
	"fmt"
	"time"

	"go-billing-api/internal/repository"
)

const DefaultReportDays = 30

type Summary struct {
	PeriodDays        int                      `json:"period_days"`
	From              time.Time                `json:"from"`
	To                time.Time                `json:"to"`
	LowStockThreshold int                      `json:"low_stock_threshold"`
	Catalog           *repository.CatalogStats `json:"catalog"`
	Sales             *repository.SalesStats   `json:"sales"`
}

type ReportService interface {
	GetSummary(ctx context.Context, days int) (*Summary, error)
}

type reportService struct {
	reportRepo        repository.ReportRepository
	lowStockThreshold int
	now               func() time.Time
}

func NewReportService(rRepo repository.ReportRepository, lowStockThreshold int) ReportService {
	return &reportService{
		reportRepo:        rRepo,
		lowStockThreshold: lowStockThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// GetSummary covers the last days days; non-positive values fall back to
// DefaultReportDays.
func (s *reportService) GetSummary(ctx context.Context, days int) (*Summary, error) {
	if days <= 0 {
		days = DefaultReportDays
	}
	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -days)

	catalog, err := s.reportRepo.GetCatalogStats(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	sales, err := s.reportRepo.GetSalesStats(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("sales stats: %w", err)
	}

	return &Summary{
		PeriodDays:        days,
		From:              startDate,
		To:                endDate,
		LowStockThreshold: s.lowStockThreshold,
		Catalog:           catalog,
		Sales:             sales,
	}, nil
}
