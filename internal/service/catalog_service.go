package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-billing-api/internal/model"
	"go-billing-api/internal/repository"
	"go-billing-api/internal/ws"
	"go-billing-api/pkg/logger"
	"go-billing-api/pkg/validator"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	ProductID      *string          `json:"product_id" validate:"required,min=1,max=50"`
	Name           *string          `json:"name" validate:"required,min=1,max=255"`
	AvailableStock *int             `json:"available_stock" validate:"required,gte=0"`
	Price          *decimal.Decimal `json:"price" validate:"required,decimal_gte=0.01"`
	TaxPercentage  *decimal.Decimal `json:"tax_percentage" validate:"required,decimal_gte=0,decimal_lte=100"`
}

// UpdateProductRequest is a partial update; nil fields are left alone.
type UpdateProductRequest struct {
	ProductID      *string          `json:"product_id" validate:"omitempty,min=1,max=50"`
	Name           *string          `json:"name" validate:"omitempty,min=1,max=255"`
	AvailableStock *int             `json:"available_stock" validate:"omitempty,gte=0"`
	Price          *decimal.Decimal `json:"price" validate:"omitempty,decimal_gte=0.01"`
	TaxPercentage  *decimal.Decimal `json:"tax_percentage" validate:"omitempty,decimal_gte=0,decimal_lte=100"`
}

// ProductQuery holds the raw list filters from the query string.
type ProductQuery struct {
	Name      string
	ProductID string
	MinPrice  string
	MaxPrice  string
}

type CatalogService interface {
	ListProducts(ctx context.Context, query ProductQuery) ([]model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, req *UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

type catalogService struct {
	productRepo repository.ProductRepository
	db          *gorm.DB
	events      EventPublisher
}

func NewCatalogService(pRepo repository.ProductRepository, db *gorm.DB, events EventPublisher) CatalogService {
	return &catalogService{
		productRepo: pRepo,
		db:          db,
		events:      publisherOrNoop(events),
	}
}

func validationError(errs []*validator.ErrorResponse) *Error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return invalid("Validation failed: %s", strings.Join(msgs, "; "))
}

// ListProducts reports NotFound when nothing matches.
func (s *catalogService) ListProducts(ctx context.Context, query ProductQuery) ([]model.Product, error) {
	minPrice, maxPrice, ok := parseDecimalRange(query.MinPrice, query.MaxPrice)
	if !ok {
		return nil, invalid("min_price and max_price must be valid numbers.")
	}

	products, err := s.productRepo.FindAll(ctx, repository.ProductFilter{
		Name:      query.Name,
		ProductID: query.ProductID,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, notFound("No products found.")
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	product, err := s.productRepo.FindByProductID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*model.Product, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	_, err := s.productRepo.FindByProductID(ctx, *req.ProductID)
	if err == nil {
		return nil, invalid("Product with product_id %s already exists", *req.ProductID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check product %s: %w", *req.ProductID, err)
	}

	product := &model.Product{
		ProductID:      *req.ProductID,
		Name:           *req.Name,
		AvailableStock: *req.AvailableStock,
		Price:          *req.Price,
		TaxPercentage:  *req.TaxPercentage,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product %s: %w", product.ProductID, err)
	}

	logger.FromContext(ctx).Info("product created", zap.String("product_id", product.ProductID))
	s.events.Publish(stockEvent("product_created", *product, fmt.Sprintf("Product '%s' created", product.Name)))
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID string, req *UpdateProductRequest) (*model.Product, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if req.ProductID != nil && *req.ProductID != productID {
		return nil, invalid("product_id cannot be changed")
	}

	var updated model.Product
	var oldStock int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.productRepo.FindForUpdate(tx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Product not found")
		}
		if err != nil {
			return err
		}
		oldStock = existing.AvailableStock

		if req.Name != nil {
			existing.Name = *req.Name
		}
		if req.AvailableStock != nil {
			existing.AvailableStock = *req.AvailableStock
		}
		if req.Price != nil {
			existing.Price = *req.Price
		}
		if req.TaxPercentage != nil {
			existing.TaxPercentage = *req.TaxPercentage
		}

		if err := tx.Save(existing).Error; err != nil {
			return err
		}
		updated = *existing
		return nil
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, svcErr
		}
		return nil, fmt.Errorf("update product %s: %w", productID, err)
	}

	logger.FromContext(ctx).Info("product updated",
		zap.String("product_id", productID),
		zap.Int("old_stock", oldStock),
		zap.Int("new_stock", updated.AvailableStock),
	)
	s.events.Publish(stockEvent("product_updated", updated, fmt.Sprintf("Product '%s' updated", updated.Name)))
	return &updated, nil
}

// DeleteProduct also removes the purchase history rows of the product.
func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	err := s.productRepo.Delete(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("Product not found")
	}
	if err != nil {
		return fmt.Errorf("delete product %s: %w", productID, err)
	}

	logger.FromContext(ctx).Info("product deleted", zap.String("product_id", productID))
	s.events.Publish(ws.Event{Type: "stock_update", Action: "product_deleted", Data: map[string]any{"product_id": productID}})
	return nil
}
