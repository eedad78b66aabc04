package repository

import (
	"context"
	"strings"

	"go-billing-api/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows FindAll. Zero values impose no constraint; the price
// range only applies when both bounds are set.
type ProductFilter struct {
	Name      string
	ProductID string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	FindByProductID(ctx context.Context, productID string) (*model.Product, error)
	FindForUpdate(tx *gorm.DB, productID string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	DecrementStock(tx *gorm.DB, productID string, quantity int) (bool, error)
	Delete(ctx context.Context, productID string) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	query := r.db.WithContext(ctx).Model(&model.Product{})

	if filter.Name != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(filter.Name))+"%")
	}
	if filter.ProductID != "" {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil {
		query = query.Where("price >= ? AND price <= ?", *filter.MinPrice, *filter.MaxPrice)
	}

	var products []model.Product
	err := query.Order("product_id ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByProductID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindForUpdate reads a product inside tx and, on Postgres, holds its row
// lock until tx ends. SQLite serialises writers on its own.
func (r *productRepo) FindForUpdate(tx *gorm.DB, productID string) (*model.Product, error) {
	query := tx
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var product model.Product
	if err := query.First(&product, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// DecrementStock takes quantity off the product only if enough stock is
// left. It reports false when the guard rejected the update.
func (r *productRepo) DecrementStock(tx *gorm.DB, productID string, quantity int) (bool, error) {
	result := tx.Model(&model.Product{}).
		Where("product_id = ? AND available_stock >= ?", productID, quantity).
		Update("available_stock", gorm.Expr("available_stock - ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete removes the product together with every purchase row that
// references it.
func (r *productRepo) Delete(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.PurchaseHistory{}).Error; err != nil {
			return err
		}
		result := tx.Where("product_id = ?", productID).Delete(&model.Product{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
