package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	ProductID      string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"product_id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	AvailableStock int             `gorm:"not null;default:0" json:"available_stock"`
	Price          decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"price"`
	TaxPercentage  decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"tax_percentage"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LineTotal returns price*quantity and the tax owed on it.
func (p *Product) LineTotal(quantity int) (subtotal, tax decimal.Decimal) {
	subtotal = p.Price.Mul(decimal.NewFromInt(int64(quantity)))
	tax = subtotal.Mul(p.TaxPercentage).Div(decimal.NewFromInt(100))
	return subtotal, tax
}
