package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill is immutable once created; only deletion touches it afterwards.
type Bill struct {
	BaseModel
	CustomerEmail string          `gorm:"type:varchar(254);not null;index" json:"customer_email"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"paid_amount"`
	BalanceAmount decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"balance_amount"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// PurchaseHistory is one line item of a bill.
type PurchaseHistory struct {
	BaseModel
	CustomerEmail string    `gorm:"type:varchar(254);not null;index" json:"customer_email"`
	ProductID     string    `gorm:"type:varchar(50);not null;index" json:"product_id"`
	Product       *Product  `gorm:"foreignKey:ProductID;references:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	BillID        uuid.UUID `gorm:"type:uuid;not null;index" json:"bill_id"`
	Bill          *Bill     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PurchasedAt   time.Time `gorm:"autoCreateTime" json:"purchased_at"`
}
