package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Amounts go over the wire as JSON numbers, e.g. 110.5 instead of "110.5".
	decimal.MarshalJSONWithoutQuotes = true
}

// BaseModel carries the UUID primary key shared by every table.
type BaseModel struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
}

// BeforeCreate generates the UUID unless the caller already set one.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) (err error) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	return
}

// Migrate creates or updates the billing schema. Parents first so the
// foreign keys on purchase_histories resolve.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Product{}, &Bill{}, &PurchaseHistory{})
}
