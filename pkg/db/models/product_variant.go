package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant is the purchasable SKU-level configuration of a product. It
// carries the authoritative price and stock count; stock is mutated only by
// the inventory ledger inside order transactions and never drops below zero.
type ProductVariant struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	SKU         string    `gorm:"column:sku;uniqueIndex;not null"`
	Finish      *string   `gorm:"column:finish"`
	LengthMM    *int      `gorm:"column:length_mm"`
	WidthMM     *int      `gorm:"column:width_mm"`
	ThicknessMM *int      `gorm:"column:thickness_mm"`
	PriceCents  int       `gorm:"column:price_cents;not null"`
	Stock       int       `gorm:"column:stock;not null;default:0"`
	Product     *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
