package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one variant line in a user's mutable cart. Rows are owned by the
// user and are deleted wholesale by the order assembler on successful checkout.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_cart_items_user_variant"`
	VariantID uuid.UUID `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_cart_items_user_variant"`
	Quantity  int       `gorm:"column:quantity;not null"`
	IsGift    bool      `gorm:"column:is_gift;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
