package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponUsage records one successful redemption. The unique (coupon_id,
// user_id) index is the source of truth for "already used"; the row is written
// in the same transaction as the order that redeemed it.
type CouponUsage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_coupon_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_coupon_usages_coupon_user"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
