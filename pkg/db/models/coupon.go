package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/pkg/enums"
)

// Coupon is a discount code. Value is percent points for `percent` coupons and
// cents for `fixed` coupons. used_count never exceeds usage_limit when the
// limit is set; the increment is guarded inside the order transaction.
type Coupon struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string           `gorm:"column:code;uniqueIndex;not null"`
	Type             enums.CouponType `gorm:"column:type;not null"`
	Value            int              `gorm:"column:value;not null"`
	MinOrderCents    int              `gorm:"column:min_order_cents;not null;default:0"`
	MaxDiscountCents *int             `gorm:"column:max_discount_cents"`
	Active           bool             `gorm:"column:active;not null;default:true"`
	StartDate        *time.Time       `gorm:"column:start_date"`
	EndDate          *time.Time       `gorm:"column:end_date"`
	UsageLimit       *int             `gorm:"column:usage_limit"`
	UsedCount        int              `gorm:"column:used_count;not null;default:0"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
