package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/pkg/enums"
)

// Order is the immutable record produced from a cart at checkout. The row is
// created exactly once by the order assembler and afterwards mutated only by
// the status machine and the payment verifier; cancellation is a status value,
// never a row removal. grand_total_cents == max(subtotal - discount, 0).
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string               `gorm:"column:order_number;uniqueIndex;not null"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	SubtotalCents    int                  `gorm:"column:subtotal_cents;not null"`
	DiscountCents    int                  `gorm:"column:discount_cents;not null;default:0"`
	GrandTotalCents  int                  `gorm:"column:grand_total_cents;not null"`
	CouponID         *uuid.UUID           `gorm:"column:coupon_id;type:uuid"`
	PaymentMethod    enums.PaymentMethod  `gorm:"column:payment_method;not null"`
	PaymentStatus    enums.PaymentStatus  `gorm:"column:payment_status;not null;default:'unpaid'"`
	Status           enums.OrderStatus    `gorm:"column:status;not null;default:'pending'"`
	StockCommitted   bool                 `gorm:"column:stock_committed;not null;default:false"`
	GatewayOrderID   *string              `gorm:"column:gateway_order_id;index"`
	GatewayPaymentID *string              `gorm:"column:gateway_payment_id"`
	CancelledAt      *time.Time           `gorm:"column:cancelled_at"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Addresses        []OrderAddress       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory    []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
