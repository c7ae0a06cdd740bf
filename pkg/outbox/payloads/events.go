package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/teakline/storefront-backend/pkg/enums"
)

// OrderCreatedEvent signals a successfully placed checkout.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	UserID          uuid.UUID           `json:"user_id"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	GrandTotalCents int                 `json:"grand_total_cents"`
	ItemCount       int                 `json:"item_count"`
}

// OrderPaidEvent is emitted when a gateway payment is verified or an admin
// marks a collect-on-delivery order as paid.
type OrderPaidEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID *string   `json:"gateway_payment_id,omitempty"`
	AmountCents      int       `json:"amount_cents"`
	PaidAt           time.Time `json:"paid_at"`
}

// OrderStatusChangedEvent reports each fulfillment status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      uuid.UUID         `json:"user_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	Actor       enums.Actor       `json:"actor"`
}

// OrderCancelledEvent is emitted whenever an order is cancelled.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uuid.UUID   `json:"user_id"`
	CancelledAt time.Time   `json:"cancelled_at"`
	CancelledBy enums.Actor `json:"cancelled_by"`
	Restocked   bool        `json:"restocked"`
	Refunded    bool        `json:"refunded"`
	Reason      string      `json:"reason,omitempty"`
}

// OrderExpiredEvent describes an unpaid gateway order cancelled by the TTL sweep.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uuid.UUID `json:"user_id"`
	ExpiredAt   time.Time `json:"expired_at"`
	TTLHours    int       `json:"ttl_hours"`
}
