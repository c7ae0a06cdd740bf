package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/pkg/enums"
)

// OrderPaymentHistory is the append-only audit trail of payment transitions.
type OrderPaymentHistory struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null"`
	Actor         enums.Actor         `gorm:"column:actor;not null"`
	Comment       *string             `gorm:"column:comment"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
