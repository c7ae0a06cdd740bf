package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit trail of status transitions.
// Rows are inserted in the same transaction as the order status change and are
// never updated or deleted.
type OrderStatusHistory struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;not null"`
	Actor     enums.Actor       `gorm:"column:actor;not null"`
	Comment   *string           `gorm:"column:comment"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
