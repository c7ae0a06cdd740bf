package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/pkg/enums"
)

// OrderAddress stores the contact and postal details captured at checkout.
// Exactly one row per type per order; the shipping row is omitted when the
// storefront uses the same-as-billing policy.
type OrderAddress struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_addresses_order_type"`
	Type         enums.AddressType `gorm:"column:type;not null;uniqueIndex:ux_order_addresses_order_type"`
	Name         string            `gorm:"column:name;not null"`
	Phone        string            `gorm:"column:phone;not null"`
	Email        *string           `gorm:"column:email"`
	AddressLine1 string            `gorm:"column:address_line1;not null"`
	AddressLine2 *string           `gorm:"column:address_line2"`
	City         string            `gorm:"column:city;not null"`
	State        string            `gorm:"column:state;not null"`
	PostalCode   string            `gorm:"column:postal_code;not null"`
	Country      string            `gorm:"column:country;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
}
