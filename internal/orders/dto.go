package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
)

// OrderItemDTO exposes one frozen order line.
type OrderItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	ProductName    string    `json:"product_name"`
	SKU            string    `json:"sku"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	IsGift         bool      `json:"is_gift"`
	TotalCents     int       `json:"total_cents"`
}

// OrderAddressDTO exposes one captured address row.
type OrderAddressDTO struct {
	Type         enums.AddressType `json:"type"`
	Name         string            `json:"name"`
	Phone        string            `json:"phone"`
	Email        *string           `json:"email,omitempty"`
	AddressLine1 string            `json:"address_line1"`
	AddressLine2 *string           `json:"address_line2,omitempty"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	PostalCode   string            `json:"postal_code"`
	Country      string            `json:"country"`
}

// StatusHistoryDTO exposes one audit trail entry.
type StatusHistoryDTO struct {
	Status    enums.OrderStatus `json:"status"`
	Actor     enums.Actor       `json:"actor"`
	Comment   *string           `json:"comment,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderDTO is the full order view returned by the detail endpoint.
type OrderDTO struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	UserID           uuid.UUID           `json:"user_id"`
	SubtotalCents    int                 `json:"subtotal_cents"`
	DiscountCents    int                 `json:"discount_cents"`
	GrandTotalCents  int                 `json:"grand_total_cents"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	Status           enums.OrderStatus   `json:"status"`
	GatewayOrderID   *string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string             `json:"gateway_payment_id,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	Items            []OrderItemDTO      `json:"items"`
	Addresses        []OrderAddressDTO   `json:"addresses"`
	StatusHistory    []StatusHistoryDTO  `json:"status_history"`
	CreatedAt        time.Time           `json:"created_at"`
}

// OrderSummaryDTO is the compact view returned by the list endpoint.
type OrderSummaryDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	GrandTotalCents int                 `json:"grand_total_cents"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	Status          enums.OrderStatus   `json:"status"`
	ItemCount       int                 `json:"item_count"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ToDTO maps a loaded order aggregate to its detail view.
func ToDTO(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		UserID:           order.UserID,
		SubtotalCents:    order.SubtotalCents,
		DiscountCents:    order.DiscountCents,
		GrandTotalCents:  order.GrandTotalCents,
		PaymentMethod:    order.PaymentMethod,
		PaymentStatus:    order.PaymentStatus,
		Status:           order.Status,
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		CancelledAt:      order.CancelledAt,
		Items:            make([]OrderItemDTO, 0, len(order.Items)),
		Addresses:        make([]OrderAddressDTO, 0, len(order.Addresses)),
		StatusHistory:    make([]StatusHistoryDTO, 0, len(order.StatusHistory)),
		CreatedAt:        order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			IsGift:         item.IsGift,
			TotalCents:     item.TotalCents,
		})
	}
	for _, addr := range order.Addresses {
		dto.Addresses = append(dto.Addresses, OrderAddressDTO{
			Type:         addr.Type,
			Name:         addr.Name,
			Phone:        addr.Phone,
			Email:        addr.Email,
			AddressLine1: addr.AddressLine1,
			AddressLine2: addr.AddressLine2,
			City:         addr.City,
			State:        addr.State,
			PostalCode:   addr.PostalCode,
			Country:      addr.Country,
		})
	}
	for _, entry := range order.StatusHistory {
		dto.StatusHistory = append(dto.StatusHistory, StatusHistoryDTO{
			Status:    entry.Status,
			Actor:     entry.Actor,
			Comment:   entry.Comment,
			CreatedAt: entry.CreatedAt,
		})
	}
	return dto
}

// ToSummaryDTO maps an order to its list view.
func ToSummaryDTO(order models.Order) OrderSummaryDTO {
	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
	}
	return OrderSummaryDTO{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		GrandTotalCents: order.GrandTotalCents,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		Status:          order.Status,
		ItemCount:       itemCount,
		CreatedAt:       order.CreatedAt,
	}
}
