package checkout

import (
	"strings"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
)

// AddressInput carries the contact details captured at checkout. Email and
// the second address line are the only optional fields.
type AddressInput struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Email        *string `json:"email,omitempty"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postal_code"`
	Country      string  `json:"country"`
}

// IncompleteAddressDetails names the missing fields so the storefront can
// highlight them.
type IncompleteAddressDetails struct {
	Type          enums.AddressType `json:"type"`
	MissingFields []string          `json:"missing_fields"`
}

// validateAddress rejects an address before any database write happens.
func validateAddress(input AddressInput, addrType enums.AddressType) error {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"name", input.Name},
		{"phone", input.Phone},
		{"address_line1", input.AddressLine1},
		{"city", input.City},
		{"state", input.State},
		{"postal_code", input.PostalCode},
		{"country", input.Country},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s address is incomplete", addrType).
			WithDetails(IncompleteAddressDetails{Type: addrType, MissingFields: missing})
	}
	return nil
}

func buildOrderAddress(orderID uuid.UUID, input AddressInput, addrType enums.AddressType) models.OrderAddress {
	return models.OrderAddress{
		ID:           uuid.New(),
		OrderID:      orderID,
		Type:         addrType,
		Name:         strings.TrimSpace(input.Name),
		Phone:        strings.TrimSpace(input.Phone),
		Email:        input.Email,
		AddressLine1: strings.TrimSpace(input.AddressLine1),
		AddressLine2: input.AddressLine2,
		City:         strings.TrimSpace(input.City),
		State:        strings.TrimSpace(input.State),
		PostalCode:   strings.TrimSpace(input.PostalCode),
		Country:      strings.TrimSpace(input.Country),
	}
}
