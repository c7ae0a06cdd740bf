package enums

import "fmt"

// PaymentMethod identifies how an order is paid for.
type PaymentMethod string

const (
	// PaymentMethodCOD is cash on delivery; stock is committed at checkout.
	PaymentMethodCOD PaymentMethod = "cod"
	// PaymentMethodGateway is an online gateway payment; stock is committed
	// only once the gateway callback is verified.
	PaymentMethodGateway PaymentMethod = "gateway"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodGateway,
}

// IsValid reports whether the value matches the canonical payment method enum.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsGatewayMediated reports whether payment settles through the online gateway.
func (m PaymentMethod) IsGatewayMediated() bool {
	return m == PaymentMethodGateway
}

// ParsePaymentMethod converts the raw string to PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
