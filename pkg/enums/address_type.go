package enums

import "fmt"

// AddressType distinguishes the address rows attached to an order.
type AddressType string

const (
	AddressTypeBilling  AddressType = "billing"
	AddressTypeShipping AddressType = "shipping"
)

var validAddressTypes = []AddressType{
	AddressTypeBilling,
	AddressTypeShipping,
}

// IsValid reports whether the value matches the canonical address type enum.
func (t AddressType) IsValid() bool {
	for _, candidate := range validAddressTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAddressType converts the raw string to AddressType.
func ParseAddressType(value string) (AddressType, error) {
	for _, candidate := range validAddressTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid address type %q", value)
}
