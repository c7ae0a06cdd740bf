package enums

import "fmt"

// CouponType describes how a coupon's value is interpreted.
type CouponType string

const (
	// CouponTypePercent discounts value% of the subtotal, clamped to
	// max_discount_cents when set.
	CouponTypePercent CouponType = "percent"
	// CouponTypeFixed discounts value cents verbatim.
	CouponTypeFixed CouponType = "fixed"
)

var validCouponTypes = []CouponType{
	CouponTypePercent,
	CouponTypeFixed,
}

// IsValid reports whether the value matches the canonical coupon type enum.
func (t CouponType) IsValid() bool {
	for _, candidate := range validCouponTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCouponType converts the raw string to CouponType.
func ParseCouponType(value string) (CouponType, error) {
	for _, candidate := range validCouponTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon type %q", value)
}
