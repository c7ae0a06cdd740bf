package checkout

import (
	"crypto/rand"
	"fmt"
	"time"
)

// numberAlphabet omits look-alike characters so order numbers survive being
// read over the phone.
const numberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const numberSuffixLen = 6

// newOrderNumber produces a human-readable order reference such as
// ORD-20250812-K4M7QX. Uniqueness is enforced by the database; callers retry
// on collision.
func newOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	suffix := make([]byte, numberSuffixLen)
	for i, b := range buf {
		suffix[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix), nil
}
