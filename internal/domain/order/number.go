package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

// numberAlphabet excludes ambiguous characters (0/O, 1/I/L) so order
// numbers survive being read over the phone.
const numberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const numberSuffixLen = 6

// NewNumber generates a human-readable order number, e.g.
// ORD-20250829-K7KQ2M. Uniqueness is enforced by the store; callers
// retry generation on collision.
func NewNumber(now time.Time) string {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), buf)
}
