package order

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var numberPattern = regexp.MustCompile(`^ORD-\d{8}-[A-HJ-NP-Z2-9]{6}$`)

func TestNewNumber_Format(t *testing.T) {
	now := time.Date(2025, time.August, 29, 12, 0, 0, 0, time.UTC)

	n := NewNumber(now)
	assert.Regexp(t, numberPattern, n)
	assert.Contains(t, n, "20250829")
}

func TestNewNumber_NoAmbiguousCharacters(t *testing.T) {
	now := time.Now()
	for i := 0; i < 200; i++ {
		n := NewNumber(now)
		suffix := n[len(n)-numberSuffixLen:]
		assert.NotContains(t, suffix, "0")
		assert.NotContains(t, suffix, "1")
		assert.NotContains(t, suffix, "I")
		assert.NotContains(t, suffix, "L")
		assert.NotContains(t, suffix, "O")
	}
}

func TestNewNumber_Varies(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[NewNumber(now)] = true
	}
	// 31^6 possibilities; 100 draws colliding down to a single value
	// would mean the generator is broken
	assert.Greater(t, len(seen), 1)
}
