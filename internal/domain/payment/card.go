package payment

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/example/order-engine/internal/domain/errs"
	"golang.org/x/crypto/sha3"
)

// Brand is the detected card network.
type Brand string

const (
	BrandVisa       Brand = "visa"
	BrandMastercard Brand = "mastercard"
	BrandAmex       Brand = "amex"
	BrandUnknown    Brand = "unknown"
)

// DetectBrand derives the card brand from the leading digit of the
// normalized number.
func DetectBrand(number string) Brand {
	if number == "" {
		return BrandUnknown
	}
	switch number[0] {
	case '4':
		return BrandVisa
	case '5', '2':
		return BrandMastercard
	case '3':
		return BrandAmex
	default:
		return BrandUnknown
	}
}

// normalizeCardNumber strips the separators users habitually type.
func normalizeCardNumber(number string) string {
	var b strings.Builder
	b.Grow(len(number))
	for _, r := range number {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// validateCard checks the raw card input and returns the normalized PAN
// and detected brand. The PAN and CVV never leave this package.
func validateCard(in CardInput, now time.Time) (string, Brand, error) {
	number := normalizeCardNumber(in.Number)
	if !allDigits(number) || len(number) < 13 || len(number) > 19 {
		return "", "", errs.Invalid("card_number", "must be 13-19 digits")
	}

	if in.ExpMonth < 1 || in.ExpMonth > 12 {
		return "", "", errs.Invalid("exp_month", "must be between 1 and 12")
	}
	// A card is valid through the last day of its expiry month.
	if in.ExpYear < now.Year() || (in.ExpYear == now.Year() && in.ExpMonth < int(now.Month())) {
		return "", "", errs.Invalid("expiry", "card is expired")
	}

	brand := DetectBrand(number)
	wantCVV := 3
	if brand == BrandAmex {
		wantCVV = 4
	}
	if !allDigits(in.CVV) || len(in.CVV) != wantCVV {
		return "", "", errs.Invalid("cvv", "must be %d digits", wantCVV)
	}

	if strings.TrimSpace(in.HolderName) == "" {
		return "", "", errs.Invalid("holder_name", "is required")
	}

	return number, brand, nil
}

// fingerprint derives a keyed, deterministic digest of the normalized PAN
// so the same physical card can be recognized without storing the number.
func fingerprint(secret []byte, pan string) string {
	h := sha3.New256()
	h.Write(secret)
	h.Write([]byte(pan))
	return hex.EncodeToString(h.Sum(nil))
}
