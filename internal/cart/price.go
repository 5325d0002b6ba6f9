package cart

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	currencySymbol = "$"
	currencySuffix = "MXN"
)

// ErrInvalidPrice is returned when a price label cannot be read as a non-negative amount.
var ErrInvalidPrice = errors.New("invalid price")

// ParsePrice reads a display label of the form "$<number> MXN".
func ParsePrice(label string) (float64, error) {
	s := strings.TrimSpace(label)
	s = strings.TrimPrefix(s, currencySymbol)
	s = strings.TrimSpace(strings.TrimSuffix(s, currencySuffix))
	s = strings.ReplaceAll(s, ",", "")

	// Plain decimal only: ParseFloat would also take NaN, Inf and hex floats.
	if !isDecimal(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, label)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, label)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidPrice, label)
	}
	return v, nil
}

func isDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
