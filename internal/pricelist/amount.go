package pricelist

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a price or percentage cell and returns zero on any
// failure, so one malformed cell never blocks a whole list.
//
// Spaces, "%" and a leading "R" are removed. A single comma followed by one
// or two digits, with no dot present, is a decimal separator ("1 234,56").
// Any other comma is a thousands separator ("1,234.56", "12,500").
func ParseAmount(raw string) decimal.Decimal {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '%' {
			return -1
		}
		return r
	}, raw)
	if isMissing(s) {
		return decimal.Zero
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "R"), "r")
	s = normalizeSeparators(s)
	if neg {
		s = "-" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func normalizeSeparators(s string) string {
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		i := strings.IndexByte(s, ',')
		if frac := len(s) - i - 1; frac == 1 || frac == 2 {
			return s[:i] + "." + s[i+1:]
		}
	}
	return strings.ReplaceAll(s, ",", "")
}
