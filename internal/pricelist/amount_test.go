package pricelist

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1 234,56":   "1234.56",
		"1,234.56":   "1234.56",
		"12,500":     "12500",
		"1,234":      "1234",
		"12,5":       "12.5",
		"120.00":     "120",
		"20%":        "20",
		" 56 % ":     "56",
		"R 1,050.25": "1050.25",
		"-15":        "-15",
		"nan":        "0",
		"NaN":        "0",
		"":           "0",
		"abc":        "0",
		"1.2.3":      "0",
	}

	for raw, want := range cases {
		got := ParseAmount(raw)
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseAmount(%q)=%s, want %s", raw, got, want)
		}
	}
}
