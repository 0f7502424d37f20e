// Package estimate models a cost estimate and the form session that builds it.
package estimate

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/pricing"
)

// DateLayout is the calendar date format used in forms and storage.
const DateLayout = "2006-01-02"

// Status is the lifecycle state of a saved estimate.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCancelled
}

// Flattened field names shared by the record stores and the form loader.
const (
	FieldID          = "ID"
	FieldStatus      = "Status"
	FieldClient      = "Client"
	FieldReference   = "Preprod"
	FieldDescription = "Description"
	FieldDate        = "Date"
	FieldFoilHeight  = "Foil_H"
	FieldFoilWidth   = "Foil_W"
	FieldFoilCode    = "Foil_C"
	FieldSubtotal    = "Total_Excl_Vat"
	FieldTax         = "VAT_15"
	FieldGrandTotal  = "Grand_Total"
	FieldCreatedAt   = "Created_At"

	quantitySuffix = "_Qty"
)

// QuantityKey returns the flattened field name holding an item's quantity.
func QuantityKey(item string) string {
	return item + quantitySuffix
}

// ItemFromQuantityKey is the inverse of QuantityKey.
func ItemFromQuantityKey(key string) (string, bool) {
	if !strings.HasSuffix(key, quantitySuffix) || len(key) == len(quantitySuffix) {
		return "", false
	}
	return strings.TrimSuffix(key, quantitySuffix), true
}

// Foil is the foil block specification of a job. Code drives the price of
// foil line items.
type Foil struct {
	Height decimal.Decimal
	Width  decimal.Decimal
	Code   decimal.Decimal
}

// IsSet reports whether any foil field was filled in.
func (f Foil) IsSet() bool {
	return !f.Height.IsZero() || !f.Width.IsZero() || !f.Code.IsZero()
}

// Estimate is a priced quote ready to be saved or rendered.
type Estimate struct {
	Client      string `validate:"required"`
	Reference   string
	Description string
	Date        time.Time `validate:"-"`
	Foil        Foil
	Lines       []pricing.LineEntry `validate:"-"`
	Totals      pricing.Totals      `validate:"-"`
	Status      Status
}

// BilledLines returns the lines with a positive quantity, in order.
func (e Estimate) BilledLines() []pricing.LineEntry {
	out := make([]pricing.LineEntry, 0, len(e.Lines))
	for _, line := range e.Lines {
		if line.Quantity.IsPositive() {
			out = append(out, line)
		}
	}
	return out
}

// Quantities returns the quantity of every line keyed by item name.
func (e Estimate) Quantities() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(e.Lines))
	for _, line := range e.Lines {
		out[line.Item] = line.Quantity
	}
	return out
}
