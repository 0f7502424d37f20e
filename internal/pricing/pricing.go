package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/pricelist"
)

// FoilMarkupLabel is shown as the markup of a foil line priced from its code.
const FoilMarkupLabel = "56%"

var (
	// TaxRate is the flat VAT rate applied to every estimate.
	TaxRate = decimal.RequireFromString("0.15")

	// FoilMultiplier converts a foil block code into its unit price.
	FoilMultiplier = decimal.RequireFromString("1.56")

	hundred = decimal.NewFromInt(100)
)

// Input holds everything needed to price one estimate.
type Input struct {
	Items      []pricelist.Item
	FoilCode   decimal.Decimal
	Quantities map[string]decimal.Decimal
	Overrides  map[string]decimal.Decimal
}

// LineEntry is one price list item as entered into an estimate.
type LineEntry struct {
	Item         string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	DefaultPrice decimal.Decimal
	Overridden   bool

	// Nett and MarkupLabel are the cost basis shown in the admin view.
	Nett        decimal.Decimal
	MarkupLabel string
}

// LineTotal is always derived from the current quantity and unit price.
func (l LineEntry) LineTotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Totals contains the roll-up values of an estimate.
type Totals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal
}

// Result groups priced lines and their totals.
type Result struct {
	Lines  []LineEntry
	Totals Totals
}

// IsFoil reports whether an item is priced from the foil block code.
func IsFoil(name string) bool {
	return strings.Contains(strings.ToLower(name), "foil")
}

// UnitPrice computes the default unit price of an item.
func UnitPrice(item pricelist.Item, foilCode decimal.Decimal) decimal.Decimal {
	if IsFoil(item.Name) && foilCode.IsPositive() {
		return foilCode.Mul(FoilMultiplier)
	}
	return item.Nett.Mul(decimal.NewFromInt(1).Add(item.Markup.Div(hundred)))
}

// AdminBasis returns the nett cost and markup label behind the default price.
func AdminBasis(item pricelist.Item, foilCode decimal.Decimal) (decimal.Decimal, string) {
	if IsFoil(item.Name) && foilCode.IsPositive() {
		return foilCode, FoilMarkupLabel
	}
	return item.Nett, item.Markup.String() + "%"
}

// Calculate prices every item in list order. A user override always wins
// over the computed default; negative inputs are clamped to zero.
func Calculate(in Input) Result {
	lines := make([]LineEntry, 0, len(in.Items))
	for _, item := range in.Items {
		def := UnitPrice(item, in.FoilCode)
		nett, markup := AdminBasis(item, in.FoilCode)

		line := LineEntry{
			Item:         item.Name,
			Quantity:     nonNegative(in.Quantities[item.Name]),
			UnitPrice:    def,
			DefaultPrice: def,
			Nett:         nett,
			MarkupLabel:  markup,
		}
		if override, ok := in.Overrides[item.Name]; ok {
			line.UnitPrice = nonNegative(override)
			line.Overridden = true
		}
		lines = append(lines, line)
	}

	return Result{Lines: lines, Totals: Aggregate(lines)}
}

// Aggregate sums line totals and applies the flat tax rate. No rounding is
// applied; rounding is a presentation concern.
func Aggregate(lines []LineEntry) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	tax := subtotal.Mul(TaxRate)

	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal.Add(tax),
	}
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
