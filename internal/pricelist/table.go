// Package pricelist turns loosely structured price sheets into a canonical
// list of priceable items.
package pricelist

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical column names, assigned by position regardless of source headers.
const (
	ColItem   = "Item"
	ColNett   = "Nett"
	ColGross  = "Gross"
	ColMarkup = "Markup"
)

var standardColumns = []string{ColItem, ColNett, ColGross, ColMarkup}

// noiseMarkers flags section labels and repeated header rows embedded in
// exported sheets. Matching is a case-insensitive substring test.
var noiseMarkers = []string{"item", "quantity", "rand value", "description"}

// Table is a raw or canonical tabular price source. Every cell is text.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Item is one row of the canonical price list.
type Item struct {
	Name   string
	Nett   decimal.Decimal
	Gross  decimal.Decimal
	Markup decimal.Decimal
}

// Normalize renames columns positionally to Item, Nett, Gross, Markup
// (then Col_4, Col_5, ...) and drops rows without a usable item name or
// whose item name looks like a header or section label.
func Normalize(t Table) Table {
	width := len(t.Columns)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}

	out := Table{Columns: canonicalColumns(width), Rows: make([][]string, 0, len(t.Rows))}
	if width == 0 {
		return out
	}

	for _, row := range t.Rows {
		cells := make([]string, width)
		copy(cells, row)
		if isNoise(cells[0]) {
			continue
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func canonicalColumns(width int) []string {
	cols := make([]string, width)
	for i := range cols {
		if i < len(standardColumns) {
			cols[i] = standardColumns[i]
			continue
		}
		cols[i] = fmt.Sprintf("Col_%d", i)
	}
	return cols
}

func isNoise(name string) bool {
	name = strings.TrimSpace(name)
	if isMissing(name) {
		return true
	}
	lower := strings.ToLower(name)
	for _, marker := range noiseMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isMissing(cell string) bool {
	cell = strings.TrimSpace(cell)
	return cell == "" || strings.EqualFold(cell, "nan")
}

// Items converts a canonical table into price list items. The first
// occurrence of a name wins; names are the lookup key for quantities.
func Items(t Table) []Item {
	seen := make(map[string]bool, len(t.Rows))
	items := make([]Item, 0, len(t.Rows))
	for _, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if isMissing(name) || seen[name] {
			continue
		}
		seen[name] = true
		items = append(items, Item{
			Name:   name,
			Nett:   ParseAmount(cell(row, 1)),
			Gross:  ParseAmount(cell(row, 2)),
			Markup: ParseAmount(cell(row, 3)),
		})
	}
	return items
}

// Load normalizes a raw table and returns its items.
func Load(t Table) []Item {
	return Items(Normalize(t))
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
