// Package records persists finalized estimates.
package records

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/estimate"
)

// ErrNotFound is returned for an unknown record ID.
var ErrNotFound = errors.New("estimate record not found")

// Record is one saved estimate. ID is assigned at append time and never
// reused, so it stays valid across deletes.
type Record struct {
	ID          int64
	Status      estimate.Status
	Client      string
	Reference   string
	Description string
	Date        string
	FoilHeight  decimal.Decimal
	FoilWidth   decimal.Decimal
	FoilCode    decimal.Decimal
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	GrandTotal  decimal.Decimal
	Quantities  map[string]decimal.Decimal
	CreatedAt   time.Time
}

// FieldMap is a flattened key/value view of a record.
type FieldMap map[string]string

// Store is the contract shared by every record backend.
type Store interface {
	Append(ctx context.Context, r Record) (int64, error)
	SetStatus(ctx context.Context, id int64, status estimate.Status) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, term string) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Load(ctx context.Context, id int64) (FieldMap, error)
}

// FromEstimate builds an active record from a finalized estimate.
func FromEstimate(e estimate.Estimate) Record {
	return Record{
		Status:      estimate.StatusActive,
		Client:      e.Client,
		Reference:   e.Reference,
		Description: e.Description,
		Date:        e.Date.Format(estimate.DateLayout),
		FoilHeight:  e.Foil.Height,
		FoilWidth:   e.Foil.Width,
		FoilCode:    e.Foil.Code,
		Subtotal:    e.Totals.Subtotal,
		Tax:         e.Totals.Tax,
		GrandTotal:  e.Totals.GrandTotal,
		Quantities:  e.Quantities(),
	}
}

// Fields flattens the record, including one "<Item>_Qty" key per item.
func (r Record) Fields() FieldMap {
	fields := FieldMap{
		estimate.FieldID:          strconv.FormatInt(r.ID, 10),
		estimate.FieldStatus:      string(r.Status),
		estimate.FieldClient:      r.Client,
		estimate.FieldReference:   r.Reference,
		estimate.FieldDescription: r.Description,
		estimate.FieldDate:        r.Date,
		estimate.FieldFoilHeight:  r.FoilHeight.String(),
		estimate.FieldFoilWidth:   r.FoilWidth.String(),
		estimate.FieldFoilCode:    r.FoilCode.String(),
		estimate.FieldSubtotal:    r.Subtotal.String(),
		estimate.FieldTax:         r.Tax.String(),
		estimate.FieldGrandTotal:  r.GrandTotal.String(),
		estimate.FieldCreatedAt:   formatTime(r.CreatedAt),
	}
	for item, qty := range r.Quantities {
		fields[estimate.QuantityKey(item)] = qty.String()
	}
	return fields
}

// Matches reports whether term is a case-insensitive substring of the
// client, reference or description. An empty term matches everything.
func (r Record) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{r.Client, r.Reference, r.Description} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// ItemNames returns the sorted union of item names quantified by records.
func ItemNames(recs []Record) []string {
	seen := make(map[string]bool)
	for _, r := range recs {
		for item := range r.Quantities {
			seen[item] = true
		}
	}
	names := make([]string, 0, len(seen))
	for item := range seen {
		names = append(names, item)
	}
	sort.Strings(names)
	return names
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func cloneRecord(r Record) Record {
	q := make(map[string]decimal.Decimal, len(r.Quantities))
	for k, v := range r.Quantities {
		q[k] = v
	}
	r.Quantities = q
	return r
}
