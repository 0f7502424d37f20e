package pricelist

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalize_RenamesColumnsPositionally(t *testing.T) {
	raw := Table{
		Columns: []string{"Artwork", "Cost", "Sell", "MU", "Notes", "Extra"},
		Rows:    [][]string{{"Board", "100", "120", "20%", "", ""}},
	}

	got := Normalize(raw)

	want := []string{"Item", "Nett", "Gross", "Markup", "Col_4", "Col_5"}
	if !reflect.DeepEqual(got.Columns, want) {
		t.Fatalf("columns=%v, want %v", got.Columns, want)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != "Board" {
		t.Fatalf("unexpected rows: %v", got.Rows)
	}
}

func TestNormalize_SingleColumnSource(t *testing.T) {
	got := Normalize(Table{Columns: []string{"What"}, Rows: [][]string{{"Plate"}}})

	if !reflect.DeepEqual(got.Columns, []string{"Item"}) {
		t.Fatalf("columns=%v", got.Columns)
	}
	items := Items(got)
	if len(items) != 1 || !items[0].Nett.IsZero() {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestNormalize_DropsNoiseAndMissingRows(t *testing.T) {
	raw := Table{
		Columns: []string{"a", "b", "c", "d"},
		Rows: [][]string{
			{"ITEM DESCRIPTION", "", "", ""},
			{"Quantity breaks", "", "", ""},
			{"rand value", "", "", ""},
			{"Job description", "", "", ""},
			{"nan", "1", "1", "1"},
			{"NaN", "1", "1", "1"},
			{"", "1", "1", "1"},
			{"Board", "100", "120", "20"},
			{"Foil Stamp", "0", "0", "0"},
		},
	}

	got := Normalize(raw)

	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 rows to survive, got %d: %v", len(got.Rows), got.Rows)
	}
	if got.Rows[0][0] != "Board" || got.Rows[1][0] != "Foil Stamp" {
		t.Fatalf("unexpected surviving rows: %v", got.Rows)
	}
}

func TestNormalize_IsIdempotent(t *testing.T) {
	raw := Table{
		Columns: []string{"x", "y"},
		Rows: [][]string{
			{"Board", "100", "extra"},
			{"Item", "", ""},
			{"Film", "35"},
		},
	}

	once := Normalize(raw)
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize not idempotent:\nonce=%v\ntwice=%v", once, twice)
	}
	if len(once.Columns) != 3 {
		t.Fatalf("expected ragged rows to widen the table, got %v", once.Columns)
	}
}

func TestItems_ParsesDefensivelyAndKeepsFirstDuplicate(t *testing.T) {
	table := Normalize(Table{
		Columns: []string{"Item", "Nett", "Gross", "Markup"},
		Rows: [][]string{
			{" Board ", "1 234,56", "", "20%"},
			{"Board", "999", "", "0"},
			{"Plate", "garbage", "", "nan"},
		},
	})

	items := Items(table)

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].Name != "Board" || !items[0].Nett.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if !items[0].Markup.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("markup=%s, want 20", items[0].Markup)
	}
	if !items[1].Nett.IsZero() || !items[1].Markup.IsZero() {
		t.Fatalf("expected malformed cells to read as zero: %+v", items[1])
	}
}
