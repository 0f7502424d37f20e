// Package document renders estimates as printable PDF documents.
package document

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/estimate"
	"github.com/Simplici0/reprocost/internal/pricing"
)

// Title is the document heading, prefixed by the company name when set.
const Title = "Artwork and Repro Cost Estimate"

// Options controls document branding.
type Options struct {
	CompanyName string
}

var (
	grey      = &props.Color{Red: 90, Green: 90, Blue: 90}
	cellStyle = &props.Cell{
		BorderType:      border.Full,
		BorderColor:     &props.Color{Red: 0, Green: 0, Blue: 0},
		BorderThickness: 0.2,
	}
)

// Render builds the PDF for an estimate and returns its bytes.
func Render(e estimate.Estimate, opts Options) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	addTitle(m, opts)
	addMetadata(m, e)
	if e.Foil.IsSet() {
		addFoilSpec(m, e.Foil)
	}
	addLineTable(m, e.BilledLines())
	addTotals(m, e.Totals)
	addApproval(m)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addTitle(m core.Maroto, opts Options) {
	title := Title
	if opts.CompanyName != "" {
		title = opts.CompanyName + " " + Title
	}

	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(title, props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
		row.New(6),
	)
}

func addMetadata(m core.Maroto, e estimate.Estimate) {
	style := props.Text{Size: 10}

	m.AddRows(
		row.New(7).Add(
			col.New(6).Add(text.New("Client: "+e.Client, style)),
			col.New(6).Add(text.New("Date: "+e.Date.Format(estimate.DateLayout), style)),
		),
		row.New(7).Add(
			col.New(6).Add(text.New("Preprod Ref: "+e.Reference, style)),
			col.New(6).Add(text.New("Description: "+e.Description, style)),
		),
		row.New(4),
	)
}

func addFoilSpec(m core.Maroto, foil estimate.Foil) {
	style := props.Text{Size: 10}

	m.AddRows(
		row.New(7).Add(
			col.New(12).Add(text.New("Foil Block Specifications:", props.Text{Size: 10, Style: fontstyle.Bold})),
		),
		row.New(7).Add(
			col.New(4).Add(text.New(fmt.Sprintf("Height: %s mm", foil.Height), style)),
			col.New(4).Add(text.New(fmt.Sprintf("Width: %s mm", foil.Width), style)),
			col.New(4).Add(text.New(fmt.Sprintf("Code: %s", foil.Code), style)),
		),
		row.New(4),
	)
}

func addLineTable(m core.Maroto, lines []pricing.LineEntry) {
	head := props.Text{Size: 10, Style: fontstyle.Bold, Left: 1, Top: 1}
	headRight := head
	headRight.Align = align.Right
	headRight.Right = 1

	m.AddRows(
		row.New(7).Add(
			col.New(6).Add(text.New("Item Description", head)).WithStyle(cellStyle),
			col.New(2).Add(text.New("Qty", headRight)).WithStyle(cellStyle),
			col.New(2).Add(text.New("Unit (R)", headRight)).WithStyle(cellStyle),
			col.New(2).Add(text.New("Total (R)", headRight)).WithStyle(cellStyle),
		),
	)

	body := props.Text{Size: 10, Left: 1, Top: 1}
	bodyRight := body
	bodyRight.Align = align.Right
	bodyRight.Right = 1

	for _, line := range lines {
		m.AddRows(
			row.New(7).Add(
				col.New(6).Add(text.New(line.Item, body)).WithStyle(cellStyle),
				col.New(2).Add(text.New(Quantity(line.Quantity), bodyRight)).WithStyle(cellStyle),
				col.New(2).Add(text.New(Amount(line.UnitPrice), bodyRight)).WithStyle(cellStyle),
				col.New(2).Add(text.New(Amount(line.LineTotal()), bodyRight)).WithStyle(cellStyle),
			),
		)
	}
	m.AddRows(row.New(5))
}

func addTotals(m core.Maroto, totals pricing.Totals) {
	label := props.Text{Size: 10, Style: fontstyle.Bold}
	value := props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}

	entries := []struct {
		label string
		value decimal.Decimal
	}{
		{"Total:", totals.Subtotal},
		{fmt.Sprintf("VAT (%s%%):", pricing.TaxRate.Shift(2)), totals.Tax},
		{"Grand Total:", totals.GrandTotal},
	}
	for _, entry := range entries {
		m.AddRows(
			row.New(7).Add(
				col.New(7),
				col.New(2).Add(text.New(entry.label, label)),
				col.New(3).Add(text.New("R "+Amount(entry.value), value)),
			),
		)
	}
}

func addApproval(m core.Maroto) {
	style := props.Text{Size: 10}

	m.AddRows(
		row.New(14),
		row.New(7).Add(
			col.New(12).Add(text.New("Client Approval", props.Text{Size: 10, Style: fontstyle.Bold})),
		),
		row.New(9).Add(
			col.New(6).Add(text.New("Name: ______________________________", style)),
			col.New(6).Add(text.New("Signature: __________________________", style)),
		),
		row.New(9).Add(
			col.New(6).Add(text.New("Date: ______________________________", style)),
		),
		row.New(6).Add(
			col.New(12).Add(text.New("Prices exclude VAT unless stated. Estimate valid for 30 days.", props.Text{Size: 7, Color: grey})),
		),
	)
}

// Amount formats a money value with thousands separators and two decimals.
func Amount(d decimal.Decimal) string {
	return humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

// Quantity formats whole quantities without decimals.
func Quantity(q decimal.Decimal) string {
	f := q.InexactFloat64()
	if f == math.Trunc(f) {
		return q.StringFixed(0)
	}
	return q.StringFixed(2)
}

var fileNameReplacer = strings.NewReplacer(
	" ", "_",
	"/", "-",
	`\`, "-",
	":", "-",
	"*", "",
	"?", "",
	`"`, "",
	"<", "",
	">", "",
	"|", "",
)

// FileName returns "{ref}_{client}_{desc}.pdf" with spaces as underscores
// and path separators removed.
func FileName(e estimate.Estimate) string {
	return fileNameReplacer.Replace(fmt.Sprintf("%s_%s_%s.pdf", e.Reference, e.Client, e.Description))
}
