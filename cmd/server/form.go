package main

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/reprocost/internal/document"
	"github.com/Simplici0/reprocost/internal/estimate"
	"github.com/Simplici0/reprocost/internal/pricelist"
	"github.com/Simplici0/reprocost/internal/pricing"
)

const (
	quantityFieldPrefix = "qty:"
	priceFieldPrefix    = "price:"
	defaultFieldPrefix  = "default:"
)

func quantityField(item string) string { return quantityFieldPrefix + item }

func priceField(item string) string { return priceFieldPrefix + item }

// defaultField carries the default unit price a line was rendered with.
func defaultField(item string) string { return defaultFieldPrefix + item }

// applyEstimateForm copies submitted form values into the session. Numbers
// are parsed leniently; anything unreadable counts as zero. A unit price is
// only an override when it differs from the default the line was shown
// with, so an untouched line follows later foil code changes.
func applyEstimateForm(sess *estimate.Session, form url.Values) {
	sess.Client = strings.TrimSpace(form.Get("client"))
	sess.Reference = strings.TrimSpace(form.Get("reference"))
	sess.Description = strings.TrimSpace(form.Get("description"))
	if d, err := time.Parse(estimate.DateLayout, strings.TrimSpace(form.Get("date"))); err == nil {
		sess.Date = d
	}
	sess.Foil = estimate.Foil{
		Height: pricelist.ParseAmount(form.Get("foil_h")),
		Width:  pricelist.ParseAmount(form.Get("foil_w")),
		Code:   pricelist.ParseAmount(form.Get("foil_c")),
	}

	for _, item := range sess.Items {
		if raw, ok := form[quantityField(item.Name)]; ok && len(raw) > 0 {
			qty := pricelist.ParseAmount(raw[0])
			if qty.IsZero() {
				delete(sess.Quantities, item.Name)
			} else {
				sess.Quantities[item.Name] = qty
			}
		}

		raw, ok := form[priceField(item.Name)]
		if !ok || len(raw) == 0 {
			continue
		}
		text := strings.TrimSpace(raw[0])
		price := pricelist.ParseAmount(text)
		shown, hasShown := shownDefault(form, item.Name)
		switch {
		case text == "",
			matchesDefault(price, pricing.UnitPrice(item, sess.Foil.Code)),
			hasShown && matchesDefault(price, shown):
			delete(sess.Overrides, item.Name)
		default:
			sess.Overrides[item.Name] = price
		}
	}
}

func shownDefault(form url.Values, item string) (decimal.Decimal, bool) {
	text := strings.TrimSpace(form.Get(defaultField(item)))
	if text == "" {
		return decimal.Zero, false
	}
	return pricelist.ParseAmount(text), true
}

func matchesDefault(price, def decimal.Decimal) bool {
	return price.Equal(def) || price.Equal(def.Round(2))
}

type lineView struct {
	Item          string
	QuantityField string
	PriceField    string
	DefaultField  string
	Quantity      string
	UnitPrice     string
	DefaultPrice  string
	LineTotal     string
	Nett          string
	Markup        string
	Overridden    bool
}

type estimateViewData struct {
	baseViewData

	Client      string
	Reference   string
	Description string
	Date        string
	FoilHeight  string
	FoilWidth   string
	FoilCode    string

	Lines         []lineView
	ShowCostBasis bool
	Subtotal      string
	Tax           string
	GrandTotal    string

	ItemCount       int
	PriceListSource string
	SheetURL        string
	SheetsEnabled   bool
	LoadedID        int64
	Validation      []string
}

// estimateView snapshots the session into template data. It runs while the
// session is held so the view never mixes two requests.
func (s *server) estimateView(base baseViewData, sess *estimate.Session) estimateViewData {
	est := sess.Compute()

	data := estimateViewData{
		baseViewData:    base,
		Client:          sess.Client,
		Reference:       sess.Reference,
		Description:     sess.Description,
		Date:            sess.Date.Format(estimate.DateLayout),
		FoilHeight:      inputValue(sess.Foil.Height),
		FoilWidth:       inputValue(sess.Foil.Width),
		FoilCode:        inputValue(sess.Foil.Code),
		ShowCostBasis:   base.Admin != "",
		Subtotal:        document.Amount(est.Totals.Subtotal),
		Tax:             document.Amount(est.Totals.Tax),
		GrandTotal:      document.Amount(est.Totals.GrandTotal),
		ItemCount:       len(sess.Items),
		PriceListSource: sess.ItemsSource,
		SheetURL:        s.sheetURL,
		SheetsEnabled:   s.sheets != nil,
		LoadedID:        sess.LoadedID,
	}

	data.Lines = make([]lineView, 0, len(est.Lines))
	for _, line := range est.Lines {
		data.Lines = append(data.Lines, lineView{
			Item:          line.Item,
			QuantityField: quantityField(line.Item),
			PriceField:    priceField(line.Item),
			DefaultField:  defaultField(line.Item),
			Quantity:      line.Quantity.String(),
			UnitPrice:     line.UnitPrice.StringFixed(2),
			DefaultPrice:  line.DefaultPrice.StringFixed(2),
			LineTotal:     document.Amount(line.LineTotal()),
			Nett:          document.Amount(line.Nett),
			Markup:        line.MarkupLabel,
			Overridden:    line.Overridden,
		})
	}
	return data
}

func inputValue(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
