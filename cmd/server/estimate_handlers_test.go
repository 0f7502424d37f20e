package main

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
)

var inputPattern = regexp.MustCompile(`<input[^>]*name="([^"]+)"[^>]*value="([^"]*)"`)

// renderedInputs collects the named inputs of a page the way a browser
// would post them back unchanged.
func renderedInputs(body string) url.Values {
	form := url.Values{}
	for _, m := range inputPattern.FindAllStringSubmatch(body, -1) {
		form.Set(html.UnescapeString(m[1]), html.UnescapeString(m[2]))
	}
	return form
}

func TestUploadAndRecalculate(t *testing.T) {
	c := newTestClient(t, newTestServer(t))

	rr := c.upload("prices.csv", samplePriceList)
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Loaded 3 items.", "Board", "Foil Stamp", "Proof")

	rr = c.postForm("/estimate", scenarioForm())
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "R 1,590.00", "R 238.50", "R 1,828.50", "78.00")
}

func TestUploadUnreadableFileWarnsAndClearsList(t *testing.T) {
	c := newTestClient(t, newTestServer(t))

	c.upload("prices.csv", samplePriceList)
	rr := c.upload("prices.csv", "")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "The price list file is empty.", "No price list loaded.")
}

func TestFetchPrivateSheetWarns(t *testing.T) {
	c := newTestClient(t, newTestServer(t))

	rr := c.postForm("/pricelist/sheet", url.Values{})
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Anyone with the link can view")
}

func TestFetchUsesConfiguredURLOnly(t *testing.T) {
	var hits, posted atomic.Int32
	sheet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(samplePriceList))
	}))
	defer sheet.Close()

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posted.Add(1)
	}))
	defer other.Close()

	srv := newTestServer(t)
	srv.sheetURL = sheet.URL
	c := newTestClient(t, srv)

	rr := c.postForm("/pricelist/sheet", url.Values{"url": {other.URL}})
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Loaded 3 items.")
	if hits.Load() != 1 || posted.Load() != 0 {
		t.Fatalf("configured hits=%d, submitted url hits=%d", hits.Load(), posted.Load())
	}
}

func TestFinalizeRequiresClient(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	c.upload("prices.csv", samplePriceList)

	form := scenarioForm()
	form.Del("client")
	rr := c.postForm("/estimate/finalize", form)
	expectStatus(t, rr, http.StatusUnprocessableEntity)
	expectBody(t, rr, "Please enter a Client Name.")

	recs, err := srv.store.Search(context.Background(), "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected nothing saved, got %d records", len(recs))
	}
}

func TestFinalizeRejectsFoilWithoutCode(t *testing.T) {
	c := newTestClient(t, newTestServer(t))
	c.upload("prices.csv", samplePriceList)

	form := scenarioForm()
	form.Del("foil_c")
	rr := c.postForm("/estimate/finalize", form)
	expectStatus(t, rr, http.StatusUnprocessableEntity)
	expectBody(t, rr, "Enter a foil block code before quoting Foil Stamp.")
}

func TestFinalizeSavesRecord(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	c.upload("prices.csv", samplePriceList)

	rr := c.postForm("/estimate/finalize", scenarioForm())
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "Estimate saved as #1.")

	rec, err := srv.store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get saved record: %v", err)
	}
	if rec.Client != "Acme Foods" || rec.Date != "2026-03-14" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.GrandTotal.String() != "1828.5" {
		t.Fatalf("grand total=%s, want 1828.5", rec.GrandTotal)
	}
	if q := rec.Quantities["Foil Stamp"]; q.String() != "5" {
		t.Fatalf("foil quantity=%s, want 5", q)
	}
}

func TestPriceOverrideSurvivesRecalculation(t *testing.T) {
	c := newTestClient(t, newTestServer(t))
	c.upload("prices.csv", samplePriceList)

	form := scenarioForm()
	form.Set(priceField("Board"), "99.99")
	c.postForm("/estimate", form)

	form.Del(priceField("Board"))
	rr := c.postForm("/estimate", form)
	expectBody(t, rr, "999.90", `class="overridden"`)

	form.Set(priceField("Board"), "120.00")
	rr = c.postForm("/estimate", form)
	if strings.Contains(rr.Body.String(), `class="overridden"`) {
		t.Fatalf("expected override to clear when the default price is submitted")
	}
}

func TestFoilCodeEnteredAfterQuantityPricesFoil(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	c.upload("prices.csv", samplePriceList)

	form := scenarioForm()
	form.Del("foil_c")
	rr := c.postForm("/estimate", form)
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "R 1,380.00")

	shown := renderedInputs(rr.Body.String())
	if got := shown.Get(priceField("Foil Stamp")); got != "0.00" {
		t.Fatalf("foil price shown as %q, want 0.00", got)
	}
	shown.Set("foil_c", "50")
	rr = c.postForm("/estimate", shown)
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "78.00", "R 1,828.50")
	if strings.Contains(rr.Body.String(), `class="overridden"`) {
		t.Fatalf("posting back the shown prices must not create overrides")
	}

	rr = c.postForm("/estimate/finalize", renderedInputs(rr.Body.String()))
	expectStatus(t, rr, http.StatusOK)
	rec, err := srv.store.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get saved record: %v", err)
	}
	if rec.GrandTotal.String() != "1828.5" {
		t.Fatalf("grand total=%s, want 1828.5", rec.GrandTotal)
	}
}

func TestResetKeepsPriceList(t *testing.T) {
	c := newTestClient(t, newTestServer(t))
	c.upload("prices.csv", samplePriceList)
	c.postForm("/estimate", scenarioForm())

	rr := c.postForm("/estimate/reset", url.Values{})
	expectStatus(t, rr, http.StatusSeeOther)

	rr = c.get("/")
	expectStatus(t, rr, http.StatusOK)
	expectBody(t, rr, "3 items loaded from prices.csv.", "R 0.00", `value="2026-03-14"`)
	if strings.Contains(rr.Body.String(), "Acme Foods") {
		t.Fatalf("expected client to be cleared after reset")
	}
}

func TestPDFDownload(t *testing.T) {
	srv := newTestServer(t)
	var exported string
	srv.exportDocument = func(name string, data []byte) { exported = name }

	c := newTestClient(t, srv)
	c.upload("prices.csv", samplePriceList)
	c.postForm("/estimate", scenarioForm())

	rr := c.get("/estimate/pdf")
	expectStatus(t, rr, http.StatusOK)
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type=%q", ct)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "PP_1042_Acme_Foods_Cereal_box.pdf") {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Fatalf("body is not a PDF")
	}
	if exported != "PP_1042_Acme_Foods_Cereal_box.pdf" {
		t.Fatalf("exported=%q", exported)
	}
}

func TestAdminSeesCostBasis(t *testing.T) {
	c := newTestClient(t, newTestServer(t))
	c.upload("prices.csv", samplePriceList)

	rr := c.get("/")
	if strings.Contains(rr.Body.String(), "<th>Nett</th>") {
		t.Fatalf("cost basis must be hidden from anonymous users")
	}

	rr = c.postForm("/login", url.Values{"email": {testAdminEmail}, "password": {testAdminPassword}})
	expectStatus(t, rr, http.StatusSeeOther)

	rr = c.postForm("/estimate", scenarioForm())
	expectBody(t, rr, "<th>Nett</th>", "<th>Markup</th>", "20%", "56%", testAdminEmail)
}
