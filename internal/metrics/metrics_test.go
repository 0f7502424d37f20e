package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEstimatorCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEstimator(reg)

	m.IncSaved()
	m.IncSaved()
	m.IncCancelled()
	m.IncDeleted()
	m.IncPDF()
	m.ObservePriceListLoad("upload", nil)
	m.ObservePriceListLoad("sheet", errors.New("private"))

	if got := testutil.ToFloat64(m.saved); got != 2 {
		t.Fatalf("saved=%v, want 2", got)
	}
	if got := testutil.ToFloat64(m.statusChanges.WithLabelValues("cancel")); got != 1 {
		t.Fatalf("cancel=%v, want 1", got)
	}
	if got := testutil.ToFloat64(m.pdfs); got != 1 {
		t.Fatalf("pdfs=%v, want 1", got)
	}
	if got := testutil.ToFloat64(m.priceListLoads.WithLabelValues("sheet", OutcomeError)); got != 1 {
		t.Fatalf("sheet error loads=%v, want 1", got)
	}
}

func TestEstimatorNilSafe(t *testing.T) {
	var m *Estimator
	m.IncSaved()
	m.IncPDF()
	m.ObservePriceListLoad("upload", nil)

	NewEstimator(nil).IncDeleted()
}

func TestHandlerServesRegisteredCounters(t *testing.T) {
	reg := NewRegistry()
	NewEstimator(reg).IncSaved()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "estimates_saved_total 1") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
