// Package metrics exposes the estimator's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for price list loads.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Estimator records estimate lifecycle and price list events.
type Estimator struct {
	saved          prometheus.Counter
	statusChanges  *prometheus.CounterVec
	pdfs           prometheus.Counter
	priceListLoads *prometheus.CounterVec
}

// NewEstimator registers the counters on reg. A nil registerer yields a
// recorder whose methods are no-ops.
func NewEstimator(reg prometheus.Registerer) *Estimator {
	if reg == nil {
		return &Estimator{}
	}
	saved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "estimates_saved_total",
		Help: "Estimates appended to the record store.",
	})
	statusChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "estimates_changed_total",
		Help: "Stored estimates cancelled or deleted.",
	}, []string{"action"})
	pdfs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "estimate_pdfs_rendered_total",
		Help: "Estimate documents rendered.",
	})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "price_list_loads_total",
		Help: "Price list loads by source and outcome.",
	}, []string{"source", "outcome"})
	reg.MustRegister(saved, statusChanges, pdfs, loads)
	return &Estimator{
		saved:          saved,
		statusChanges:  statusChanges,
		pdfs:           pdfs,
		priceListLoads: loads,
	}
}

// IncSaved counts a stored estimate.
func (m *Estimator) IncSaved() {
	if m == nil || m.saved == nil {
		return
	}
	m.saved.Inc()
}

// IncCancelled counts an estimate marked CANCELLED.
func (m *Estimator) IncCancelled() { m.incStatus("cancel") }

// IncDeleted counts a removed estimate.
func (m *Estimator) IncDeleted() { m.incStatus("delete") }

func (m *Estimator) incStatus(action string) {
	if m == nil || m.statusChanges == nil {
		return
	}
	m.statusChanges.WithLabelValues(action).Inc()
}

// IncPDF counts a rendered document.
func (m *Estimator) IncPDF() {
	if m == nil || m.pdfs == nil {
		return
	}
	m.pdfs.Inc()
}

// ObservePriceListLoad counts a price list load attempt.
func (m *Estimator) ObservePriceListLoad(source string, err error) {
	if m == nil || m.priceListLoads == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	if source == "" {
		source = "unknown"
	}
	m.priceListLoads.WithLabelValues(source, outcome).Inc()
}

// NewRegistry returns a registry carrying the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
