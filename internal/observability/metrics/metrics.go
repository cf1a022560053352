package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "utilitybilling_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	panelChanges  *prometheus.CounterVec

	extractionAttempts *prometheus.CounterVec
	extractionLatency  *prometheus.HistogramVec

	scrapeExchanges *prometheus.CounterVec
	scrapeLatency   *prometheus.HistogramVec

	invoiceRenderTotal   *prometheus.CounterVec
	invoiceRenderLatency *prometheus.HistogramVec

	chargesStaged *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		runsStarted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_started_total",
				Help: "Total billing runs started",
			},
		)
		runsCompleted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_completed_total",
				Help: "Total billing runs reaching done by result",
			},
			[]string{"result"},
		)
		panelChanges = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "panel_transitions_total",
				Help: "Total run panel transitions by target panel",
			},
			[]string{"panel"},
		)

		extractionAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "extraction_attempts_total",
				Help: "Total bill extraction attempts by result",
			},
			[]string{"result"},
		)
		extractionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "extraction_latency_seconds",
				Help:    "Bill extraction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		scrapeExchanges = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scrape_exchanges_total",
				Help: "Total mailbox scrape exchanges by kind and result",
			},
			[]string{"kind", "result"},
		)
		scrapeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "scrape_latency_seconds",
				Help:    "Mailbox scrape exchange latency in seconds",
				Buckets: []float64{0.3, 1, 2.5, 5, 10, 15, 20, 30},
			},
			[]string{"kind", "result"},
		)

		invoiceRenderTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_render_total",
				Help: "Total invoice renders by format and result",
			},
			[]string{"format", "result"},
		)
		invoiceRenderLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_render_latency_seconds",
				Help:    "Invoice render latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		chargesStaged = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "charges_staged_total",
				Help: "Total charges staged on the portal by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			runsStarted,
			runsCompleted,
			panelChanges,
			extractionAttempts,
			extractionLatency,
			scrapeExchanges,
			scrapeLatency,
			invoiceRenderTotal,
			invoiceRenderLatency,
			chargesStaged,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncRunStarted increments the started run counter.
func IncRunStarted() {
	if runsStarted != nil {
		runsStarted.Inc()
	}
}

// IncRunCompleted increments the completed run counter.
func IncRunCompleted(result string) {
	if result == "" {
		result = resultSuccess
	}
	if runsCompleted != nil {
		runsCompleted.WithLabelValues(result).Inc()
	}
}

// IncPanelTransition counts a run entering a panel.
func IncPanelTransition(panel string) {
	if panel == "" {
		panel = "unknown"
	}
	if panelChanges != nil {
		panelChanges.WithLabelValues(panel).Inc()
	}
}

// ObserveExtraction records extraction duration and result.
func ObserveExtraction(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if extractionAttempts != nil {
		extractionAttempts.WithLabelValues(result).Inc()
	}
	if extractionLatency != nil {
		extractionLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveScrape records a mailbox exchange duration and result by kind.
func ObserveScrape(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if scrapeExchanges != nil {
		scrapeExchanges.WithLabelValues(kind, result).Inc()
	}
	if scrapeLatency != nil {
		scrapeLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// ObserveInvoiceRender records an invoice render by format.
func ObserveInvoiceRender(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if invoiceRenderTotal != nil {
		invoiceRenderTotal.WithLabelValues(format, result).Inc()
	}
	if invoiceRenderLatency != nil {
		invoiceRenderLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncChargeStaged increments the staged charge counter.
func IncChargeStaged(result string) {
	if result == "" {
		result = resultSuccess
	}
	if chargesStaged != nil {
		chargesStaged.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
