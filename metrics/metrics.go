// Package metrics counts the outcome of analysis and fetch runs.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "divgap"

type Metrics struct {
	Registry *prometheus.Registry

	DividendsAnalyzed prometheus.Counter
	DividendsSkipped  *prometheus.CounterVec
	GapFills          *prometheus.CounterVec
	Anomalies         *prometheus.CounterVec
	FetchErrors       *prometheus.CounterVec
	LastRun           prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		DividendsAnalyzed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dividends_analyzed_total",
				Help:      "Dividends that produced a report row",
			},
		),

		DividendsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dividends_skipped_total",
				Help:      "Dividends skipped by reason",
			},
			[]string{"reason"},
		),

		GapFills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gap_fills_total",
				Help:      "Analyzed dividends by gap-fill outcome",
			},
			[]string{"outcome"},
		),

		Anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anomalies_total",
				Help:      "Anomalies flagged on report rows by kind",
			},
			[]string{"kind"},
		),

		FetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Tickers that failed to fetch by data kind",
			},
			[]string{"kind"},
		),

		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
	}

	m.Registry.MustRegister(
		m.DividendsAnalyzed,
		m.DividendsSkipped,
		m.GapFills,
		m.Anomalies,
		m.FetchErrors,
		m.LastRun,
	)
	return m
}

func (m *Metrics) Analyzed(filled bool) {
	if m == nil {
		return
	}
	m.DividendsAnalyzed.Inc()
	outcome := "open"
	if filled {
		outcome = "filled"
	}
	m.GapFills.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.DividendsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Anomaly(kind string) {
	if m == nil {
		return
	}
	m.Anomalies.WithLabelValues(kind).Inc()
}

func (m *Metrics) FetchError(kind string) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(kind).Inc()
}

// Done records the end of a run.
func (m *Metrics) Done(t time.Time) {
	if m == nil {
		return
	}
	m.LastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes the metrics in the text exposition format for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
