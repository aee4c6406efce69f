// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "research_agent"

// Source search outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds the counters and histograms of one collection run. Metrics
// live on a private registry so a run can be written out as a textfile and
// tests never collide on global registration. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// SourceSearches counts adapter calls by source and outcome.
	SourceSearches *prometheus.CounterVec

	// SourceRecords counts records returned by each source.
	SourceRecords *prometheus.CounterVec

	// SourceRetries counts retried HTTP requests by source.
	SourceRetries *prometheus.CounterVec

	// SourceDuration observes adapter call duration in seconds.
	SourceDuration *prometheus.HistogramVec

	// Duplicates counts records dropped by deduplication.
	Duplicates prometheus.Counter

	// ScorerFailures counts external scorer calls that fell back to 0.
	ScorerFailures prometheus.Counter

	// RecordsScored counts scored records.
	RecordsScored prometheus.Counter

	// RecordsPersisted counts record files written, by mode.
	RecordsPersisted *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		SourceSearches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_searches_total",
			Help:      "Adapter searches by source and outcome",
		}, []string{"source", "outcome"}),
		SourceRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_records_total",
			Help:      "Records returned by each source",
		}, []string{"source"}),
		SourceRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_retries_total",
			Help:      "Retried HTTP requests by source",
		}, []string{"source"}),
		SourceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of adapter searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "duplicates_removed_total",
			Help:      "Records dropped by deduplication",
		}),
		ScorerFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "external_scorer_failures_total",
			Help:      "External scorer calls that failed and contributed 0",
		}),
		RecordsScored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_scored_total",
			Help:      "Records assigned a relevance score",
		}),
		RecordsPersisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_persisted_total",
			Help:      "Record files written by persistence mode",
		}, []string{"mode"}),
	}
}

// RecordSourceSearch records one adapter call.
func (m *Metrics) RecordSourceSearch(source, outcome string, records int, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceSearches.WithLabelValues(source, outcome).Inc()
	m.SourceRecords.WithLabelValues(source).Add(float64(records))
	m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordRetry records a retried request for source.
func (m *Metrics) RecordRetry(source string) {
	if m == nil {
		return
	}
	m.SourceRetries.WithLabelValues(source).Inc()
}

// RecordDuplicates records n records removed by deduplication.
func (m *Metrics) RecordDuplicates(n int) {
	if m == nil {
		return
	}
	m.Duplicates.Add(float64(n))
}

// RecordScored records one scored record and whether its external score
// failed.
func (m *Metrics) RecordScored(externalFailed bool) {
	if m == nil {
		return
	}
	m.RecordsScored.Inc()
	if externalFailed {
		m.ScorerFailures.Inc()
	}
}

// RecordPersisted records n record files written in mode.
func (m *Metrics) RecordPersisted(mode string, n int) {
	if m == nil {
		return
	}
	m.RecordsPersisted.WithLabelValues(mode).Add(float64(n))
}

// WriteTextfile writes the registry in the Prometheus text exposition
// format, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
