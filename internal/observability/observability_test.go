// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(types.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String(), "info is below warn")

	log.Warn().Str("source", "arxiv").Msg("source failed")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "arxiv", entry["source"])
	assert.Equal(t, "source failed", entry["message"])
}

func TestNewLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(DefaultLoggingConfig(), &buf)
	log.Info().Str("topic", "graphs").Msg("collecting")
	assert.Contains(t, buf.String(), "collecting")
	assert.Contains(t, buf.String(), "graphs")
}

func TestWithRunContext(t *testing.T) {
	var buf bytes.Buffer
	log := WithRunContext(newLogger(types.LoggingConfig{Format: "json"}, &buf), "run-1", "graphs")
	log.Info().Msg("x")
	assert.Contains(t, buf.String(), `"run_id":"run-1"`)
	assert.Contains(t, buf.String(), `"topic":"graphs"`)
}

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.RecordSourceSearch("arxiv", OutcomeOK, 7, 2*time.Second)
	m.RecordSourceSearch("scopus", OutcomeSkipped, 0, 0)
	m.RecordRetry("arxiv")
	m.RecordRetry("arxiv")
	m.RecordDuplicates(3)
	m.RecordScored(true)
	m.RecordScored(false)
	m.RecordPersisted("batch", 4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceSearches.WithLabelValues("arxiv", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourceSearches.WithLabelValues("scopus", OutcomeSkipped)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.SourceRecords.WithLabelValues("arxiv")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SourceRetries.WithLabelValues("arxiv")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Duplicates))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsScored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScorerFailures))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RecordsPersisted.WithLabelValues("batch")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.SourceDuration))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSourceSearch("x", OutcomeFailed, 0, time.Second)
		m.RecordRetry("x")
		m.RecordDuplicates(1)
		m.RecordScored(true)
		m.RecordPersisted("batch", 1)
		require.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "never.prom")))
	})
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordDuplicates(2)

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "research_agent_duplicates_removed_total 2")
}
