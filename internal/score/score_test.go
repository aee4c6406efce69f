// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/pkg/types"
)

// stubScorer returns a fixed value or error and counts calls.
type stubScorer struct {
	v     float64
	err   error
	calls int32
}

func (s *stubScorer) Score(context.Context, string, string) (float64, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.v, s.err
}

func TestTokens(t *testing.T) {
	got := Tokens("Graph-Neural NETWORKS, of GNNs (2023) a_b ünïcode")
	want := map[string]struct{}{
		"graph": {}, "neural": {}, "networks": {}, "gnns": {}, "2023": {}, "code": {},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, Tokens(""))
	assert.Empty(t, Tokens("a an of"))
}

func TestBaseline(t *testing.T) {
	tests := []struct {
		name        string
		query, text string
		want        float64
	}{
		{"full overlap", "graph neural networks", "Neural networks on a graph", 1},
		{"partial", "graph neural networks", "graph theory", 1.0 / 3},
		{"none", "graph neural networks", "protein folding", 0},
		{"empty text", "graph", "", 0},
		{"empty query", "", "graph", 0},
		{"short query tokens only", "a of", "a of", 0},
		{"repeated query tokens count once", "graph graph theory", "graph", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Baseline(tt.query, tt.text), 1e-9)
		})
	}
}

func TestScorer_BaselineUsesTitleWhenNoAbstract(t *testing.T) {
	s := &Scorer{Log: zerolog.Nop()}
	res := s.Score(context.Background(), "graph networks", types.Record{Title: "Graph networks"})
	assert.Equal(t, 1.0, res.Score)

	res = s.Score(context.Background(), "graph networks", types.Record{})
	assert.Equal(t, 0.0, res.Score, "missing title and abstract scores 0")
}

func TestScorer_ExternalRaisesOnly(t *testing.T) {
	rec := types.Record{Title: "x", Abstract: "graph theory basics"}

	high := &Scorer{External: &stubScorer{v: 0.9}, Log: zerolog.Nop()}
	res := high.Score(context.Background(), "graph neural", rec)
	assert.Equal(t, 0.5, res.Baseline)
	assert.Equal(t, 0.9, res.Score)

	low := &Scorer{External: &stubScorer{v: 0.1}, Log: zerolog.Nop()}
	res = low.Score(context.Background(), "graph neural", rec)
	assert.Equal(t, 0.5, res.Score, "external never lowers the baseline")
}

func TestScorer_ExternalFailureFallsBack(t *testing.T) {
	m := observability.NewMetrics()
	s := &Scorer{External: &stubScorer{err: errors.New("connection refused")}, Log: zerolog.Nop(), Metrics: m}

	res := s.Score(context.Background(), "graph neural", types.Record{Abstract: "graph theory"})
	assert.Equal(t, 0.5, res.Score)
	assert.Equal(t, 0.0, res.External)
	assert.Error(t, res.ExternalErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScorerFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsScored))
}

func TestScorer_ExternalOutOfRangeIsFailure(t *testing.T) {
	for _, v := range []float64{-0.1, 1.5, math.NaN()} {
		s := &Scorer{External: &stubScorer{v: v}, Log: zerolog.Nop()}
		res := s.Score(context.Background(), "graph", types.Record{Abstract: "protein"})
		assert.ErrorIs(t, res.ExternalErr, ErrOutOfRange)
		assert.Equal(t, 0.0, res.Score)
	}
}

func TestScorer_ExternalSkippedWithoutAbstract(t *testing.T) {
	stub := &stubScorer{v: 1}
	s := &Scorer{External: stub, Log: zerolog.Nop()}
	res := s.Score(context.Background(), "graph", types.Record{Title: "protein"})
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, int32(0), atomic.LoadInt32(&stub.calls))
}

func TestScorer_BoundsAndMonotonicity(t *testing.T) {
	queries := []string{"", "graph", "graph neural networks", "The of a", "deep learning 2023"}
	texts := []string{"", "graph", "Graph neural networks for deep learning in 2023", "zzz yyy", "a b c"}
	externals := []ExternalScorer{nil, &stubScorer{v: 0}, &stubScorer{v: 0.7}, &stubScorer{v: 1}, &stubScorer{err: errors.New("x")}}

	for _, ext := range externals {
		s := &Scorer{External: ext, Log: zerolog.Nop()}
		for _, q := range queries {
			for _, text := range texts {
				rec := types.Record{Title: text, Abstract: text}
				res := s.Score(context.Background(), q, rec)
				assert.GreaterOrEqual(t, res.Score, 0.0)
				assert.LessOrEqual(t, res.Score, 1.0)
				assert.GreaterOrEqual(t, res.Score, res.Baseline)
			}
		}
	}
}

func TestScorer_Deterministic(t *testing.T) {
	s := &Scorer{Log: zerolog.Nop()}
	rec := types.Record{Abstract: "graph neural networks for molecules"}
	first := s.Score(context.Background(), "molecular graph networks", rec)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Score(context.Background(), "molecular graph networks", rec))
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`{"score": 0.8}`, 0.8, false},
		{"Sure! Here you go: {\"score\": 0.25} hope that helps", 0.25, false},
		{`{"score": 1.7}`, 1, false},
		{`{"score": -2}`, 0, false},
		{`no json here`, 0, true},
		{`{"score": "high"}`, 0, true},
		{`{"relevance": 0.4}`, 0, true},
		{`} backwards {`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseScore(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOllamaScore(t *testing.T) {
	var got ollamaRequest
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model": "llama3.1:8b", "response": "{\"score\": 0.75}", "done": true}`))
	}))
	defer ts.Close()

	o := NewOllama(types.ScoringConfig{OllamaModel: "llama3.1:8b", OllamaHost: ts.URL + "/", Timeout: 5 * time.Second},
		types.HTTPConfig{UserAgent: "t"}, zerolog.Nop())
	v, err := o.Score(context.Background(), "graph networks", "An abstract.")
	require.NoError(t, err)

	assert.Equal(t, 0.75, v)
	assert.Equal(t, "/api/generate", path)
	assert.Equal(t, "llama3.1:8b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.0, got.Options.Temperature)
	assert.Equal(t, 64, got.Options.NumPredict)
	assert.Contains(t, got.Prompt, "Query: graph networks")
	assert.Contains(t, got.Prompt, "Abstract:\nAn abstract.\n")
}

func TestOllamaScore_ServiceDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	o := NewOllama(types.ScoringConfig{OllamaModel: "missing", OllamaHost: ts.URL}, types.HTTPConfig{UserAgent: "t"}, zerolog.Nop())
	_, err := o.Score(context.Background(), "q", "a")
	require.Error(t, err)

	s := &Scorer{External: o, Log: zerolog.Nop()}
	res := s.Score(context.Background(), "graph", types.Record{Abstract: "graph"})
	assert.Equal(t, 1.0, res.Score)
	assert.Error(t, res.ExternalErr)
}

func TestCached(t *testing.T) {
	inner := &stubScorer{v: 0.6}
	c := NewCached(inner, 2)

	for i := 0; i < 3; i++ {
		v, err := c.Score(context.Background(), "q", "abstract one")
		require.NoError(t, err)
		assert.Equal(t, 0.6, v)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.calls))

	_, _ = c.Score(context.Background(), "q", "abstract two")
	_, _ = c.Score(context.Background(), "other query", "abstract one")
	assert.Equal(t, int32(3), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, 2, c.Len(), "bounded by size")
}

func TestCached_FailuresNotCached(t *testing.T) {
	inner := &stubScorer{err: errors.New("down")}
	c := NewCached(inner, 0)

	_, err := c.Score(context.Background(), "q", "a")
	require.Error(t, err)
	_, err = c.Score(context.Background(), "q", "a")
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&inner.calls))
	assert.Equal(t, 0, c.Len())
}
