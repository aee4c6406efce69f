// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score assigns relevance scores in [0,1]. Every record gets a
// deterministic keyword-overlap baseline; an optional external model may
// raise it but never lower it.
package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/pkg/types"
)

// minTokenLen is the shortest token that counts toward overlap.
const minTokenLen = 3

// ErrOutOfRange is returned for external scores outside [0,1] or NaN.
var ErrOutOfRange = errors.New("score out of range [0,1]")

// ExternalScorer rates how relevant an abstract is to a query. It returns
// a value in [0,1] or an error.
type ExternalScorer interface {
	Score(ctx context.Context, query, abstract string) (float64, error)
}

// Tokens splits s into the set of lowercase ASCII alphanumeric runs of at
// least three characters.
func Tokens(s string) map[string]struct{} {
	toks := make(map[string]struct{})
	var b strings.Builder
	flush := func() {
		if b.Len() >= minTokenLen {
			toks[b.String()] = struct{}{}
		}
		b.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		default:
			flush()
		}
	}
	flush()
	return toks
}

// Baseline returns |query tokens ∩ text tokens| / |query tokens|, or 0 when
// either side has no tokens.
func Baseline(query, text string) float64 {
	qt := Tokens(query)
	if len(qt) == 0 {
		return 0
	}
	tt := Tokens(text)
	if len(tt) == 0 {
		return 0
	}
	inter := 0
	for t := range qt {
		if _, ok := tt[t]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(qt))
}

// Scorer combines the baseline with an optional external scorer.
type Scorer struct {
	// External is nil when no external model is configured.
	External ExternalScorer
	Log      zerolog.Logger
	Metrics  *observability.Metrics
}

// Result breaks a score into its components.
type Result struct {
	Score    float64
	Baseline float64
	External float64

	// ExternalErr is the external scorer's failure, if it was invoked and
	// failed. The external component is 0 in that case.
	ExternalErr error
}

// Score returns max(baseline, external) for rec. The baseline reads the
// abstract, or the title when the abstract is empty. The external scorer
// only sees records with an abstract; its failures count as 0.
func (s *Scorer) Score(ctx context.Context, query string, rec types.Record) Result {
	text := rec.Abstract
	if strings.TrimSpace(text) == "" {
		text = rec.Title
	}
	res := Result{Baseline: Baseline(query, text)}

	if s.External != nil && strings.TrimSpace(rec.Abstract) != "" {
		v, err := s.External.Score(ctx, query, rec.Abstract)
		if err == nil {
			err = checkRange(v)
		}
		if err != nil {
			res.ExternalErr = err
			s.Log.Debug().Err(err).Str("title", rec.Title).Msg("external scorer failed")
		} else {
			res.External = v
		}
	}

	res.Score = math.Max(res.Baseline, res.External)
	s.Metrics.RecordScored(res.ExternalErr != nil)
	return res
}

func checkRange(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	return nil
}
