// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources implements one adapter per bibliographic search API. Every
// adapter translates a query into the provider's wire format and returns
// canonical records; failures surface as errors for the aggregator to
// isolate.
package sources

import (
	"context"

	"github.com/pdiddy/research-agent/pkg/types"
)

// DefaultLimit is the per-source result cap used when a Request leaves
// Limit unset.
const DefaultLimit = 50

// Request carries the search parameters passed to every adapter.
type Request struct {
	Query string
	Limit int
	Years types.YearRange
}

func (r Request) limit() int {
	if r.Limit <= 0 {
		return DefaultLimit
	}
	return r.Limit
}

// Source searches a single provider. Implementations are safe to call from
// their own goroutine; they share no mutable state with other adapters.
type Source interface {
	Name() string
	Search(ctx context.Context, req Request) ([]types.Record, error)
}
