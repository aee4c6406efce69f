// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"slices"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Select returns the records that make the final list: those scoring at
// least minScore, stable-sorted by score then year (both descending, a
// missing year sorting as 0), cut to maxPapers when it is positive. The
// input slice is not modified.
func Select(recs []types.Record, minScore float64, maxPapers int) []types.Record {
	out := make([]types.Record, 0, len(recs))
	for _, r := range recs {
		if r.ScoreValue() >= minScore {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b types.Record) int {
		if sa, sb := a.ScoreValue(), b.ScoreValue(); sa != sb {
			if sa > sb {
				return -1
			}
			return 1
		}
		return b.YearValue() - a.YearValue()
	})
	if maxPapers > 0 && len(out) > maxPapers {
		out = out[:maxPapers]
	}
	return out
}
