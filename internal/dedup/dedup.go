// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup canonicalizes author lists and removes duplicate records
// across sources. The first occurrence of a key wins; later duplicates are
// dropped even when they carry richer metadata.
package dedup

import (
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// titleKeyLimit bounds the title fallback key, in characters.
const titleKeyLimit = 160

// AuthorName resolves one raw author shape to a display name. The first
// non-empty of the plain string, name, full_name, display_name, text and
// "given family" wins.
func AuthorName(a types.Author) string {
	for _, v := range []string{a.Plain, a.Name, a.FullName, a.DisplayName, a.Text} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
}

// NormalizeAuthors resolves raw author shapes to display names, dropping
// entries that resolve to nothing. Order is preserved and repeated names
// are kept.
func NormalizeAuthors(raw []types.Author) []string {
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		if name := AuthorName(a); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Normalize rewrites each record's raw authors into Authors in place.
// Records that already carry Authors and no raw shapes are left alone.
func Normalize(recs []types.Record) {
	for i := range recs {
		if recs[i].RawAuthors == nil {
			if recs[i].Authors == nil {
				recs[i].Authors = []string{}
			}
			continue
		}
		recs[i].Authors = NormalizeAuthors(recs[i].RawAuthors)
		recs[i].RawAuthors = nil
	}
}

// Key derives the dedup key: the highest-priority identifier, prefixed with
// its kind (DOIs case-folded), or the lowercased title truncated to 160
// characters.
func Key(r types.Record) string {
	for _, kind := range types.IDPriority {
		v := r.Identifiers.Get(kind)
		if v == "" {
			continue
		}
		if kind == types.IDDOI {
			v = strings.ToLower(v)
		}
		return string(kind) + ":" + v
	}

	title := []rune(strings.ToLower(r.Title))
	if len(title) > titleKeyLimit {
		title = title[:titleKeyLimit]
	}
	return "title:" + string(title)
}

// Deduplicate keeps the first record seen for every key, preserving arrival
// order, and reports how many records were dropped.
func Deduplicate(recs []types.Record) ([]types.Record, int) {
	seen := make(map[string]struct{}, len(recs))
	out := make([]types.Record, 0, len(recs))
	for _, r := range recs {
		key := Key(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, len(recs) - len(out)
}
