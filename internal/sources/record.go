// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// newRecord starts a record for source, keeping raw as its payload.
func newRecord(source string, raw json.RawMessage) types.Record {
	return types.Record{
		Source:        source,
		Identifiers:   types.Identifiers{},
		SourcePayload: raw,
	}
}

// finish applies the year window client-side and caps the result at the
// request limit. Records without a year are kept.
func finish(recs []types.Record, req Request) []types.Record {
	out := make([]types.Record, 0, len(recs))
	for _, r := range recs {
		if !req.Years.Contains(r.Year) {
			continue
		}
		out = append(out, r)
		if len(out) == req.limit() {
			break
		}
	}
	return out
}

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// bareDOI strips resolver and scheme prefixes from a DOI.
func bareDOI(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range doiPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

// leadingYear parses the first four characters of a date string such as
// "2024 Jan 12" or "2023-05-01".
func leadingYear(s string) *int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return nil
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

// collapseSpace joins whitespace runs into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stringList decodes a JSON string or array of strings. Solr-backed APIs
// return either depending on the field's multiplicity.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = stringList{s}
	return nil
}

// First returns the first element, or "".
func (l stringList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// looseString decodes a JSON string or number as its text.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}

// Year parses the value as a year.
func (s looseString) Year() *int { return leadingYear(string(s)) }

// authorList decodes a single author or a list of authors. Each element may
// be a plain string or an object.
type authorList []types.Author

func (l *authorList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = nil
		return nil
	case data[0] == '[':
		var items []types.Author
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		var a types.Author
		if err := json.Unmarshal(data, &a); err != nil {
			return err
		}
		*l = authorList{a}
		return nil
	}
}
