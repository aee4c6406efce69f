// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// scopusBase is the Elsevier Scopus search endpoint. Declared as a var so
// tests can substitute an httptest server.
var scopusBase = "https://api.elsevier.com/content/search/scopus"

// Scopus queries Elsevier Scopus. An API key is required.
type Scopus struct {
	Client *httputil.Client
	APIKey string
}

// Name returns the adapter identifier.
func (s *Scopus) Name() string { return "scopus" }

// Search queries Scopus. Without an API key it returns a *ConfigError and
// makes no request.
func (s *Scopus) Search(ctx context.Context, req Request) ([]types.Record, error) {
	if s.APIKey == "" {
		return nil, missingCredential(s.Name(), "SCOPUS_API_KEY")
	}

	params := url.Values{
		"query": {req.Query},
		"count": {strconv.Itoa(req.limit())},
	}
	header := http.Header{"X-ELS-APIKey": {s.APIKey}}

	var resp struct {
		SearchResults struct {
			Entry []json.RawMessage `json:"entry"`
		} `json:"search-results"`
	}
	if err := s.Client.GetJSON(ctx, scopusBase+"?"+params.Encode(), header, &resp); err != nil {
		return nil, fmt.Errorf("Scopus API request: %w", err)
	}

	recs := make([]types.Record, 0, len(resp.SearchResults.Entry))
	for _, raw := range resp.SearchResults.Entry {
		var e scopusEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("parsing Scopus entry: %w", err)
		}
		// An empty result set comes back as a single entry carrying only
		// an error field.
		if e.Error != "" {
			continue
		}

		r := newRecord(s.Name(), raw)
		r.Title = e.Title
		r.Abstract = e.Description
		r.Year = leadingYear(e.CoverDate)
		r.Venue = e.PublicationName
		r.URLPage = e.URL
		r.Identifiers.Set(types.IDDOI, bareDOI(e.DOI))
		r.RawAuthors = append(r.RawAuthors, types.Author{Name: e.Creator})
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

type scopusEntry struct {
	Error           string `json:"error"`
	Title           string `json:"dc:title"`
	Description     string `json:"dc:description"`
	Creator         string `json:"dc:creator"`
	CoverDate       string `json:"prism:coverDate"`
	DOI             string `json:"prism:doi"`
	URL             string `json:"prism:url"`
	PublicationName string `json:"prism:publicationName"`
}
