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

// coreBase is the CORE v3 works search endpoint. Declared as a var so tests
// can substitute an httptest server.
var coreBase = "https://api.core.ac.uk/v3/search/works"

// CORE queries the CORE open access aggregator. The API key is optional;
// anonymous access is heavily rate limited.
type CORE struct {
	Client *httputil.Client
	APIKey string
}

// Name returns the adapter identifier.
func (s *CORE) Name() string { return "core" }

// Search queries CORE works.
func (s *CORE) Search(ctx context.Context, req Request) ([]types.Record, error) {
	params := url.Values{
		"q":     {req.Query},
		"limit": {strconv.Itoa(req.limit())},
	}
	var header http.Header
	if s.APIKey != "" {
		header = http.Header{"Authorization": {"Bearer " + s.APIKey}}
	}

	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := s.Client.GetJSON(ctx, coreBase+"?"+params.Encode(), header, &resp); err != nil {
		return nil, fmt.Errorf("CORE API request: %w", err)
	}

	recs := make([]types.Record, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var w coreWork
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("parsing CORE work: %w", err)
		}

		r := newRecord(s.Name(), raw)
		r.Title = w.Title
		r.Abstract = w.Abstract
		if w.YearPublished > 0 {
			r.Year = types.IntPtr(w.YearPublished)
		} else {
			r.Year = leadingYear(w.PublishedDate)
		}
		r.Venue = w.Publisher
		r.URLPDF = w.DownloadURL
		for _, l := range w.Links {
			if l.Type == "display" {
				r.URLPage = l.URL
				break
			}
		}
		if r.URLPage == "" && len(w.SourceFulltextURLs) > 0 {
			r.URLPage = w.SourceFulltextURLs[0]
		}
		r.Identifiers.Set(types.IDDOI, bareDOI(w.DOI))
		r.RawAuthors = append(r.RawAuthors, w.Authors...)
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

type coreWork struct {
	Title              string         `json:"title"`
	Abstract           string         `json:"abstract"`
	Authors            []types.Author `json:"authors"`
	DOI                string         `json:"doi"`
	YearPublished      int            `json:"yearPublished"`
	PublishedDate      string         `json:"publishedDate"`
	Publisher          string         `json:"publisher"`
	DownloadURL        string         `json:"downloadUrl"`
	SourceFulltextURLs []string       `json:"sourceFulltextUrls"`
	Links              []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"links"`
}
