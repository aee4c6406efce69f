// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// ieeeBase is the IEEE Xplore article search endpoint. Declared as a var so
// tests can substitute an httptest server.
var ieeeBase = "https://ieeexploreapi.ieee.org/api/v1/search/articles"

// IEEE queries IEEE Xplore. An API key is required.
type IEEE struct {
	Client *httputil.Client
	APIKey string
}

// Name returns the adapter identifier.
func (s *IEEE) Name() string { return "ieee" }

// Search queries IEEE Xplore. Without an API key it returns a *ConfigError
// and makes no request.
func (s *IEEE) Search(ctx context.Context, req Request) ([]types.Record, error) {
	if s.APIKey == "" {
		return nil, missingCredential(s.Name(), "IEEE_API_KEY")
	}

	params := url.Values{
		"apikey":      {s.APIKey},
		"querytext":   {req.Query},
		"max_records": {strconv.Itoa(req.limit())},
		"format":      {"json"},
	}
	if req.Years.From != 0 {
		params.Set("start_year", strconv.Itoa(req.Years.From))
	}
	if req.Years.To != 0 {
		params.Set("end_year", strconv.Itoa(req.Years.To))
	}

	var resp struct {
		Articles []json.RawMessage `json:"articles"`
	}
	if err := s.Client.GetJSON(ctx, ieeeBase+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("IEEE API request: %w", err)
	}

	recs := make([]types.Record, 0, len(resp.Articles))
	for _, raw := range resp.Articles {
		var a ieeeArticle
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("parsing IEEE article: %w", err)
		}

		r := newRecord(s.Name(), raw)
		r.Title = a.Title
		r.Abstract = a.Abstract
		r.Year = a.PublicationYear.Year()
		r.Venue = a.PublicationTitle
		r.URLPage = a.HTMLURL
		r.URLPDF = a.PDFURL
		r.Identifiers.Set(types.IDDOI, bareDOI(a.DOI))
		r.RawAuthors = append(r.RawAuthors, a.Authors.Authors...)
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

type ieeeArticle struct {
	Title            string      `json:"title"`
	Abstract         string      `json:"abstract"`
	PublicationYear  looseString `json:"publication_year"`
	PublicationTitle string      `json:"publication_title"`
	DOI              string      `json:"doi"`
	HTMLURL          string      `json:"html_url"`
	PDFURL           string      `json:"pdf_url"`
	Authors          struct {
		Authors []types.Author `json:"authors"`
	} `json:"authors"`
}
