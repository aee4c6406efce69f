// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// openAlexBase is the OpenAlex Works search endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexBase = "https://api.openalex.org/works"

// openAlexMaxPerPage is the largest page OpenAlex serves.
const openAlexMaxPerPage = 200

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client *httputil.Client
	// Mailto is sent as the mailto parameter for polite pool access.
	Mailto string
}

// Name returns the adapter identifier.
func (s *OpenAlex) Name() string { return "openalex" }

// Search runs a relevance-sorted full-text search, filtering publication
// dates server-side.
func (s *OpenAlex) Search(ctx context.Context, req Request) ([]types.Record, error) {
	perPage := min(max(req.limit(), 1), openAlexMaxPerPage)

	params := url.Values{
		"search":   {req.Query},
		"per_page": {strconv.Itoa(perPage)},
		"sort":     {"relevance_score:desc"},
	}

	var filters []string
	if req.Years.From != 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", req.Years.From))
	}
	if req.Years.To != 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%d-12-31", req.Years.To))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if s.Mailto != "" {
		params.Set("mailto", s.Mailto)
	}

	var resp openAlexResponse
	if err := s.Client.GetJSON(ctx, openAlexBase+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}

	recs := make([]types.Record, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var w openAlexWork
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("parsing OpenAlex work: %w", err)
		}

		r := newRecord(s.Name(), raw)
		r.Title = w.Title
		if r.Title == "" {
			r.Title = w.DisplayName
		}
		r.Abstract = abstractFromIndex(w.AbstractInvertedIndex)
		if w.PublicationYear > 0 {
			r.Year = types.IntPtr(w.PublicationYear)
		}

		doi := w.IDs.DOI
		if doi == "" {
			doi = w.DOI
		}
		r.Identifiers.Set(types.IDDOI, bareDOI(doi))
		r.Identifiers.Set(types.IDOpenAlex, w.ID)

		r.URLPage = w.PrimaryLocation.LandingPageURL
		if r.URLPage == "" {
			r.URLPage = w.HostVenue.URL
		}
		r.URLPDF = w.PrimaryLocation.PDFURL

		r.Venue = w.HostVenue.DisplayName
		if r.Venue == "" {
			r.Venue = w.PrimaryLocation.Source.DisplayName
		}

		for _, a := range w.Authorships {
			r.RawAuthors = append(r.RawAuthors, types.Author{DisplayName: a.Author.DisplayName})
		}
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

// abstractFromIndex rebuilds abstract text from an abstract_inverted_index,
// which maps each word to its positions. Missing positions are skipped; on
// a repeated position the alphabetically first word wins.
func abstractFromIndex(index map[string][]int) string {
	last := -1
	for _, positions := range index {
		for _, pos := range positions {
			last = max(last, pos)
		}
	}
	if last < 0 {
		return ""
	}

	slots := make([]string, last+1)
	for word, positions := range index {
		for _, pos := range positions {
			if pos >= 0 && (slots[pos] == "" || word < slots[pos]) {
				slots[pos] = word
			}
		}
	}
	words := slices.DeleteFunc(slots, func(w string) bool { return w == "" })
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []json.RawMessage `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DisplayName           string               `json:"display_name"`
	DOI                   string               `json:"doi"`
	PublicationYear       int                  `json:"publication_year"`
	IDs                   openAlexIDs          `json:"ids"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
	HostVenue             openAlexHostVenue    `json:"host_venue"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexIDs struct {
	DOI string `json:"doi"`
}

type openAlexLocation struct {
	LandingPageURL string `json:"landing_page_url"`
	PDFURL         string `json:"pdf_url"`
	Source         struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

type openAlexHostVenue struct {
	DisplayName string `json:"display_name"`
	URL         string `json:"url"`
}

type openAlexAuthorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}
