// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// doajBase is the DOAJ article search endpoint; the query is appended as a
// path segment. Declared as a var so tests can substitute an httptest server.
var doajBase = "https://doaj.org/api/v2/search/articles/"

// DOAJ queries the Directory of Open Access Journals.
type DOAJ struct {
	Client *httputil.Client
}

// Name returns the adapter identifier.
func (s *DOAJ) Name() string { return "doaj" }

// Search queries DOAJ articles.
func (s *DOAJ) Search(ctx context.Context, req Request) ([]types.Record, error) {
	params := url.Values{
		"page":     {"1"},
		"pageSize": {strconv.Itoa(req.limit())},
	}
	reqURL := doajBase + url.PathEscape(req.Query) + "?" + params.Encode()

	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := s.Client.GetJSON(ctx, reqURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("DOAJ API request: %w", err)
	}

	recs := make([]types.Record, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var it struct {
			BibJSON doajBibJSON `json:"bibjson"`
		}
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("parsing DOAJ article: %w", err)
		}
		bib := it.BibJSON

		r := newRecord(s.Name(), raw)
		r.Title = bib.Title
		r.Abstract = bib.Abstract
		r.Year = bib.Year.Year()
		r.Venue = bib.Journal.Title
		for _, id := range bib.Identifier {
			if strings.EqualFold(id.Type, "doi") {
				r.Identifiers.Set(types.IDDOI, bareDOI(id.ID))
				break
			}
		}
		for _, l := range bib.Link {
			if r.URLPage == "" {
				r.URLPage = l.URL
			}
			if strings.Contains(strings.ToLower(l.ContentType), "pdf") && r.URLPDF == "" {
				r.URLPDF = l.URL
			}
		}
		r.RawAuthors = append(r.RawAuthors, bib.Author...)
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

type doajBibJSON struct {
	Title      string         `json:"title"`
	Abstract   string         `json:"abstract"`
	Year       looseString    `json:"year"`
	Author     []types.Author `json:"author"`
	Identifier []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"identifier"`
	Link []struct {
		Type        string `json:"type"`
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"link"`
	Journal struct {
		Title string `json:"title"`
	} `json:"journal"`
}
