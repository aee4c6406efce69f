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

// dblpBase is the DBLP publication search endpoint. Declared as a var so
// tests can substitute an httptest server.
var dblpBase = "https://dblp.org/search/publ/api"

// DBLP queries the computer science bibliography. DBLP exposes no
// abstracts and no server-side year filter.
type DBLP struct {
	Client *httputil.Client
}

// Name returns the adapter identifier.
func (s *DBLP) Name() string { return "dblp" }

// Search queries DBLP publications.
func (s *DBLP) Search(ctx context.Context, req Request) ([]types.Record, error) {
	params := url.Values{
		"q":      {req.Query},
		"h":      {strconv.Itoa(req.limit())},
		"format": {"json"},
	}

	var resp struct {
		Result struct {
			Hits struct {
				Hit []struct {
					Info json.RawMessage `json:"info"`
				} `json:"hit"`
			} `json:"hits"`
		} `json:"result"`
	}
	if err := s.Client.GetJSON(ctx, dblpBase+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("DBLP API request: %w", err)
	}

	hits := resp.Result.Hits.Hit
	recs := make([]types.Record, 0, len(hits))
	for _, h := range hits {
		if len(h.Info) == 0 {
			continue
		}
		var info dblpInfo
		if err := json.Unmarshal(h.Info, &info); err != nil {
			return nil, fmt.Errorf("parsing DBLP hit: %w", err)
		}

		r := newRecord(s.Name(), h.Info)
		r.Title = info.Title
		r.Year = info.Year.Year()
		r.Venue = info.Venue.First()
		r.URLPage = info.URL
		r.Identifiers.Set(types.IDDOI, bareDOI(info.DOI))
		r.RawAuthors = append(r.RawAuthors, info.Authors.Author...)
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

// dblpInfo is one hit. authors.author is a single object when the paper has
// one author and a list otherwise; venue may likewise be a string or list.
type dblpInfo struct {
	Title   string      `json:"title"`
	Year    looseString `json:"year"`
	Venue   stringList  `json:"venue"`
	DOI     string      `json:"doi"`
	URL     string      `json:"url"`
	Authors struct {
		Author authorList `json:"author"`
	} `json:"authors"`
}
