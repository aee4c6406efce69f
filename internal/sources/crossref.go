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

// crossrefBase is the Crossref works endpoint. Declared as a var so tests
// can substitute an httptest server.
var crossrefBase = "https://api.crossref.org/works"

const crossrefJournalArticle = "journal-article"

// Crossref queries Crossref for journal articles. Crossref is mostly useful
// for DOIs and publisher landing pages; it rarely carries abstracts.
type Crossref struct {
	Client *httputil.Client
}

// Name returns the adapter identifier.
func (s *Crossref) Name() string { return "crossref" }

// Search queries Crossref works restricted to journal articles.
func (s *Crossref) Search(ctx context.Context, req Request) ([]types.Record, error) {
	filters := []string{"type:" + crossrefJournalArticle}
	if req.Years.From != 0 {
		filters = append(filters, fmt.Sprintf("from-pub-date:%d-01-01", req.Years.From))
	}
	if req.Years.To != 0 {
		filters = append(filters, fmt.Sprintf("until-pub-date:%d-12-31", req.Years.To))
	}

	params := url.Values{
		"query":  {req.Query},
		"rows":   {strconv.Itoa(req.limit())},
		"select": {"title,author,issued,DOI,URL,type,container-title"},
		"sort":   {"relevance"},
		"filter": {strings.Join(filters, ",")},
	}

	var resp struct {
		Message struct {
			Items []json.RawMessage `json:"items"`
		} `json:"message"`
	}
	if err := s.Client.GetJSON(ctx, crossrefBase+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("Crossref API request: %w", err)
	}

	recs := make([]types.Record, 0, len(resp.Message.Items))
	for _, raw := range resp.Message.Items {
		var it crossrefItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("parsing Crossref item: %w", err)
		}
		if it.Type != crossrefJournalArticle {
			continue
		}

		r := newRecord(s.Name(), raw)
		r.Title = strings.Join(it.Title, "; ")
		r.Year = it.Issued.year()
		if len(it.ContainerTitle) > 0 {
			r.Venue = it.ContainerTitle[0]
		}
		r.URLPage = it.URL
		r.Identifiers.Set(types.IDDOI, bareDOI(it.DOI))
		r.RawAuthors = append(r.RawAuthors, it.Author...)
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

type crossrefItem struct {
	Type           string         `json:"type"`
	Title          []string       `json:"title"`
	ContainerTitle []string       `json:"container-title"`
	Author         []types.Author `json:"author"`
	DOI            string         `json:"DOI"`
	URL            string         `json:"URL"`
	Issued         crossrefDate   `json:"issued"`
}

// crossrefDate holds date-parts such as [[2021, 3, 14]]. Parts may be null
// when the date is unknown.
type crossrefDate struct {
	DateParts [][]*int `json:"date-parts"`
}

func (d crossrefDate) year() *int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == nil {
		return nil
	}
	y := *d.DateParts[0][0]
	if y <= 0 {
		return nil
	}
	return &y
}
