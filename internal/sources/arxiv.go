// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API. arXiv cannot filter by year, so the
// window is applied to the parsed publication date.
type Arxiv struct {
	Client *httputil.Client
}

// Name returns the adapter identifier.
func (s *Arxiv) Name() string { return "arxiv" }

// Search queries arXiv with every query term ANDed together.
func (s *Arxiv) Search(ctx context.Context, req Request) ([]types.Record, error) {
	terms := strings.Fields(req.Query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty arXiv query")
	}

	params := url.Values{
		"search_query": {"all:" + strings.Join(terms, " AND ")},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(req.limit())},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}

	body, err := s.Client.Get(ctx, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	recs := make([]types.Record, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("encoding arXiv entry: %w", err)
		}

		r := newRecord(s.Name(), payload)
		r.Title = collapseSpace(entry.Title)
		r.Abstract = collapseSpace(entry.Summary)
		r.Year = leadingYear(entry.Published)
		r.Venue = "arXiv"
		r.URLPage = strings.TrimSpace(entry.ID)
		r.Identifiers.Set(types.IDArxiv, extractArxivID(entry.ID))
		r.Identifiers.Set(types.IDDOI, bareDOI(entry.DOI))

		for _, link := range entry.Links {
			if link.Title == "pdf" && link.Href != "" {
				r.URLPDF = link.Href
				break
			}
		}
		for _, a := range entry.Authors {
			r.RawAuthors = append(r.RawAuthors, types.Author{Name: strings.TrimSpace(a.Name)})
		}
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id" json:"id"`
	Title     string        `xml:"title" json:"title"`
	Summary   string        `xml:"summary" json:"summary"`
	Published string        `xml:"published" json:"published"`
	DOI       string        `xml:"http://arxiv.org/schemas/atom doi" json:"doi,omitempty"`
	Authors   []arxivAuthor `xml:"author" json:"authors"`
	Links     []arxivLink   `xml:"link" json:"links"`
}

type arxivAuthor struct {
	Name string `xml:"name" json:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr" json:"href"`
	Title string `xml:"title,attr" json:"title,omitempty"`
	Type  string `xml:"type,attr" json:"type,omitempty"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
