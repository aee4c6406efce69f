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

// pubmedBase is the NCBI E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var pubmedBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMed queries NCBI E-utilities: esearch for PMIDs, then esummary for
// their metadata. Summaries carry no abstracts.
type PubMed struct {
	Client *httputil.Client
	// Email identifies the caller to NCBI.
	Email string
}

// Name returns the adapter identifier.
func (s *PubMed) Name() string { return "pubmed" }

// Search resolves the query to PMIDs and fetches their summaries.
func (s *PubMed) Search(ctx context.Context, req Request) ([]types.Record, error) {
	ids, err := s.esearch(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := s.esummary(ctx, ids)
	if err != nil {
		return nil, err
	}

	recs := make([]types.Record, 0, len(ids))
	for _, pmid := range ids {
		raw, ok := summaries[pmid]
		if !ok {
			continue
		}
		var it pubmedSummary
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("parsing PubMed summary %s: %w", pmid, err)
		}

		r := newRecord(s.Name(), raw)
		r.Title = strings.Trim(it.Title, ". ")
		r.Year = leadingYear(it.PubDate)
		r.Venue = it.Source
		r.URLPage = "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
		r.Identifiers.Set(types.IDPubMed, pmid)
		for _, aid := range it.ArticleIDs {
			if aid.IDType == "doi" {
				r.Identifiers.Set(types.IDDOI, bareDOI(aid.Value))
				break
			}
		}
		for _, a := range it.Authors {
			r.RawAuthors = append(r.RawAuthors, types.Author{Name: a.Name})
		}
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

func (s *PubMed) esearch(ctx context.Context, req Request) ([]string, error) {
	term := req.Query
	if !req.Years.IsZero() {
		from, to := "1900", "3000"
		if req.Years.From != 0 {
			from = strconv.Itoa(req.Years.From)
		}
		if req.Years.To != 0 {
			to = strconv.Itoa(req.Years.To)
		}
		term = fmt.Sprintf("(%s) AND (%s[dp] : %s[dp])", req.Query, from, to)
	}

	params := url.Values{
		"db":      {"pubmed"},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(req.limit())},
		"term":    {term},
	}
	if s.Email != "" {
		params.Set("email", s.Email)
	}

	var resp struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := s.Client.GetJSON(ctx, pubmedBase+"/esearch.fcgi?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("PubMed esearch: %w", err)
	}
	return resp.ESearchResult.IDList, nil
}

func (s *PubMed) esummary(ctx context.Context, ids []string) (map[string]json.RawMessage, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"retmode": {"json"},
		"id":      {strings.Join(ids, ",")},
	}
	if s.Email != "" {
		params.Set("email", s.Email)
	}

	var resp struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := s.Client.GetJSON(ctx, pubmedBase+"/esummary.fcgi?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("PubMed esummary: %w", err)
	}
	return resp.Result, nil
}

type pubmedSummary struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Source  string `json:"source"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}
