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

// halBase is the HAL Solr search endpoint. Declared as a var so tests can
// substitute an httptest server.
var halBase = "https://api.archives-ouvertes.fr/search/halshs/"

var halFields = []string{
	"title_s", "abstract_s", "authFullName_s", "docid", "doiId_s",
	"producedDateY_i", "uri_s", "fileMain_s",
}

// HAL queries the French open archive.
type HAL struct {
	Client *httputil.Client
}

// Name returns the adapter identifier.
func (s *HAL) Name() string { return "hal" }

// Search matches the query against titles and abstracts.
func (s *HAL) Search(ctx context.Context, req Request) ([]types.Record, error) {
	params := url.Values{
		"q":    {fmt.Sprintf("(title_t:(%s)) OR (abstract_s:(%s))", req.Query, req.Query)},
		"rows": {strconv.Itoa(req.limit())},
		"fl":   {strings.Join(halFields, ",")},
		"sort": {"score desc"},
		"wt":   {"json"},
	}
	if !req.Years.IsZero() {
		from, to := "*", "*"
		if req.Years.From != 0 {
			from = strconv.Itoa(req.Years.From)
		}
		if req.Years.To != 0 {
			to = strconv.Itoa(req.Years.To)
		}
		params.Set("fq", fmt.Sprintf("producedDateY_i:[%s TO %s]", from, to))
	}

	var resp struct {
		Response struct {
			Docs []json.RawMessage `json:"docs"`
		} `json:"response"`
	}
	if err := s.Client.GetJSON(ctx, halBase+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("HAL API request: %w", err)
	}

	recs := make([]types.Record, 0, len(resp.Response.Docs))
	for _, raw := range resp.Response.Docs {
		var d halDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("parsing HAL document: %w", err)
		}

		r := newRecord(s.Name(), raw)
		r.Title = d.Title.First()
		r.Abstract = d.Abstract.First()
		if d.Year > 0 {
			r.Year = types.IntPtr(d.Year)
		}
		r.Venue = "HAL"
		r.URLPage = d.URI.First()
		r.URLPDF = d.FileMain.First()
		r.Identifiers.Set(types.IDDOI, bareDOI(d.DOI.First()))
		r.Identifiers.Set(types.IDHAL, string(d.DocID))
		for _, name := range d.Authors {
			r.RawAuthors = append(r.RawAuthors, types.Author{Plain: name})
		}
		recs = append(recs, r)
	}
	return finish(recs, req), nil
}

type halDoc struct {
	Title    stringList  `json:"title_s"`
	Abstract stringList  `json:"abstract_s"`
	Authors  stringList  `json:"authFullName_s"`
	DocID    looseString `json:"docid"`
	DOI      stringList  `json:"doiId_s"`
	Year     int         `json:"producedDateY_i"`
	URI      stringList  `json:"uri_s"`
	FileMain stringList  `json:"fileMain_s"`
}
