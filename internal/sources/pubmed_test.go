// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

const pubmedSummaryFixture = `{
  "result": {
    "uids": ["111", "222"],
    "111": {
      "uid": "111",
      "title": "Deep learning for protein folding.",
      "pubdate": "2022 Mar 4",
      "source": "Nature",
      "authors": [{"name": "Smith J", "authtype": "Author"}, {"name": ""}],
      "articleids": [
        {"idtype": "pubmed", "value": "111"},
        {"idtype": "doi", "value": "10.1038/xyz"}
      ]
    },
    "222": {
      "uid": "222",
      "title": "Protein structure",
      "pubdate": "",
      "source": "Cell",
      "authors": [],
      "articleids": []
    }
  }
}`

func TestPubMedSearch(t *testing.T) {
	var searchQuery, summaryQuery url.Values
	ts := newTestServer(t, &pubmedBase, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			searchQuery = r.URL.Query()
			writeJSON(w, `{"esearchresult": {"idlist": ["111", "222", "333"]}}`)
		case "/esummary.fcgi":
			summaryQuery = r.URL.Query()
			writeJSON(w, pubmedSummaryFixture)
		default:
			http.NotFound(w, r)
		}
	})

	s := &PubMed{Client: testClient(ts), Email: "me@example.org"}
	recs, err := s.Search(context.Background(), Request{
		Query: "protein folding",
		Limit: 20,
		Years: types.YearRange{From: 2020},
	})
	require.NoError(t, err)

	assert.Equal(t, "(protein folding) AND (2020[dp] : 3000[dp])", searchQuery.Get("term"))
	assert.Equal(t, "20", searchQuery.Get("retmax"))
	assert.Equal(t, "json", searchQuery.Get("retmode"))
	assert.Equal(t, "me@example.org", searchQuery.Get("email"))
	assert.Equal(t, "111,222,333", summaryQuery.Get("id"))

	require.Len(t, recs, 2, "PMID without a summary is skipped")

	r := recs[0]
	assert.Equal(t, "pubmed", r.Source)
	assert.Equal(t, "Deep learning for protein folding", r.Title)
	assert.Empty(t, r.Abstract)
	assert.Equal(t, 2022, r.YearValue())
	assert.Equal(t, "Nature", r.Venue)
	assert.Equal(t, "111", r.Identifiers.Get(types.IDPubMed))
	assert.Equal(t, "10.1038/xyz", r.Identifiers.Get(types.IDDOI))
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", r.URLPage)
	assert.Equal(t, []types.Author{{Name: "Smith J"}, {Name: ""}}, r.RawAuthors)

	assert.Nil(t, recs[1].Year)
	assert.Equal(t, "", recs[1].Identifiers.Get(types.IDDOI))
}

func TestPubMedSearch_NoHitsSkipsSummary(t *testing.T) {
	var summaries int32
	ts := newTestServer(t, &pubmedBase, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/esummary.fcgi" {
			atomic.AddInt32(&summaries, 1)
		}
		writeJSON(w, `{"esearchresult": {"idlist": []}}`)
	})

	s := &PubMed{Client: testClient(ts)}
	recs, err := s.Search(context.Background(), Request{Query: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(0), atomic.LoadInt32(&summaries))
}

func TestPubMedSearch_PlainTermWithoutYears(t *testing.T) {
	var term string
	ts := newTestServer(t, &pubmedBase, func(w http.ResponseWriter, r *http.Request) {
		term = r.URL.Query().Get("term")
		writeJSON(w, `{"esearchresult": {"idlist": []}}`)
	})

	s := &PubMed{Client: testClient(ts)}
	_, err := s.Search(context.Background(), Request{Query: "cancer", Years: types.YearRange{To: 2010}})
	require.NoError(t, err)
	assert.Equal(t, "(cancer) AND (1900[dp] : 2010[dp])", term)
}
