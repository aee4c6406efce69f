// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <published>2023-01-17T18:00:00Z</published>
    <title>Graph   Neural
      Networks at Scale</title>
    <summary>  We study graph
      neural networks.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name> Grace Hopper </name></author>
    <arxiv:doi>10.1/xyz</arxiv:doi>
    <link href="http://arxiv.org/abs/2301.07041v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v2" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1501.00001v1</id>
    <published>2015-01-01T00:00:00Z</published>
    <title>Old Paper</title>
    <summary>Old.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/hep-th/9901001v1</id>
    <title>Undated Paper</title>
    <summary>No date.</summary>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var got *http.Request
	ts := newTestServer(t, &arxivAPIBase, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFixture))
	})

	s := &Arxiv{Client: testClient(ts)}
	recs, err := s.Search(context.Background(), Request{
		Query: "graph  neural networks",
		Limit: 10,
		Years: types.YearRange{From: 2020},
	})
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "all:graph AND neural AND networks", q.Get("search_query"))
	assert.Equal(t, "10", q.Get("max_results"))
	assert.Equal(t, "relevance", q.Get("sortBy"))

	require.Len(t, recs, 2, "2015 paper filtered, undated paper kept")

	r := recs[0]
	assert.Equal(t, "arxiv", r.Source)
	assert.Equal(t, "Graph Neural Networks at Scale", r.Title)
	assert.Equal(t, "We study graph neural networks.", r.Abstract)
	assert.Equal(t, 2023, r.YearValue())
	assert.Equal(t, "arXiv", r.Venue)
	assert.Equal(t, "2301.07041", r.Identifiers.Get(types.IDArxiv))
	assert.Equal(t, "10.1/xyz", r.Identifiers.Get(types.IDDOI))
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v2", r.URLPage)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v2", r.URLPDF)
	assert.Equal(t, []types.Author{{Name: "Ada Lovelace"}, {Name: "Grace Hopper"}}, r.RawAuthors)
	assert.NotEmpty(t, r.SourcePayload)

	assert.Equal(t, "Undated Paper", recs[1].Title)
	assert.Nil(t, recs[1].Year)
	assert.Equal(t, "hep-th/9901001", recs[1].Identifiers.Get(types.IDArxiv))
}

func TestArxivSearch_EmptyQuery(t *testing.T) {
	s := &Arxiv{}
	_, err := s.Search(context.Background(), Request{Query: "   "})
	assert.Error(t, err)
}

func TestArxivSearch_MalformedFeed(t *testing.T) {
	ts := newTestServer(t, &arxivAPIBase, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<feed><entry>"))
	})

	s := &Arxiv{Client: testClient(ts)}
	_, err := s.Search(context.Background(), Request{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing arXiv response")
}

func TestExtractArxivID(t *testing.T) {
	tests := map[string]string{
		"http://arxiv.org/abs/2301.07041v1":   "2301.07041",
		"http://arxiv.org/abs/2301.07041":     "2301.07041",
		"http://arxiv.org/abs/hep-th/9901001": "hep-th/9901001",
		"http://example.org/other":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, extractArxivID(in), in)
	}
}
