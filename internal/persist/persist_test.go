// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/pkg/types"
)

func rec(title, doi string, score float64, year int) types.Record {
	r := types.Record{
		Title:       title,
		Identifiers: types.Identifiers{},
		Source:      "openalex",
		Score:       types.FloatPtr(score),
	}
	if doi != "" {
		r.Identifiers.Set(types.IDDOI, doi)
	}
	if year != 0 {
		r.Year = types.IntPtr(year)
	}
	return r
}

// tenRecords has scores [0.9,0.1,0.6,0.4,0.5,0.7,0.2,0.5,0.3,0.8]; the two
// 0.5 records differ by year so the tie-break is visible.
func tenRecords() []types.Record {
	scores := []float64{0.9, 0.1, 0.6, 0.4, 0.5, 0.7, 0.2, 0.5, 0.3, 0.8}
	years := []int{2020, 2020, 2020, 2020, 2019, 2020, 2020, 2021, 2020, 2020}
	out := make([]types.Record, len(scores))
	for i := range scores {
		out[i] = rec("Paper "+string(rune('A'+i)), "10.1/p"+string(rune('a'+i)), scores[i], years[i])
	}
	return out
}

func run(t *testing.T, outDir string, cfg types.PersistConfig, recs []types.Record) Result {
	t.Helper()
	s, err := New(NewLayout(outDir, "graph neural networks"), cfg, Options{Log: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, s.Begin())
	for _, r := range recs {
		require.NoError(t, s.Add(r))
	}
	res, err := s.Finish()
	require.NoError(t, err)
	return res
}

func titles(entries []types.IndexEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func papers(t *testing.T, l Layout) []string {
	t.Helper()
	ents, err := os.ReadDir(l.PapersDir())
	require.NoError(t, err)
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}
	return names
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Graph Neural Networks", "graph-neural-networks"},
		{"  LLM   agents: a survey!  ", "llm-agents-a-survey"},
		{"COVID-19 vaccines", "covid-19-vaccines"},
		{"-edge-", "edge"},
		{"", "topic"},
		{"¿¡!!", "topic"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}

func TestItemID(t *testing.T) {
	a := rec("First title", "10.1/abc", 0.1, 0)
	b := rec("Another title", "10.1/abc", 0.9, 2020)
	assert.Equal(t, ItemID(a), ItemID(b), "same anchor, same identifier")
	assert.Regexp(t, "^[0-9a-f]{16}$", ItemID(a))

	titleOnly := rec("Only a title", "", 0, 0)
	assert.Equal(t, ItemID(titleOnly), ItemID(rec("Only a title", "", 0.7, 1999)))
	assert.NotEqual(t, ItemID(titleOnly), ItemID(a))

	arxiv := rec("x", "", 0, 0)
	arxiv.Identifiers.Set(types.IDArxiv, "2301.00001")
	arxiv.Identifiers.Set(types.IDPubMed, "123")
	pubmed := rec("y", "", 0, 0)
	pubmed.Identifiers.Set(types.IDPubMed, "123")
	assert.NotEqual(t, ItemID(arxiv), ItemID(pubmed), "arxiv_id outranks pubmed_id")
}

func TestSelect_ScenarioB(t *testing.T) {
	got := Select(tenRecords(), 0.5, 0)

	var scores []float64
	var names []string
	for _, r := range got {
		scores = append(scores, r.ScoreValue())
		names = append(names, r.Title)
	}
	assert.Equal(t, []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.5}, scores)
	assert.Equal(t, []string{"Paper A", "Paper J", "Paper F", "Paper C", "Paper H", "Paper E"}, names,
		"equal scores order by year descending")
}

func TestSelect_ScenarioC(t *testing.T) {
	recs := []types.Record{
		rec("a", "", 0.6, 2020),
		rec("b", "", 0.9, 2020),
		rec("c", "", 0.7, 2020),
		rec("d", "", 0.8, 2020),
		rec("e", "", 0.65, 2020),
	}
	got := Select(recs, 0, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, "d", got[1].Title)
	assert.Equal(t, "c", got[2].Title)
}

func TestSelect_StableAndMissingYear(t *testing.T) {
	recs := []types.Record{
		rec("no year", "", 0.5, 0),
		rec("first", "", 0.5, 2020),
		rec("second", "", 0.5, 2020),
	}
	got := Select(recs, 0, 0)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "second", got[1].Title)
	assert.Equal(t, "no year", got[2].Title)
	assert.Equal(t, "no year", recs[0].Title, "input untouched")
}

func TestBatch_WritesFinalListOnly(t *testing.T) {
	dir := t.TempDir()
	m := observability.NewMetrics()
	s, err := New(NewLayout(dir, "Graph Neural Networks"), types.PersistConfig{MinScore: 0.5, Mode: types.ModeBatch},
		Options{Log: zerolog.Nop(), Metrics: m})
	require.NoError(t, err)
	require.NoError(t, s.Begin())
	for _, r := range tenRecords() {
		require.NoError(t, s.Add(r))
	}
	res, err := s.Finish()
	require.NoError(t, err)

	l := NewLayout(dir, "Graph Neural Networks")
	assert.Equal(t, filepath.Join(dir, "graph-neural-networks"), l.Dir)
	assert.Len(t, papers(t, l), 6)
	assert.Equal(t, 6, res.Written)
	assert.Equal(t, 6.0, testutil.ToFloat64(m.RecordsPersisted.WithLabelValues("batch")))
	assert.NoFileExists(t, l.DraftIndexPath())

	entries, err := ReadIndex(l.IndexPath())
	require.NoError(t, err)
	assert.Equal(t, res.Entries, entries)
	assert.Equal(t, []string{"Paper A", "Paper J", "Paper F", "Paper C", "Paper H", "Paper E"}, titles(entries))
}

func TestIndexEntryFields(t *testing.T) {
	dir := t.TempDir()
	r := rec("Graph nets", "10.1/abc", 0.75, 2022)
	r.Identifiers.Set(types.IDOpenAlex, "https://openalex.org/W1")
	r.URLPage = "https://doi.org/10.1/abc"
	run(t, dir, types.PersistConfig{Mode: types.ModeBatch}, []types.Record{r, rec("No ids", "", 0.5, 0)})

	data, err := os.ReadFile(NewLayout(dir, "graph neural networks").IndexPath())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, ItemID(r), first["id"])
	assert.Equal(t, "10.1/abc", first["doi"])
	assert.Equal(t, "https://openalex.org/W1", first["openalex_id"])
	assert.Equal(t, 2022.0, first["year"])
	assert.Equal(t, 0.75, first["score"])
	assert.Equal(t, "openalex", first["source"])
	for _, k := range []string{"arxiv_id", "pubmed_id", "hal_docid"} {
		v, ok := first[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second["year"])
	assert.Nil(t, second["doi"])
}

func TestRecordFile(t *testing.T) {
	dir := t.TempDir()
	r := rec("Graphs & <Networks>", "10.1/abc", 0.75, 2022)
	r.Authors = []string{"Ada Lovelace"}
	r.SourcePayload = json.RawMessage(`{"id":"W1"}`)
	run(t, dir, types.PersistConfig{Mode: types.ModeBatch}, []types.Record{r})

	l := NewLayout(dir, "graph neural networks")
	data, err := os.ReadFile(l.RecordPath(ItemID(r)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "Graphs & <Networks>"`)
	assert.Contains(t, string(data), "\n  \"score\": 0.75")

	var back types.Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Title, back.Title)
	assert.Equal(t, []string{"Ada Lovelace"}, back.Authors)
	assert.Equal(t, "10.1/abc", back.Identifiers.Get(types.IDDOI))
	assert.JSONEq(t, `{"id":"W1"}`, string(back.SourcePayload))

	matches, err := filepath.Glob(filepath.Join(l.PapersDir(), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no temp files left behind")
}

func TestIncremental_DraftAndFinal(t *testing.T) {
	dir := t.TempDir()
	l := NewLayout(dir, "graph neural networks")
	require.NoError(t, os.MkdirAll(l.Dir, 0o755))
	require.NoError(t, os.WriteFile(l.DraftIndexPath(), []byte("{\"id\":\"stale\"}\n"), 0o644))

	res := run(t, dir, types.PersistConfig{MinScore: 0.5, Mode: types.ModeIncremental}, tenRecords())

	draft, err := ReadIndex(l.DraftIndexPath())
	require.NoError(t, err)
	assert.Equal(t, []string{"Paper A", "Paper C", "Paper E", "Paper F", "Paper H", "Paper J"}, titles(draft),
		"draft is truncated then appended in arrival order")

	final, err := ReadIndex(l.IndexPath())
	require.NoError(t, err)
	assert.Equal(t, []string{"Paper A", "Paper J", "Paper F", "Paper C", "Paper H", "Paper E"}, titles(final))
	assert.Equal(t, 6, res.Written)
}

func TestIncremental_OrphanedFilesPreserved(t *testing.T) {
	dir := t.TempDir()
	l := NewLayout(dir, "graph neural networks")
	res := run(t, dir, types.PersistConfig{MinScore: 0.5, MaxPapers: 2, Mode: types.ModeIncremental}, tenRecords())

	final, err := ReadIndex(l.IndexPath())
	require.NoError(t, err)
	assert.Equal(t, []string{"Paper A", "Paper J"}, titles(final))
	assert.Len(t, res.Final, 2)

	// Files cut by max_papers stay on disk; the final index is authoritative.
	assert.Len(t, papers(t, l), 6)
	draft, err := ReadIndex(l.DraftIndexPath())
	require.NoError(t, err)
	assert.Len(t, draft, 6)

	inIndex := map[string]bool{}
	for _, e := range final {
		inIndex[e.ID] = true
	}
	orphans := 0
	for _, name := range papers(t, l) {
		if !inIndex[strings.TrimSuffix(name, ".json")] {
			orphans++
		}
	}
	assert.Equal(t, 4, orphans)
}

func TestIncrementalBatchEquivalence(t *testing.T) {
	cases := []types.PersistConfig{
		{MinScore: 0.5},
		{MinScore: 0, MaxPapers: 3},
		{MinScore: 0.95},
		{MinScore: 0.3, MaxPapers: 4},
	}
	for _, cfg := range cases {
		batchDir, incDir := t.TempDir(), t.TempDir()

		cfg.Mode = types.ModeBatch
		b := run(t, batchDir, cfg, tenRecords())
		cfg.Mode = types.ModeIncremental
		i := run(t, incDir, cfg, tenRecords())

		assert.Equal(t, b.Entries, i.Entries)
		bData, err := os.ReadFile(NewLayout(batchDir, "graph neural networks").IndexPath())
		require.NoError(t, err)
		iData, err := os.ReadFile(NewLayout(incDir, "graph neural networks").IndexPath())
		require.NoError(t, err)
		assert.Equal(t, string(bData), string(iData))
	}
}

func TestEmptyRunWritesEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	res := run(t, dir, types.PersistConfig{Mode: types.ModeIncremental}, nil)
	assert.Empty(t, res.Final)

	l := NewLayout(dir, "graph neural networks")
	data, err := os.ReadFile(l.IndexPath())
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.FileExists(t, l.DraftIndexPath())
}

func TestBegin_ClearsPreviousRun(t *testing.T) {
	dir := t.TempDir()
	l := NewLayout(dir, "graph neural networks")
	run(t, dir, types.PersistConfig{Mode: types.ModeIncremental}, tenRecords())
	require.NoError(t, WriteManifest(l.ManifestPath(), Manifest{RunID: "earlier"}))
	require.FileExists(t, l.DraftIndexPath())

	for _, mode := range []types.PersistMode{types.ModeIncremental, types.ModeBatch} {
		t.Run(string(mode), func(t *testing.T) {
			s, err := New(l, types.PersistConfig{Mode: mode}, Options{Log: zerolog.Nop()})
			require.NoError(t, err)
			require.NoError(t, s.Begin())
			defer s.Abort()

			data, err := os.ReadFile(l.IndexPath())
			require.NoError(t, err)
			assert.Empty(t, data)
			assert.NoFileExists(t, l.ManifestPath())
			assert.Len(t, papers(t, l), 10, "record files survive")
			if mode == types.ModeBatch {
				assert.NoFileExists(t, l.DraftIndexPath())
			}
		})
	}
}

func TestIdentifierStableAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	l := NewLayout(dir, "graph neural networks")
	cfg := types.PersistConfig{Mode: types.ModeBatch}
	run(t, dir, cfg, tenRecords())
	first := papers(t, l)
	run(t, dir, cfg, tenRecords())
	assert.Equal(t, first, papers(t, l))
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New(NewLayout(t.TempDir(), "x"), types.PersistConfig{Mode: "streaming"}, Options{})
	assert.Error(t, err)
}

func TestIncremental_AddBeforeBegin(t *testing.T) {
	s, err := New(NewLayout(t.TempDir(), "x"), types.PersistConfig{Mode: types.ModeIncremental}, Options{Log: zerolog.Nop()})
	require.NoError(t, err)
	assert.Error(t, s.Add(rec("a", "", 1, 0)))
	assert.NoError(t, s.Abort())
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topic", LockFile)

	l1, err := Lock(path)
	require.NoError(t, err)

	_, err = Lock(path)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, l1.Unlock())
	require.NoError(t, l1.Unlock())

	l2, err := Lock(path)
	require.NoError(t, err)
	require.NoError(t, l2.Unlock())
}

func TestManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := Manifest{
		RunID:     "r1",
		Query:     "graph neural networks",
		Years:     "2020-2024",
		PerSource: 50,
		MinScore:  0.5,
		Mode:      "incremental",
		Sources:   []string{"openalex", "arxiv"},
		Counts: Counts{
			Collected: 10, Unique: 8, Duplicates: 2, Saved: 5, Written: 6,
			BySource: map[string]int{"openalex": 6, "arxiv": 4},
		},
		Warnings:   []string{"pubmed: HTTP 503"},
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
	require.NoError(t, WriteManifest(path, m))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "query: graph neural networks")
	assert.Contains(t, string(data), "duplicates: 2")

	back, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.Counts, back.Counts)
	assert.Equal(t, m.Sources, back.Sources)
	assert.True(t, m.StartedAt.Equal(back.StartedAt))
}
