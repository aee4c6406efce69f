// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Strategy persists a stream of scored records. Begin prepares the topic
// directory, Add receives each record as it is scored, and Finish writes
// the final index and returns the final list. Abort releases resources
// after a failed run. Add and Finish must not be called concurrently.
type Strategy interface {
	Begin() error
	Add(rec types.Record) error
	Finish() (Result, error)
	Abort() error
	Mode() types.PersistMode
}

// Result describes what a strategy wrote.
type Result struct {
	// Final is the filtered, sorted, truncated list in index order.
	Final []types.Record

	// Entries are the lines of the final index.
	Entries []types.IndexEntry

	// Written counts record files written during the run.
	Written int
}

// Options carries the collaborators shared by both strategies.
type Options struct {
	Log     zerolog.Logger
	Metrics *observability.Metrics
}

// New returns the strategy for cfg.Mode writing under layout.
func New(layout Layout, cfg types.PersistConfig, opts Options) (Strategy, error) {
	b := base{layout: layout, minScore: cfg.MinScore, maxPapers: cfg.MaxPapers, log: opts.Log, metrics: opts.Metrics}
	switch cfg.Mode {
	case types.ModeBatch, "":
		return &Batch{base: b}, nil
	case types.ModeIncremental:
		return &Incremental{base: b}, nil
	default:
		return nil, fmt.Errorf("unknown persistence mode %q", cfg.Mode)
	}
}

type base struct {
	layout    Layout
	minScore  float64
	maxPapers int
	log       zerolog.Logger
	metrics   *observability.Metrics

	records []types.Record
}

func (b *base) mkdirs() error {
	if err := os.MkdirAll(b.layout.PapersDir(), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}

// reset clears the outputs of an earlier run on the same topic: the final
// index is truncated and the manifest removed, so a run that fails before
// Finish leaves an empty index rather than a stale one. Record files are
// kept. Paths in stale are removed too.
func (b *base) reset(stale ...string) error {
	if err := os.WriteFile(b.layout.IndexPath(), nil, 0o644); err != nil {
		return fmt.Errorf("truncating index: %w", err)
	}
	for _, path := range append([]string{b.layout.ManifestPath()}, stale...) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// selectFinal computes the final list from every record added.
func (b *base) selectFinal() []types.Record {
	return Select(b.records, b.minScore, b.maxPapers)
}

// finalize writes final as the final index.
func (b *base) finalize(final []types.Record) (Result, error) {
	entries := make([]types.IndexEntry, len(final))
	for i, r := range final {
		entries[i] = Entry(r)
	}
	if err := writeIndex(b.layout.IndexPath(), entries); err != nil {
		return Result{}, err
	}
	return Result{Final: final, Entries: entries}, nil
}

// Batch holds every record until Finish, then writes the files of the
// final list and the index in one pass.
type Batch struct {
	base
}

func (s *Batch) Mode() types.PersistMode { return types.ModeBatch }

// Begin creates the directories and clears the previous run's index,
// manifest and draft index.
func (s *Batch) Begin() error {
	if err := s.mkdirs(); err != nil {
		return err
	}
	return s.reset(s.layout.DraftIndexPath())
}

func (s *Batch) Add(rec types.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *Batch) Abort() error { return nil }

func (s *Batch) Finish() (Result, error) {
	final := s.selectFinal()
	for _, r := range final {
		if _, err := writeRecord(s.layout, r); err != nil {
			return Result{}, err
		}
	}
	s.metrics.RecordPersisted(string(types.ModeBatch), len(final))

	res, err := s.finalize(final)
	if err != nil {
		return Result{}, err
	}
	res.Written = len(final)
	s.log.Info().Int("saved", len(res.Final)).Str("index", s.layout.IndexPath()).Msg("wrote final index")
	return res, nil
}

// Incremental writes each record that clears the score threshold as soon
// as it arrives and appends it to the draft index. Finish writes the final
// index without rewriting files; records cut by max_papers keep their file
// but are absent from the final index, which is authoritative.
type Incremental struct {
	base
	draft   *indexWriter
	written int
}

func (s *Incremental) Mode() types.PersistMode { return types.ModeIncremental }

// Begin creates the directories, clears the previous run's index and
// manifest, and truncates the draft index.
func (s *Incremental) Begin() error {
	if err := s.mkdirs(); err != nil {
		return err
	}
	if err := s.reset(); err != nil {
		return err
	}
	draft, err := createIndex(s.layout.DraftIndexPath(), true)
	if err != nil {
		return err
	}
	s.draft = draft
	return nil
}

func (s *Incremental) Add(rec types.Record) error {
	if s.draft == nil {
		return fmt.Errorf("incremental writer used before Begin")
	}
	s.records = append(s.records, rec)
	if rec.ScoreValue() < s.minScore {
		return nil
	}
	if _, err := writeRecord(s.layout, rec); err != nil {
		return err
	}
	if err := s.draft.Append(Entry(rec)); err != nil {
		return err
	}
	s.written++
	s.metrics.RecordPersisted(string(types.ModeIncremental), 1)
	s.log.Debug().Int("count", s.written).Msg("incrementally saved")
	return nil
}

func (s *Incremental) Finish() (Result, error) {
	if err := s.draft.Close(); err != nil {
		return Result{}, err
	}
	res, err := s.finalize(s.selectFinal())
	if err != nil {
		return Result{}, err
	}
	res.Written = s.written
	s.log.Info().
		Int("saved", len(res.Final)).
		Int("drafted", s.written).
		Str("index", s.layout.IndexPath()).
		Msg("wrote final index")
	return res, nil
}

// Abort closes the draft index after a failed run, leaving it as written.
func (s *Incremental) Abort() error {
	return s.draft.Close()
}
