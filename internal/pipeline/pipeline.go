// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one collection end to end: collect from the
// enabled sources, normalize and deduplicate, score, persist, export, and
// record the run in the catalog.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-agent/internal/catalog"
	"github.com/pdiddy/research-agent/internal/collect"
	"github.com/pdiddy/research-agent/internal/dedup"
	"github.com/pdiddy/research-agent/internal/export"
	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/internal/persist"
	"github.com/pdiddy/research-agent/internal/score"
	"github.com/pdiddy/research-agent/internal/sources"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Pipeline holds the collaborators of a run. Sources must be in enablement
// order.
type Pipeline struct {
	Sources []sources.Source

	// Scorer defaults to a baseline-only scorer.
	Scorer *score.Scorer

	// Catalog is optional; when nil the run is not cataloged.
	Catalog *catalog.Catalog

	Log     zerolog.Logger
	Metrics *observability.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// Report summarizes a finished run.
type Report struct {
	RunID string
	Dir   string

	Collected  int
	Unique     int
	Duplicates int

	// Final is the list in final index order.
	Final   []types.Record
	Entries []types.IndexEntry

	// Written counts record files written.
	Written int

	Warnings []collect.Warning
	Exports  []string

	// NoResults is set when no source returned a record. The run still
	// succeeds and writes an empty index.
	NoResults bool
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run collects query under cfg and writes the results. Source failures
// become warnings; persistence failures abort the run with an error.
func (p *Pipeline) Run(ctx context.Context, query string, cfg types.CollectConfig) (Report, error) {
	started := p.now()
	rep := Report{RunID: catalog.NewRunID()}
	log := observability.WithRunContext(p.Log, rep.RunID, query)

	layout := persist.NewLayout(cfg.Persist.OutDir, query)
	rep.Dir = layout.Dir
	lock, err := persist.Lock(layout.LockPath())
	if err != nil {
		return rep, err
	}
	defer lock.Unlock()

	out := collect.Collect(ctx, p.Sources, sources.Request{
		Query: query,
		Limit: cfg.PerSource,
		Years: cfg.Years,
	}, collect.Options{
		Concurrency:      cfg.Concurrency,
		SourceTimeout:    cfg.SourceTimeout,
		InterSourceDelay: cfg.InterSourceDelay,
		Log:              log,
		Metrics:          p.Metrics,
	})
	rep.Warnings = out.Warnings
	rep.Collected = len(out.Records)
	rep.NoResults = out.Empty()
	if rep.NoResults {
		log.Warn().Int("warnings", len(out.Warnings)).Msg("no records returned by any source")
	}

	dedup.Normalize(out.Records)
	unique, removed := dedup.Deduplicate(out.Records)
	rep.Unique, rep.Duplicates = len(unique), removed
	p.Metrics.RecordDuplicates(removed)
	log.Info().Int("collected", rep.Collected).Int("unique", rep.Unique).Int("duplicates", removed).Msg("deduplicated")

	strategy, err := persist.New(layout, cfg.Persist, persist.Options{Log: log, Metrics: p.Metrics})
	if err != nil {
		return rep, err
	}
	if err := strategy.Begin(); err != nil {
		return rep, err
	}

	scorer := p.Scorer
	if scorer == nil {
		scorer = &score.Scorer{Log: log, Metrics: p.Metrics}
	}
	for i, rec := range unique {
		res := scorer.Score(ctx, query, rec)
		rec.Score = types.FloatPtr(res.Score)
		if err := strategy.Add(rec); err != nil {
			strategy.Abort()
			return rep, fmt.Errorf("persisting record: %w", err)
		}
		log.Debug().Int("scored", i+1).Int("total", len(unique)).Msg("scored")
	}

	result, err := strategy.Finish()
	if err != nil {
		return rep, fmt.Errorf("finishing %s persistence: %w", strategy.Mode(), err)
	}
	rep.Final, rep.Entries, rep.Written = result.Final, result.Entries, result.Written

	if cfg.Persist.Export {
		paths, err := export.WriteAll(layout.Dir, result.Final)
		if err != nil {
			return rep, fmt.Errorf("writing exports: %w", err)
		}
		rep.Exports = paths
	}

	finished := p.now()
	if err := persist.WriteManifest(layout.ManifestPath(), p.manifest(rep, query, cfg, out, started, finished)); err != nil {
		return rep, err
	}

	if p.Catalog != nil {
		run := catalog.Run{
			ID:         rep.RunID,
			Query:      query,
			Years:      cfg.Years.String(),
			Mode:       string(strategy.Mode()),
			Dir:        layout.Dir,
			Sources:    p.sourceNames(),
			Collected:  rep.Collected,
			Unique:     rep.Unique,
			Duplicates: rep.Duplicates,
			Saved:      len(rep.Final),
			Warnings:   len(rep.Warnings),
			StartedAt:  started,
			FinishedAt: finished,
		}
		if err := p.Catalog.Record(ctx, run, rep.Entries); err != nil {
			log.Warn().Err(err).Msg("could not record run in catalog")
		}
	}

	log.Info().Int("saved", len(rep.Final)).Str("dir", layout.Dir).Msg("run complete")
	return rep, nil
}

func (p *Pipeline) sourceNames() []string {
	names := make([]string, len(p.Sources))
	for i, s := range p.Sources {
		names[i] = s.Name()
	}
	return names
}

func (p *Pipeline) manifest(rep Report, query string, cfg types.CollectConfig, out collect.Output, started, finished time.Time) persist.Manifest {
	m := persist.Manifest{
		RunID:     rep.RunID,
		Query:     query,
		Years:     cfg.Years.String(),
		PerSource: cfg.PerSource,
		MinScore:  cfg.Persist.MinScore,
		MaxPapers: cfg.Persist.MaxPapers,
		Mode:      string(cfg.Persist.Mode),
		Sources:   p.sourceNames(),
		Scorer:    "baseline",
		Counts: persist.Counts{
			Collected:  rep.Collected,
			Unique:     rep.Unique,
			Duplicates: rep.Duplicates,
			Saved:      len(rep.Final),
			Written:    rep.Written,
			BySource:   out.Counts,
		},
		StartedAt:  started,
		FinishedAt: finished,
	}
	if m.Mode == "" {
		m.Mode = string(types.ModeBatch)
	}
	if cfg.Scoring.OllamaModel != "" {
		m.Scorer = "ollama:" + cfg.Scoring.OllamaModel
	}
	for _, w := range rep.Warnings {
		m.Warnings = append(m.Warnings, w.String())
	}
	return m
}
