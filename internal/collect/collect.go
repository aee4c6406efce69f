// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect fans a query out to the enabled source adapters and
// concatenates their results. A failing adapter contributes nothing and is
// reported as a warning; it never aborts the collection.
package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/internal/sources"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Options controls how adapters are invoked.
type Options struct {
	// Concurrency bounds how many adapters run at once. Zero or one runs
	// them one after another in enablement order.
	Concurrency int

	// SourceTimeout caps one adapter call, retries included. Zero means no
	// per-source cap beyond the parent context.
	SourceTimeout time.Duration

	// InterSourceDelay is waited between launching consecutive adapters.
	InterSourceDelay time.Duration

	Log     zerolog.Logger
	Metrics *observability.Metrics
}

// Warning describes an adapter that contributed no records because it
// failed. Skipped is set for configuration errors, where no request was
// made.
type Warning struct {
	Source  string
	Err     error
	Skipped bool
}

func (w Warning) String() string {
	if w.Skipped {
		return fmt.Sprintf("source %s skipped: %v", w.Source, w.Err)
	}
	return fmt.Sprintf("source %s failed: %v", w.Source, w.Err)
}

// Output is the concatenated result of one collection.
type Output struct {
	// Records holds every adapter's records, grouped by adapter in
	// enablement order.
	Records []types.Record

	// Warnings lists failed adapters in enablement order.
	Warnings []Warning

	// Counts maps each adapter that succeeded to its record count.
	Counts map[string]int
}

// Empty reports whether no adapter returned any record.
func (o Output) Empty() bool { return len(o.Records) == 0 }

type slot struct {
	records []types.Record
	err     error
}

// Collect invokes every adapter in srcs with req. Results are concatenated
// in the order of srcs regardless of completion order.
func Collect(ctx context.Context, srcs []sources.Source, req sources.Request, opts Options) Output {
	slots := make([]slot, len(srcs))

	g := new(errgroup.Group)
	g.SetLimit(max(opts.Concurrency, 1))

	for i, src := range srcs {
		if i > 0 && opts.InterSourceDelay > 0 {
			if err := sleep(ctx, opts.InterSourceDelay); err != nil {
				for j := i; j < len(srcs); j++ {
					slots[j].err = err
				}
				break
			}
		}
		i, src := i, src
		g.Go(func() error {
			slots[i] = run(ctx, src, req, opts)
			return nil
		})
	}
	_ = g.Wait()

	out := Output{Counts: make(map[string]int, len(srcs))}
	for i, s := range slots {
		name := srcs[i].Name()
		if s.err != nil {
			w := Warning{Source: name, Err: s.err, Skipped: sources.IsConfigError(s.err)}
			out.Warnings = append(out.Warnings, w)
			continue
		}
		out.Counts[name] = len(s.records)
		out.Records = append(out.Records, s.records...)
	}
	return out
}

// run calls one adapter under its own timeout and records the outcome.
func run(ctx context.Context, src sources.Source, req sources.Request, opts Options) slot {
	name := src.Name()
	log := opts.Log.With().Str("source", name).Logger()

	if opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.SourceTimeout)
		defer cancel()
	}

	log.Info().Msg("querying source")
	start := time.Now()
	recs, err := src.Search(ctx, req)
	elapsed := time.Since(start)

	switch {
	case sources.IsConfigError(err):
		log.Warn().Err(err).Msg("source skipped")
		opts.Metrics.RecordSourceSearch(name, observability.OutcomeSkipped, 0, elapsed)
		return slot{err: err}
	case err != nil:
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("source failed")
		opts.Metrics.RecordSourceSearch(name, observability.OutcomeFailed, 0, elapsed)
		return slot{err: err}
	}

	log.Info().Int("count", len(recs)).Dur("elapsed", elapsed).Msg("source returned records")
	opts.Metrics.RecordSourceSearch(name, observability.OutcomeOK, len(recs), elapsed)
	return slot{records: recs}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
