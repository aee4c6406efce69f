package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pdiddy/research-agent/internal/catalog"
	"github.com/pdiddy/research-agent/internal/observability"
	"github.com/pdiddy/research-agent/internal/pipeline"
	"github.com/pdiddy/research-agent/internal/score"
	"github.com/pdiddy/research-agent/internal/sources"
	"github.com/pdiddy/research-agent/pkg/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect <topic>",
	Short: "Collect, deduplicate, score and save papers for a topic",
	Long: `Collect queries every enabled source for the topic, merges the results in
source order, drops duplicates (first occurrence wins), scores each record for
relevance and writes the survivors under <outdir>/<topic-slug>/.

Failing sources are reported as warnings and never abort the run. With
--incremental each record is written as soon as it is scored and listed in
index_draft.jsonl; index.jsonl is always the authoritative final list.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	addCollectFlags(collectCmd.Flags())
	rootCmd.AddCommand(collectCmd)
}

// addCollectFlags defines the collect flags on f and binds the ones that
// mirror config keys.
func addCollectFlags(f *pflag.FlagSet) {
	f.String("years", "", "publication years: YYYY, YYYY-YYYY, YYYY- or -YYYY (inclusive)")
	f.Int("per-source", defaultPerSource, "maximum results per source")
	f.String("outdir", defaultOutDir, "output directory")
	f.String("ollama-model", "", "local Ollama model for relevance scoring (e.g. llama3.1:8b); empty disables")
	f.String("ollama-host", score.DefaultOllamaHost, "Ollama endpoint")
	f.Float64("min-score", 0, "drop papers scoring below this value [0..1]")
	f.Int("max-papers", 0, "cap the final list after sorting (0 = no cap)")
	f.Bool("incremental", false, "write files as records are scored (draft index)")
	f.Bool("no-export", false, "skip BibTeX, CSL and bundle exports")
	f.Int("concurrency", 0, "sources queried at once (0 or 1 = sequential)")
	f.Duration("source-timeout", 3*time.Minute, "time limit for one source, retries included")
	f.Duration("deadline", 0, "time limit for the whole run (0 = none)")
	f.Float64("rate-limit", 0, "requests per second per source (0 = unlimited)")
	f.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	for _, sf := range sourceFlags {
		f.Bool(sf.flag, false, sf.usage)
	}

	bindCollectFlags(f)
}

func runCollect(cmd *cobra.Command, args []string) error {
	topic := args[0]
	cfg, err := collectConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if deadline, _ := cmd.Flags().GetDuration("deadline"); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	metrics := observability.NewMetrics()
	srcs := sources.Enabled(cfg.Sources, sources.Options{
		HTTP: cfg.HTTP,
		Log:  logger,
		OnRetry: func(source string, attempt int, err error) {
			metrics.RecordRetry(source)
		},
	})
	if len(srcs) == 0 {
		return fmt.Errorf("no sources enabled")
	}

	p := &pipeline.Pipeline{
		Sources: srcs,
		Scorer:  newScorer(cfg, metrics),
		Log:     logger,
		Metrics: metrics,
	}

	cat, err := catalog.Open(filepath.Join(cfg.Persist.OutDir, catalog.DBFile))
	if err != nil {
		logger.Warn().Err(err).Msg("run catalog unavailable")
	} else {
		defer cat.Close()
		p.Catalog = cat
	}

	rep, err := p.Run(ctx, topic, cfg)
	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		if merr := metrics.WriteTextfile(path); merr != nil {
			logger.Warn().Err(merr).Msg("could not write metrics")
		}
	}
	if err != nil {
		return err
	}

	for _, w := range rep.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if rep.NoResults {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Collected %d record(s), %d unique, %d duplicate(s) removed.\n", rep.Collected, rep.Unique, rep.Duplicates)
	fmt.Printf("Saved %d item(s) -> %s\n", len(rep.Final), rep.Dir)
	return nil
}

// newScorer returns the baseline scorer, with a cached Ollama model on top
// when one is configured.
func newScorer(cfg types.CollectConfig, metrics *observability.Metrics) *score.Scorer {
	s := &score.Scorer{Log: logger, Metrics: metrics}
	if cfg.Scoring.OllamaModel != "" {
		s.External = score.NewCached(score.NewOllama(cfg.Scoring, cfg.HTTP, logger), cfg.Scoring.CacheSize)
	}
	return s
}
