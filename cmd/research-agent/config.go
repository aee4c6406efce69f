package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/research-agent/internal/score"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	defaultUserAgent   = "research-agent/0.4"
	defaultHTTPTimeout = 40 * time.Second
	defaultPerSource   = 50
	defaultOutDir      = "results"
)

// setDefaults registers the configuration defaults. Config file keys
// follow the yaml tags of types.CollectConfig.
func setDefaults() {
	viper.SetDefault("http.timeout", defaultHTTPTimeout)
	viper.SetDefault("http.user_agent", defaultUserAgent)
	viper.SetDefault("http.max_retries", 5)
	viper.SetDefault("http.retry_base_delay", time.Second)
	viper.SetDefault("http.retry_max_delay", 16*time.Second)
	viper.SetDefault("http.rate_limit", 0.0)

	defaults := types.DefaultSources()
	for _, sf := range sourceFlags {
		viper.SetDefault("sources."+sf.name, sf.enabled(defaults))
	}

	viper.SetDefault("scoring.ollama_host", score.DefaultOllamaHost)
	viper.SetDefault("scoring.timeout", 60*time.Second)
	viper.SetDefault("scoring.cache_size", score.DefaultCacheSize)

	viper.SetDefault("persist.outdir", defaultOutDir)
	viper.SetDefault("persist.min_score", 0.0)
	viper.SetDefault("persist.max_papers", 0)
	viper.SetDefault("persist.mode", string(types.ModeBatch))
	viper.SetDefault("persist.export", true)

	viper.SetDefault("per_source", defaultPerSource)
	viper.SetDefault("concurrency", 0)
	viper.SetDefault("source_timeout", 3*time.Minute)
	viper.SetDefault("inter_source_delay", 0)
}

// sourceFlag ties a provider to its command-line switch. Free sources that
// are on by default have a --no-<name> flag; opt-in sources have a
// positive flag.
type sourceFlag struct {
	name   string
	flag   string
	negate bool
	usage  string
}

var sourceFlags = []sourceFlag{
	{"openalex", "no-openalex", true, "disable OpenAlex"},
	{"arxiv", "no-arxiv", true, "disable arXiv"},
	{"pubmed", "no-pubmed", true, "disable PubMed"},
	{"hal", "no-hal", true, "disable HAL"},
	{"dblp", "no-dblp", true, "disable DBLP"},
	{"doaj", "use-doaj", false, "enable DOAJ"},
	{"core", "use-core", false, "enable CORE (uses CORE_API_KEY when set)"},
	{"scopus", "use-scopus", false, "enable Scopus (requires SCOPUS_API_KEY)"},
	{"ieee", "use-ieee", false, "enable IEEE Xplore (requires IEEE_API_KEY)"},
	{"crossref", "crossref", false, "include Crossref"},
}

func (sf sourceFlag) enabled(cfg types.SourcesConfig) bool {
	return *sf.field(&cfg)
}

func (sf sourceFlag) field(cfg *types.SourcesConfig) *bool {
	switch sf.name {
	case "openalex":
		return &cfg.OpenAlex
	case "arxiv":
		return &cfg.Arxiv
	case "pubmed":
		return &cfg.PubMed
	case "hal":
		return &cfg.HAL
	case "dblp":
		return &cfg.DBLP
	case "doaj":
		return &cfg.DOAJ
	case "core":
		return &cfg.CORE
	case "scopus":
		return &cfg.Scopus
	case "ieee":
		return &cfg.IEEE
	default:
		return &cfg.Crossref
	}
}

// flagBindings maps config keys to collect flags.
var flagBindings = map[string]string{
	"per_source":           "per-source",
	"concurrency":          "concurrency",
	"source_timeout":       "source-timeout",
	"persist.outdir":       "outdir",
	"persist.min_score":    "min-score",
	"persist.max_papers":   "max-papers",
	"scoring.ollama_model": "ollama-model",
	"scoring.ollama_host":  "ollama-host",
	"http.rate_limit":      "rate-limit",
}

func bindCollectFlags(flags *pflag.FlagSet) {
	for key, name := range flagBindings {
		viper.BindPFlag(key, flags.Lookup(name))
	}
}

// collectConfig assembles the run configuration from defaults, the config
// file, RESEARCH_AGENT_* environment variables and flags, in increasing
// precedence, then validates it.
func collectConfig(cmd *cobra.Command) (types.CollectConfig, error) {
	flags := cmd.Flags()

	cfg := types.CollectConfig{
		HTTP: types.HTTPConfig{
			Timeout:        viper.GetDuration("http.timeout"),
			UserAgent:      viper.GetString("http.user_agent"),
			MaxRetries:     viper.GetInt("http.max_retries"),
			RetryBaseDelay: viper.GetDuration("http.retry_base_delay"),
			RetryMaxDelay:  viper.GetDuration("http.retry_max_delay"),
			RateLimit:      viper.GetFloat64("http.rate_limit"),
		},
		Sources: types.SourcesConfig{
			OpenAlexMailto: viper.GetString("sources.openalex_mailto"),
			PubMedEmail:    viper.GetString("sources.pubmed_email"),
		},
		Scoring: types.ScoringConfig{
			OllamaModel: viper.GetString("scoring.ollama_model"),
			OllamaHost:  viper.GetString("scoring.ollama_host"),
			Timeout:     viper.GetDuration("scoring.timeout"),
			CacheSize:   viper.GetInt("scoring.cache_size"),
		},
		Persist: types.PersistConfig{
			OutDir:    viper.GetString("persist.outdir"),
			MinScore:  viper.GetFloat64("persist.min_score"),
			MaxPapers: viper.GetInt("persist.max_papers"),
			Mode:      types.PersistMode(viper.GetString("persist.mode")),
			Export:    viper.GetBool("persist.export"),
		},
		PerSource:        viper.GetInt("per_source"),
		Concurrency:      viper.GetInt("concurrency"),
		SourceTimeout:    viper.GetDuration("source_timeout"),
		InterSourceDelay: viper.GetDuration("inter_source_delay"),
	}

	for _, sf := range sourceFlags {
		on := viper.GetBool("sources." + sf.name)
		if flags.Changed(sf.flag) {
			v, _ := flags.GetBool(sf.flag)
			on = v != sf.negate
		}
		*sf.field(&cfg.Sources) = on
	}

	if incremental, _ := flags.GetBool("incremental"); incremental {
		cfg.Persist.Mode = types.ModeIncremental
	}
	if noExport, _ := flags.GetBool("no-export"); noExport {
		cfg.Persist.Export = false
	}

	years := viper.GetString("years")
	if flags.Changed("years") {
		years, _ = flags.GetString("years")
	}
	yr, err := types.ParseYearRange(years)
	if err != nil {
		return cfg, fmt.Errorf("--years: %w", err)
	}
	cfg.Years = yr

	if credentials != nil {
		credentials.Apply(&cfg.Sources)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
