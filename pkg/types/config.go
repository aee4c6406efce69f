package types

import "time"

// HTTPConfig holds shared HTTP settings used by every source adapter.
type HTTPConfig struct {
	// Timeout bounds a single HTTP request. It must be positive.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`

	// UserAgent is the client identifier sent with each request
	// (e.g. "research-agent/0.4").
	UserAgent string `json:"user_agent" yaml:"user_agent" validate:"required"`

	// MaxRetries is the retry budget for transient failures (403, 429, 5xx,
	// network errors). Zero uses the default of 5; -1 disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"gte=-1"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" validate:"gte=0"`

	// RetryMaxDelay caps a single backoff delay.
	RetryMaxDelay time.Duration `json:"retry_max_delay" yaml:"retry_max_delay" validate:"gte=0"`

	// RateLimit is the sustained requests per second allowed per source.
	// Zero disables client-side rate limiting.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" validate:"gte=0"`
}

// SourcesConfig selects the enabled providers and carries their credentials.
type SourcesConfig struct {
	OpenAlex bool `json:"openalex" yaml:"openalex"`
	Arxiv    bool `json:"arxiv" yaml:"arxiv"`
	PubMed   bool `json:"pubmed" yaml:"pubmed"`
	HAL      bool `json:"hal" yaml:"hal"`
	DBLP     bool `json:"dblp" yaml:"dblp"`
	DOAJ     bool `json:"doaj" yaml:"doaj"`
	CORE     bool `json:"core" yaml:"core"`
	Scopus   bool `json:"scopus" yaml:"scopus"`
	IEEE     bool `json:"ieee" yaml:"ieee"`
	Crossref bool `json:"crossref" yaml:"crossref"`

	// OpenAlexMailto is sent as the mailto parameter for the polite pool.
	OpenAlexMailto string `json:"openalex_mailto,omitempty" yaml:"openalex_mailto,omitempty"`

	// PubMedEmail identifies the caller to NCBI E-utilities.
	PubMedEmail string `json:"pubmed_email,omitempty" yaml:"pubmed_email,omitempty"`

	ScopusAPIKey string `json:"-" yaml:"-"`
	IEEEAPIKey   string `json:"-" yaml:"-"`
	COREAPIKey   string `json:"-" yaml:"-"`
}

// DefaultSources returns the provider selection used when nothing is
// configured: the free sources except Crossref, DOAJ and CORE.
func DefaultSources() SourcesConfig {
	return SourcesConfig{
		OpenAlex: true,
		Arxiv:    true,
		PubMed:   true,
		HAL:      true,
		DBLP:     true,
	}
}

// ScoringConfig configures the optional external relevance model.
type ScoringConfig struct {
	// OllamaModel enables external scoring when non-empty (e.g. "llama3.1:8b").
	OllamaModel string `json:"ollama_model,omitempty" yaml:"ollama_model,omitempty"`

	// OllamaHost is the Ollama HTTP endpoint.
	OllamaHost string `json:"ollama_host" yaml:"ollama_host" validate:"omitempty,url"`

	// Timeout bounds one external scoring call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`

	// CacheSize is the number of (query, abstract) scores kept in memory.
	CacheSize int `json:"cache_size" yaml:"cache_size" validate:"gte=0"`
}

// PersistMode selects the persistence strategy.
type PersistMode string

const (
	ModeBatch       PersistMode = "batch"
	ModeIncremental PersistMode = "incremental"
)

// PersistConfig holds settings for the persistence writer.
type PersistConfig struct {
	// OutDir is the base output directory; each topic gets a subdirectory.
	OutDir string `json:"outdir" yaml:"outdir" validate:"required"`

	// MinScore drops records scoring below it.
	MinScore float64 `json:"min_score" yaml:"min_score" validate:"gte=0,lte=1"`

	// MaxPapers caps the final list after sorting. Zero means no cap.
	MaxPapers int `json:"max_papers" yaml:"max_papers" validate:"gte=0"`

	// Mode is batch or incremental.
	Mode PersistMode `json:"mode" yaml:"mode" validate:"oneof=batch incremental"`

	// Export enables BibTeX, CSL and bundle exports of the final list.
	Export bool `json:"export" yaml:"export"`
}

// CollectConfig groups every setting for one collection run.
type CollectConfig struct {
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
	Sources SourcesConfig `json:"sources" yaml:"sources"`
	Scoring ScoringConfig `json:"scoring" yaml:"scoring"`
	Persist PersistConfig `json:"persist" yaml:"persist"`

	// PerSource is the result cap passed to each adapter.
	PerSource int `json:"per_source" yaml:"per_source" validate:"gte=1"`

	// Years restricts publication years (inclusive, open ends allowed).
	Years YearRange `json:"years" yaml:"years"`

	// Concurrency bounds how many adapters run at once. Zero or one runs
	// them sequentially in enablement order.
	Concurrency int `json:"concurrency" yaml:"concurrency" validate:"gte=0"`

	// SourceTimeout caps one adapter call including its retries. Zero
	// leaves only the per-request HTTP timeout and the run deadline.
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout" validate:"gte=0"`

	// InterSourceDelay is slept between launching consecutive adapters.
	InterSourceDelay time.Duration `json:"inter_source_delay" yaml:"inter_source_delay" validate:"gte=0"`
}

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=console json"`

	// Output is stderr or stdout.
	Output string `json:"output" yaml:"output" validate:"omitempty,oneof=stderr stdout"`
}
