// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"github.com/rs/zerolog"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Names lists every adapter in enablement order. The aggregator
// concatenates results in this order.
var Names = []string{
	"openalex", "arxiv", "pubmed", "hal", "dblp",
	"doaj", "core", "scopus", "ieee", "crossref",
}

// Options configures the HTTP clients handed to adapters.
type Options struct {
	HTTP types.HTTPConfig
	Log  zerolog.Logger

	// OnRetry, when set, is called for every retried request.
	OnRetry func(source string, attempt int, err error)
}

// client builds a dedicated client for one adapter so rate limits and
// retry accounting stay per source.
func (o Options) client(source string) *httputil.Client {
	c := httputil.NewClient(o.HTTP, o.Log.With().Str("source", source).Logger())
	if o.OnRetry != nil {
		onRetry := o.OnRetry
		c.Policy.OnRetry = func(attempt int, err error) { onRetry(source, attempt, err) }
	}
	return c
}

// Enabled returns the adapters switched on in cfg, in enablement order.
// Paid sources are included even without a credential; their Search
// returns a *ConfigError so the caller reports them as skipped.
func Enabled(cfg types.SourcesConfig, opts Options) []Source {
	var out []Source
	if cfg.OpenAlex {
		out = append(out, &OpenAlex{Client: opts.client("openalex"), Mailto: cfg.OpenAlexMailto})
	}
	if cfg.Arxiv {
		out = append(out, &Arxiv{Client: opts.client("arxiv")})
	}
	if cfg.PubMed {
		out = append(out, &PubMed{Client: opts.client("pubmed"), Email: cfg.PubMedEmail})
	}
	if cfg.HAL {
		out = append(out, &HAL{Client: opts.client("hal")})
	}
	if cfg.DBLP {
		out = append(out, &DBLP{Client: opts.client("dblp")})
	}
	if cfg.DOAJ {
		out = append(out, &DOAJ{Client: opts.client("doaj")})
	}
	if cfg.CORE {
		out = append(out, &CORE{Client: opts.client("core"), APIKey: cfg.COREAPIKey})
	}
	if cfg.Scopus {
		out = append(out, &Scopus{Client: opts.client("scopus"), APIKey: cfg.ScopusAPIKey})
	}
	if cfg.IEEE {
		out = append(out, &IEEE{Client: opts.client("ieee"), APIKey: cfg.IEEEAPIKey})
	}
	if cfg.Crossref {
		out = append(out, &Crossref{Client: opts.client("crossref")})
	}
	return out
}
