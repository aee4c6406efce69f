// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/pkg/types"
)

// DefaultOllamaHost is the local Ollama endpoint.
const DefaultOllamaHost = "http://localhost:11434"

const (
	defaultOllamaTimeout = 60 * time.Second
	ollamaNumPredict     = 64
)

var errNoJSON = errors.New("no JSON object in model response")

// Ollama asks a local Ollama model to rate relevance.
type Ollama struct {
	Client *httputil.Client
	Host   string
	Model  string
}

// NewOllama builds an Ollama scorer from the scoring and HTTP settings. A
// scoring call is retried once on a transient failure.
func NewOllama(cfg types.ScoringConfig, httpCfg types.HTTPConfig, log zerolog.Logger) *Ollama {
	host := strings.TrimRight(cfg.OllamaHost, "/")
	if host == "" {
		host = DefaultOllamaHost
	}
	httpCfg.Timeout = cfg.Timeout
	if httpCfg.Timeout <= 0 {
		httpCfg.Timeout = defaultOllamaTimeout
	}
	httpCfg.MaxRetries = 1
	httpCfg.RateLimit = 0
	return &Ollama{
		Client: httputil.NewClient(httpCfg, log.With().Str("scorer", "ollama").Logger()),
		Host:   host,
		Model:  cfg.OllamaModel,
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// Score implements ExternalScorer. The model is asked for {"score": x};
// the value is clamped to [0,1].
func (o *Ollama) Score(ctx context.Context, query, abstract string) (float64, error) {
	req := ollamaRequest{
		Model:   o.Model,
		Prompt:  relevancePrompt(query, abstract),
		Options: ollamaOptions{Temperature: 0, NumPredict: ollamaNumPredict},
	}

	var resp ollamaResponse
	if err := o.Client.PostJSON(ctx, o.Host+"/api/generate", req, &resp); err != nil {
		return 0, fmt.Errorf("ollama generate: %w", err)
	}
	return parseScore(resp.Response)
}

func relevancePrompt(query, abstract string) string {
	return "Rate from 0.0 to 1.0 how relevant the following paper abstract is " +
		"to the user's query. Return ONLY a JSON object like {\"score\": 0.0}.\n\n" +
		"Query: " + query + "\n\nAbstract:\n" + abstract + "\n"
}

// parseScore extracts the JSON object between the first '{' and the last
// '}' of the model output and clamps its score.
func parseScore(text string) (float64, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return 0, errNoJSON
	}

	var out struct {
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return 0, fmt.Errorf("parsing model response: %w", err)
	}
	if out.Score == nil {
		return 0, fmt.Errorf("parsing model response: missing score")
	}
	return min(max(*out.Score, 0), 1), nil
}
