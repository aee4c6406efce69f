// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves API keys and contact addresses. A key is looked
// up in the process environment, then in a .env file, then in a directory
// of plain-text files where the file name is the kebab-case key
// (SCOPUS_API_KEY is read from scopus-api-key) and the trimmed contents are
// the value.
//
// Known keys: SCOPUS_API_KEY, IEEE_API_KEY, CORE_API_KEY, OPENALEX_MAILTO,
// PUBMED_EMAIL.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Credential environment keys.
const (
	ScopusAPIKey   = "SCOPUS_API_KEY"
	IEEEAPIKey     = "IEEE_API_KEY"
	COREAPIKey     = "CORE_API_KEY"
	OpenAlexMailto = "OPENALEX_MAILTO"
	PubMedEmail    = "PUBMED_EMAIL"
)

// Default locations relative to the working directory.
const (
	DefaultDir    = ".secrets"
	DefaultDotEnv = ".env"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotEnv parses a .env file. A missing file yields an empty map.
func LoadDotEnv(path string) (map[string]string, error) {
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return vals, nil
}

// KebabKey maps an environment key to its secrets-file name.
func KebabKey(envKey string) string {
	return strings.ReplaceAll(strings.ToLower(envKey), "_", "-")
}

// Resolver looks up credentials from the environment, a .env file and a
// secrets directory, in that order.
type Resolver struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	DotEnv map[string]string
	Files  map[string]string
}

// NewResolver loads dotEnvPath and dir. Either may be missing.
func NewResolver(dotEnvPath, dir string, log zerolog.Logger) (*Resolver, error) {
	env, err := LoadDotEnv(dotEnvPath)
	if err != nil {
		return nil, err
	}
	files, err := Load(dir, log)
	if err != nil {
		return nil, err
	}
	return &Resolver{Getenv: os.Getenv, DotEnv: env, Files: files}, nil
}

// Lookup returns the first non-empty value for envKey, or "".
func (r *Resolver) Lookup(envKey string) string {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.DotEnv[envKey]); v != "" {
		return v
	}
	return r.Files[KebabKey(envKey)]
}

// Apply fills the credential fields of cfg. Contact addresses already set
// in cfg are kept.
func (r *Resolver) Apply(cfg *types.SourcesConfig) {
	cfg.ScopusAPIKey = r.Lookup(ScopusAPIKey)
	cfg.IEEEAPIKey = r.Lookup(IEEEAPIKey)
	cfg.COREAPIKey = r.Lookup(COREAPIKey)
	if cfg.OpenAlexMailto == "" {
		cfg.OpenAlexMailto = r.Lookup(OpenAlexMailto)
	}
	if cfg.PubMedEmail == "" {
		cfg.PubMedEmail = r.Lookup(PubMedEmail)
	}
}
