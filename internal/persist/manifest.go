// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// Manifest summarizes one run. It is written as run.yaml beside the index.
type Manifest struct {
	RunID      string    `yaml:"run_id"`
	Query      string    `yaml:"query"`
	Years      string    `yaml:"years,omitempty"`
	PerSource  int       `yaml:"per_source"`
	MinScore   float64   `yaml:"min_score"`
	MaxPapers  int       `yaml:"max_papers,omitempty"`
	Mode       string    `yaml:"mode"`
	Sources    []string  `yaml:"sources"`
	Scorer     string    `yaml:"scorer,omitempty"`
	Counts     Counts    `yaml:"counts"`
	Warnings   []string  `yaml:"warnings,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
}

// Counts are the record totals at each pipeline stage.
type Counts struct {
	Collected  int            `yaml:"collected"`
	Unique     int            `yaml:"unique"`
	Duplicates int            `yaml:"duplicates"`
	Saved      int            `yaml:"saved"`
	Written    int            `yaml:"written"`
	BySource   map[string]int `yaml:"by_source,omitempty"`
}

// WriteManifest writes m to path as YAML.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}
