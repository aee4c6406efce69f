// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research-agent pipeline:
// the canonical Record produced by source adapters, the index entry written
// by the persistence writer, and the configuration structs for each stage.
package types

import (
	"encoding/json"
	"strings"
)

// IDKind names a bibliographic identifier scheme.
type IDKind string

const (
	IDDOI      IDKind = "doi"
	IDArxiv    IDKind = "arxiv_id"
	IDOpenAlex IDKind = "openalex_id"
	IDPubMed   IDKind = "pubmed_id"
	IDHAL      IDKind = "hal_docid"
)

// IDPriority is the order in which identifiers anchor a record, both for the
// dedup key and for the persisted file name.
var IDPriority = []IDKind{IDDOI, IDArxiv, IDOpenAlex, IDPubMed, IDHAL}

// Identifiers maps an identifier scheme to its value. At most one value is
// held per kind; empty values are treated as absent.
type Identifiers map[IDKind]string

// Get returns the trimmed identifier for kind, or "" when absent.
func (ids Identifiers) Get(kind IDKind) string {
	if ids == nil {
		return ""
	}
	return strings.TrimSpace(ids[kind])
}

// Set stores v under kind. Empty values remove the kind.
func (ids Identifiers) Set(kind IDKind, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		delete(ids, kind)
		return
	}
	ids[kind] = v
}

// Anchor returns the highest-priority identifier present, along with its kind.
// ok is false when the record carries no identifier at all.
func (ids Identifiers) Anchor() (kind IDKind, value string, ok bool) {
	for _, k := range IDPriority {
		if v := ids.Get(k); v != "" {
			return k, v, true
		}
	}
	return "", "", false
}

// Author is one author entry as delivered by a provider. Providers disagree
// on the shape: a plain string, or an object carrying one of name,
// full_name, display_name, text, or given/family. The struct holds whichever
// fields were present; dedup.NormalizeAuthors resolves it to a display name.
type Author struct {
	Plain       string `json:"-"`
	Name        string `json:"name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Text        string `json:"text,omitempty"`
	Given       string `json:"given,omitempty"`
	Family      string `json:"family,omitempty"`
}

// UnmarshalJSON accepts either a JSON string or an object.
func (a *Author) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Author{Plain: s}
		return nil
	}
	type plain Author
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Author(p)
	return nil
}

// Record is the canonical bibliographic unit flowing through the pipeline.
type Record struct {
	Title       string      `json:"title"`
	Abstract    string      `json:"abstract"`
	Year        *int        `json:"year"`
	Venue       string      `json:"venue,omitempty"`
	Authors     []string    `json:"authors"`
	Identifiers Identifiers `json:"identifiers"`
	URLPage     string      `json:"url_page,omitempty"`
	URLPDF      string      `json:"url_pdf,omitempty"`
	Source      string      `json:"source"`

	// SourcePayload is the raw provider object, retained for traceability.
	SourcePayload json.RawMessage `json:"source_payload,omitempty"`

	// Score is assigned once by the scorer; nil until then.
	Score *float64 `json:"score,omitempty"`

	// RawAuthors holds provider author shapes until normalization rewrites
	// them into Authors.
	RawAuthors []Author `json:"-"`
}

// ScoreValue returns the assigned score, or 0 when the record is unscored.
func (r Record) ScoreValue() float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}

// YearValue returns the publication year, or 0 when unknown.
func (r Record) YearValue() int {
	if r.Year == nil {
		return 0
	}
	return *r.Year
}

// IntPtr returns a pointer to v. Adapters use it for optional years.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// IndexEntry is one line of index.jsonl / index_draft.jsonl. Absent
// identifiers and years are written as JSON null.
type IndexEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Year       *int    `json:"year"`
	DOI        *string `json:"doi"`
	ArxivID    *string `json:"arxiv_id"`
	OpenAlexID *string `json:"openalex_id"`
	PubMedID   *string `json:"pubmed_id"`
	HALDocID   *string `json:"hal_docid"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"`
	URLPage    string  `json:"url_page"`
	URLPDF     string  `json:"url_pdf"`
}
