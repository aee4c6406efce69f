// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package persist writes scored records to disk: one pretty-printed JSON
// file per record under papers/, a newline-delimited index in final sort
// order, and in incremental mode a draft index appended as records arrive.
package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// File names inside a topic directory.
const (
	PapersDir      = "papers"
	IndexFile      = "index.jsonl"
	DraftIndexFile = "index_draft.jsonl"
	ManifestFile   = "run.yaml"
	LockFile       = ".lock"
)

// idLen is the number of hex characters kept from the anchor digest.
const idLen = 16

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9\- ]+`)
	slugSpace = regexp.MustCompile(`\s+`)
)

// Slug turns a topic into a directory name: lowercase, only [a-z0-9- ]
// kept, whitespace runs replaced by "-", surrounding "-" trimmed. An empty
// result becomes "topic".
func Slug(topic string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(topic), "")
	s = strings.Trim(slugSpace.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "topic"
	}
	return s
}

// anchor returns the value that names a record on disk: the first of doi,
// arxiv_id, openalex_id, pubmed_id, hal_docid, then the title.
func anchor(rec types.Record) string {
	if _, v, ok := rec.Identifiers.Anchor(); ok {
		return v
	}
	return rec.Title
}

// ItemID returns the stable file identifier of rec: the first 16 hex
// characters of the SHA-256 of its anchor. Records with the same anchor
// always share an identifier.
func ItemID(rec types.Record) string {
	sum := sha256.Sum256([]byte(anchor(rec)))
	return hex.EncodeToString(sum[:])[:idLen]
}

// Layout resolves paths inside one topic directory.
type Layout struct {
	Dir string
}

// NewLayout returns the layout for topic under outDir.
func NewLayout(outDir, topic string) Layout {
	return Layout{Dir: filepath.Join(outDir, Slug(topic))}
}

// PapersDir is the directory holding one JSON file per record.
func (l Layout) PapersDir() string { return filepath.Join(l.Dir, PapersDir) }

// RecordPath is the file for the record with identifier id.
func (l Layout) RecordPath(id string) string {
	return filepath.Join(l.Dir, PapersDir, id+".json")
}

func (l Layout) IndexPath() string      { return filepath.Join(l.Dir, IndexFile) }
func (l Layout) DraftIndexPath() string { return filepath.Join(l.Dir, DraftIndexFile) }
func (l Layout) ManifestPath() string   { return filepath.Join(l.Dir, ManifestFile) }
func (l Layout) LockPath() string       { return filepath.Join(l.Dir, LockFile) }

// Path joins name onto the topic directory. Exporters use it for their
// output files.
func (l Layout) Path(name string) string { return filepath.Join(l.Dir, name) }
