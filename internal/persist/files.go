// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package persist

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Entry builds the index line for rec.
func Entry(rec types.Record) types.IndexEntry {
	return types.IndexEntry{
		ID:         ItemID(rec),
		Title:      rec.Title,
		Year:       rec.Year,
		DOI:        idPtr(rec.Identifiers, types.IDDOI),
		ArxivID:    idPtr(rec.Identifiers, types.IDArxiv),
		OpenAlexID: idPtr(rec.Identifiers, types.IDOpenAlex),
		PubMedID:   idPtr(rec.Identifiers, types.IDPubMed),
		HALDocID:   idPtr(rec.Identifiers, types.IDHAL),
		Score:      rec.ScoreValue(),
		Source:     rec.Source,
		URLPage:    rec.URLPage,
		URLPDF:     rec.URLPDF,
	}
}

func idPtr(ids types.Identifiers, kind types.IDKind) *string {
	v := ids.Get(kind)
	if v == "" {
		return nil
	}
	return &v
}

// WriteFileAtomic writes data to a temp file beside path and renames it
// into place, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".persist-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// marshalRecord renders rec as indented UTF-8 JSON without HTML escaping.
func marshalRecord(rec types.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeRecord writes rec to its file under the papers directory and returns
// the identifier used.
func writeRecord(l Layout, rec types.Record) (string, error) {
	id := ItemID(rec)
	data, err := marshalRecord(rec)
	if err != nil {
		return "", fmt.Errorf("encoding record %s: %w", id, err)
	}
	if err := WriteFileAtomic(l.RecordPath(id), data); err != nil {
		return "", err
	}
	return id, nil
}

// indexWriter appends JSON lines to a truncated index file. When sync is
// set every line is flushed as it is written.
type indexWriter struct {
	f    *os.File
	w    *bufio.Writer
	enc  *json.Encoder
	sync bool
}

// createIndex truncates path and opens it for appending entries.
func createIndex(path string, sync bool) (*indexWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating index %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &indexWriter{f: f, w: w, enc: enc, sync: sync}, nil
}

func (iw *indexWriter) Append(e types.IndexEntry) error {
	if err := iw.enc.Encode(e); err != nil {
		return fmt.Errorf("writing index entry %s: %w", e.ID, err)
	}
	if iw.sync {
		if err := iw.w.Flush(); err != nil {
			return fmt.Errorf("flushing index: %w", err)
		}
	}
	return nil
}

// Close flushes buffered lines and closes the file. It is safe to call
// more than once.
func (iw *indexWriter) Close() error {
	if iw == nil || iw.f == nil {
		return nil
	}
	flushErr := iw.w.Flush()
	closeErr := iw.f.Close()
	iw.f = nil
	if flushErr != nil {
		return fmt.Errorf("flushing index: %w", flushErr)
	}
	return closeErr
}

// writeIndex writes entries as the final index, atomically.
func writeIndex(path string, entries []types.IndexEntry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding index entry %s: %w", e.ID, err)
		}
	}
	return WriteFileAtomic(path, buf.Bytes())
}

// ReadIndex parses an index file back into entries.
func ReadIndex(path string) ([]types.IndexEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []types.IndexEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e types.IndexEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return entries, nil
}
