// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/research-agent/internal/persist"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Export file names inside a topic directory.
const (
	BibTeXFile  = "export.bib"
	CSLJSONFile = "export.csl.json"
	CSLYAMLFile = "export.csl.yaml"
	BundleFile  = "bundle.jsonl.gz"
)

type format struct {
	name  string
	write func(io.Writer, []types.Record) error
}

var formats = []format{
	{BibTeXFile, WriteBibTeX},
	{CSLJSONFile, WriteCSLJSON},
	{CSLYAMLFile, WriteCSLYAML},
	{BundleFile, WriteBundle},
}

// WriteAll writes every export format for recs into dir and returns the
// paths written. Each file is replaced atomically.
func WriteAll(dir string, recs []types.Record) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		var buf bytes.Buffer
		if err := f.write(&buf, recs); err != nil {
			return paths, fmt.Errorf("rendering %s: %w", f.name, err)
		}
		path := filepath.Join(dir, f.name)
		if err := persist.WriteFileAtomic(path, buf.Bytes()); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
