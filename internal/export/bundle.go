// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/pdiddy/research-agent/pkg/types"
)

// WriteBundle writes full records, one JSON object per line, through a
// gzip stream.
func WriteBundle(w io.Writer, recs []types.Record) error {
	zw := gzip.NewWriter(w)
	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			zw.Close()
			return fmt.Errorf("encoding bundle record: %w", err)
		}
	}
	return zw.Close()
}

// ReadBundle decodes a bundle written by WriteBundle.
func ReadBundle(r io.Reader) ([]types.Record, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer zr.Close()

	var recs []types.Record
	dec := json.NewDecoder(bufio.NewReader(zr))
	for {
		var rec types.Record
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding bundle: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
