// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders the final record list as BibTeX, CSL-JSON,
// CSL-YAML and a gzip-compressed JSONL bundle. Exporters consume records
// whose authors are already normalized; any of doi, year and venue may be
// missing.
package export

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// keyAnchorOrder differs from the file-name anchor: pubmed_id outranks
// openalex_id in citation keys.
var keyAnchorOrder = []types.IDKind{types.IDDOI, types.IDArxiv, types.IDPubMed, types.IDOpenAlex, types.IDHAL}

var texReplacer = strings.NewReplacer(
	`\`, `\\`,
	`{`, `\{`,
	`}`, `\}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`^`, `\^{}`,
	`~`, `\~{}`,
)

func texEscape(s string) string { return texReplacer.Replace(s) }

// CitationKey returns lastname + year + the first 8 hex characters of the
// SHA-1 of the record's anchor. The last name is the first author's final
// word reduced to lowercase ASCII letters.
func CitationKey(rec types.Record) string {
	base := rec.Title
	for _, k := range keyAnchorOrder {
		if v := rec.Identifiers.Get(k); v != "" {
			base = v
			break
		}
	}
	sum := sha1.Sum([]byte(base))

	var last string
	if len(rec.Authors) > 0 {
		if parts := strings.Fields(rec.Authors[0]); len(parts) > 0 {
			last = asciiLetters(parts[len(parts)-1])
		}
	}
	var year string
	if rec.Year != nil {
		year = strconv.Itoa(*rec.Year)
	}
	return last + year + hex.EncodeToString(sum[:])[:8]
}

func asciiLetters(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

func recordURL(rec types.Record) string {
	if rec.URLPage != "" {
		return rec.URLPage
	}
	return rec.URLPDF
}

// WriteBibTeX writes one @article entry per record. Empty fields are
// omitted.
func WriteBibTeX(w io.Writer, recs []types.Record) error {
	var b strings.Builder
	for i, rec := range recs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "@article{%s,\n", CitationKey(rec))
		field := func(name, value string) {
			if value != "" {
				fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
			}
		}
		field("title", texEscape(rec.Title))

		authors := make([]string, len(rec.Authors))
		for j, a := range rec.Authors {
			authors[j] = texEscape(a)
		}
		field("author", strings.Join(authors, " and "))
		field("journal", texEscape(rec.Venue))
		if rec.Year != nil && *rec.Year != 0 {
			field("year", strconv.Itoa(*rec.Year))
		}
		field("doi", rec.Identifiers.Get(types.IDDOI))
		field("url", texEscape(recordURL(rec)))
		b.WriteString("}\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
