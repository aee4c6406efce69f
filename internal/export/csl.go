// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/json"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) form,
// consumable by Pandoc and reference managers. Empty fields are omitted.
type CSLItem struct {
	ID             string    `json:"id" yaml:"id"`
	Type           string    `json:"type" yaml:"type"`
	Title          string    `json:"title,omitempty" yaml:"title,omitempty"`
	Author         []CSLName `json:"author,omitempty" yaml:"author,omitempty"`
	Abstract       string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Issued         *CSLDate  `json:"issued,omitempty" yaml:"issued,omitempty"`
	DOI            string    `json:"DOI,omitempty" yaml:"DOI,omitempty"`
	URL            string    `json:"URL,omitempty" yaml:"URL,omitempty"`
	ContainerTitle string    `json:"container-title,omitempty" yaml:"container-title,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `json:"family,omitempty" yaml:"family,omitempty"`
	Given   string `json:"given,omitempty" yaml:"given,omitempty"`
	Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `json:"date-parts" yaml:"date-parts"`
}

// CSLItems converts records to CSL items in order.
func CSLItems(recs []types.Record) []CSLItem {
	items := make([]CSLItem, len(recs))
	for i, r := range recs {
		items[i] = toCSLItem(r)
	}
	return items
}

func toCSLItem(r types.Record) CSLItem {
	item := CSLItem{
		ID:             CitationKey(r),
		Type:           "article-journal",
		Title:          r.Title,
		Abstract:       r.Abstract,
		DOI:            r.Identifiers.Get(types.IDDOI),
		URL:            recordURL(r),
		ContainerTitle: r.Venue,
	}
	for _, a := range r.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}
	if r.Year != nil && *r.Year != 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{*r.Year}}}
	}
	return item
}

// parseAuthorName splits a display name on its last space: everything
// before is given, the last token is family. Single-token names use the
// literal field.
func parseAuthorName(name string) CSLName {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return CSLName{}
	case 1:
		return CSLName{Literal: parts[0]}
	}
	return CSLName{
		Given:  strings.Join(parts[:len(parts)-1], " "),
		Family: parts[len(parts)-1],
	}
}

// WriteCSLJSON writes records as an indented CSL-JSON array.
func WriteCSLJSON(w io.Writer, recs []types.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(CSLItems(recs))
}

// WriteCSLYAML writes records as a CSL-YAML list.
func WriteCSLYAML(w io.Writer, recs []types.Record) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(CSLItems(recs))
}
