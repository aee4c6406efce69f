// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strconv"
	"strings"
)

// YearRange is an inclusive publication-year window. A zero bound is open.
type YearRange struct {
	From int `json:"from,omitempty" yaml:"from,omitempty"`
	To   int `json:"to,omitempty" yaml:"to,omitempty"`
}

// IsZero reports whether neither bound is set.
func (y YearRange) IsZero() bool { return y.From == 0 && y.To == 0 }

// Contains reports whether year falls inside the range. A missing year is
// never excluded.
func (y YearRange) Contains(year *int) bool {
	if year == nil {
		return true
	}
	if y.From != 0 && *year < y.From {
		return false
	}
	if y.To != 0 && *year > y.To {
		return false
	}
	return true
}

// String renders the range the way ParseYearRange accepts it.
func (y YearRange) String() string {
	switch {
	case y.IsZero():
		return ""
	case y.From != 0 && y.From == y.To:
		return strconv.Itoa(y.From)
	case y.To == 0:
		return fmt.Sprintf("%d-", y.From)
	case y.From == 0:
		return fmt.Sprintf("-%d", y.To)
	default:
		return fmt.Sprintf("%d-%d", y.From, y.To)
	}
}

// ParseYearRange parses "YYYY", "YYYY-YYYY", "YYYY-" or "-YYYY". An empty
// string yields the open range.
func ParseYearRange(s string) (YearRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return YearRange{}, nil
	}

	from, to, found := strings.Cut(s, "-")
	if !found {
		y, err := parseYear(s)
		if err != nil {
			return YearRange{}, err
		}
		return YearRange{From: y, To: y}, nil
	}

	var r YearRange
	var err error
	if from = strings.TrimSpace(from); from != "" {
		if r.From, err = parseYear(from); err != nil {
			return YearRange{}, err
		}
	}
	if to = strings.TrimSpace(to); to != "" {
		if r.To, err = parseYear(to); err != nil {
			return YearRange{}, err
		}
	}
	if r.From != 0 && r.To != 0 && r.From > r.To {
		return YearRange{}, fmt.Errorf("invalid year range %q: start after end", s)
	}
	return r, nil
}

func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, nil
}
