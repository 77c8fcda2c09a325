// Package builtin contains the transformation steps of the structural
// cleanup and statistical preprocessing modes.
package builtin

import (
	"strconv"
	"strings"
	"unicode"

	"dwetl/internal/dataset"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName converts arbitrary header text into a lowercase ASCII
// identifier:
//  1. trim, lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. every run of characters outside [a-z0-9] becomes a single '_'
//  4. leading/trailing '_' are removed
//
// The result may be empty; NormalizeNames substitutes a positional name.
// NormalizeName(NormalizeName(s)) == NormalizeName(s) for every s.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// NormalizeNames renames every column with NormalizeName. A name that
// normalizes to nothing becomes "col_<position>" (1-based). Names that
// collide after normalization keep the first in column order unchanged and
// suffix the rest with "_2", "_3", ...
type NormalizeNames struct{}

func (NormalizeNames) Name() string { return "normalize_names" }

func (NormalizeNames) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	cols := ds.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		n := NormalizeName(c.Name)
		if n == "" {
			n = "col_" + strconv.Itoa(i+1)
		}
		names[i] = n
	}
	names = dataset.UniqueNames(names)
	for i := range cols {
		cols[i].Name = names[i]
	}
	return dataset.New(cols...)
}
