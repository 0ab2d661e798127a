package dataset

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// labelNormalizer strips diacritics so "México" compares equal to "mexico".
var labelNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeLabel lowercases, trims, and strips diacritics from a free-text
// label for comparison against configured label sets.
func NormalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	out, _, err := transform.String(labelNormalizer, label)
	if err != nil {
		return label
	}
	return out
}

// IsUS reports whether the country label matches any configured US label.
func IsUS(country string, usLabels []string) bool {
	// "U.S.A." and "USA" are the same label.
	n := strings.ReplaceAll(NormalizeLabel(country), ".", "")
	if n == "" {
		return false
	}
	for _, l := range usLabels {
		if n == NormalizeLabel(l) {
			return true
		}
	}
	return false
}
