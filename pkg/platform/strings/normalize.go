// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// NormalizeName canonicalizes a person name for comparison: lowercased,
// trimmed, with internal whitespace runs collapsed to single spaces.
// Watchlist matching compares normalized forms only.
//
// Example:
//
//	NormalizeName("  Jane   DOE ")
//	// Returns: "jane doe"
func NormalizeName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}

// NormalizeNames applies NormalizeName to each element, dropping entries that
// normalize to empty and de-duplicating the rest. Order is preserved.
func NormalizeNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))

	for _, n := range names {
		norm := NormalizeName(n)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; !ok {
			seen[norm] = struct{}{}
			result = append(result, norm)
		}
	}

	return result
}

// EqualFoldTrim compares two identifier strings case-insensitively after
// trimming surrounding whitespace. Empty values never match anything.
func EqualFoldTrim(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
