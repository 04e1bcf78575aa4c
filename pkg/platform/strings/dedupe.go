// Package strings provides string normalization helpers for free-text
// request fields.
package strings

import (
	"strings"
)

// NormalizeSpace trims the value and collapses inner runs of whitespace to a
// single space.
//
// Example:
//
//	NormalizeSpace("  New   York ")
//	// Returns: "New York"
func NormalizeSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// DedupeFold removes blanks and case-insensitive duplicates, keeping the
// first spelling seen. Order is preserved.
//
// Example:
//
//	DedupeFold([]string{" Tokyo", "paris", "TOKYO", ""})
//	// Returns: []string{"Tokyo", "paris"}
func DedupeFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		normalized := NormalizeSpace(v)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, normalized)
	}

	return result
}

// EqualFold reports whether two locations name the same place once
// whitespace and case are normalized. Blank values never match.
func EqualFold(a, b string) bool {
	na, nb := NormalizeSpace(a), NormalizeSpace(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.EqualFold(na, nb)
}
