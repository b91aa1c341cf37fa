package extract

import "strings"

// ContainsAny returns true if any term appears (case-insensitive) in s.
// Empty terms never match.
func ContainsAny(s string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	lower := strings.ToLower(s)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// FirstContained returns the first term found (case-sensitive) in s, or "".
func FirstContained(s string, terms []string) string {
	for _, term := range terms {
		if term != "" && strings.Contains(s, term) {
			return term
		}
	}
	return ""
}
