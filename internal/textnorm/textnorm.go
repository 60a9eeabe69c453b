// Package textnorm folds free-text partner fields into the form the
// classification rules and reference tables compare against.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Spreadsheet exports carry typographic quotes in names like "Marley’s Mutts".
var quoteFolder = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"ʼ", "'",
	"“", `"`,
	"”", `"`,
)

// Lower returns s in composed, lower-cased form. Nil-safe callers should use LowerPtr.
func Lower(s string) string {
	if s == "" {
		return ""
	}
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

// LowerPtr lower-cases an optional field, treating nil as empty.
func LowerPtr(s *string) string {
	if s == nil {
		return ""
	}
	return Lower(*s)
}

// Key returns the exact-match lookup key for a business name: trimmed,
// lower-cased, with typographic quotes folded to ASCII.
func Key(name string) string {
	return strings.TrimSpace(quoteFolder.Replace(Lower(name)))
}

// ContainsAny reports whether text contains any of the keywords.
func ContainsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// FirstContained returns the first keyword found in text, in keyword order.
func FirstContained(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}
