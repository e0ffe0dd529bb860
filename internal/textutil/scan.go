package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// layoutReplacer maps keys typed on a Russian layout back to the punctuation
// the scanner meant to send.
var layoutReplacer = strings.NewReplacer(
	"Ю", ".",
	"ю", ".",
	"Б", ",",
	"б", ",",
)

// NormalizeScan trims scanner input, folds full-width characters to their
// narrow forms and repairs keyboard-layout punctuation.
func NormalizeScan(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = width.Fold.String(value)
	return strings.TrimSpace(layoutReplacer.Replace(value))
}

// NormalizeWorkCenter returns the canonical upper-case work centre code.
func NormalizeWorkCenter(value string) string {
	value = strings.TrimSpace(width.Fold.String(value))
	if value == "" {
		return ""
	}
	// Casers carry state, so each call gets its own.
	return cases.Upper(language.Und).String(value)
}

// NormalizeWorkCenters normalizes a list of work centres, dropping blanks and duplicates.
func NormalizeWorkCenters(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := NormalizeWorkCenter(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
