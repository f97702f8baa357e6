// Package classify holds the text and error heuristics that steer extraction:
// whether recovered text looks like prose, and whether a failure came from
// font handling.
package classify

import "strings"

// MinReadableRatio is the alphanumeric share above which text counts as
// readable on its own.
const MinReadableRatio = 0.4

// CommonWords rescue text whose alphanumeric ratio is low but which still
// reads like a résumé.
var CommonWords = []string{"the", "and", "for", "with", "experience", "skills", "work", "education"}

// AlphanumericRatio returns the share of runes in text that are ASCII letters
// or digits. Empty text has ratio zero.
func AlphanumericRatio(text string) float64 {
	var total, alnum int
	for _, r := range text {
		total++
		if isASCIIAlnum(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}

// IsReadable reports whether text looks like extractable prose rather than
// glyph garbage.
func IsReadable(text string) bool {
	if text == "" {
		return false
	}
	if AlphanumericRatio(text) > MinReadableRatio {
		return true
	}
	lower := strings.ToLower(text)
	for _, w := range CommonWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
