package fastfilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lowercases s, folds compatibility forms (full-width letters,
// ligatures) and strips combining marks so "Ｋíll" and "kill" compare equal.
func foldText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// wordText reduces folded text to space-separated alphanumeric tokens with
// a leading and trailing space, so keyword " x " only matches whole words.
func wordText(folded string) string {
	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func normalizeKeyword(kw string) string {
	w := strings.TrimSpace(wordText(foldText(kw)))
	if w == "" {
		return ""
	}
	return " " + w + " "
}
