package postprocess

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// hallucinations is the short-phrase blacklist the engine is known to emit
// on silent or noisy input. Matched against the lower-cased normalized text,
// exact match only.
var hallucinations = map[string]struct{}{
	"thank you":              {},
	"thanks for watching":    {},
	"thank you for watching": {},
	"so":                     {},
	"the":                    {},
	"you":                    {},
	"oh":                     {},
}

var (
	reAllowed    = regexp.MustCompile(`[^a-zA-Z0-9.,'\s]`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reDotsOnly   = regexp.MustCompile(`^\.+$`)
	reDotRun     = regexp.MustCompile(`\.{3,}`)
)

// stripMarks removes combining marks left over from NFKD decomposition.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// normalizeText reduces text to plain ASCII: NFKD with diacritics dropped,
// characters outside letters/digits/.,'/whitespace removed (this also strips
// emoji and pictographs), whitespace runs collapsed, ends trimmed.
func normalizeText(text string) string {
	decomposed, _, err := transform.String(stripMarks, text)
	if err != nil {
		decomposed = text
	}

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}

	out := reAllowed.ReplaceAllString(b.String(), "")
	out = reWhitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// cleanText normalizes the assembled transcript and erases known engine
// hallucination signatures: dot-only text, runs of three or more dots, and
// exact matches to the blacklist.
func cleanText(text string) string {
	out := normalizeText(text)
	if out == "" {
		return ""
	}
	if reDotsOnly.MatchString(out) || reDotRun.MatchString(out) {
		return ""
	}
	if _, ok := hallucinations[strings.ToLower(out)]; ok {
		return ""
	}
	return out
}
