package report

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var asciiReplacements = map[rune]string{
	'\u2022': "-", // bullet
	'\u2023': "-",
	'\u25cf': "-",
	'\u25aa': "-",
	'\u2043': "-",
	'\u2010': "-",
	'\u2011': "-",
	'\u2012': "-",
	'\u2013': "-",
	'\u2014': "-",
	'\u2015': "-",
	'\u2212': "-",
	'\u2018': "'",
	'\u2019': "'",
	'\u201a': "'",
	'\u201c': `"`,
	'\u201d': `"`,
	'\u201e': `"`,
	'\u2026': "...",
	'\u00a0': " ",
	'\u2192': "->",
	'\u00d7': "x",
	'\t':     " ",
}

// sanitizeText reduces s to printable ASCII so the core PDF fonts can
// measure and draw every glyph. Accented letters lose their marks and
// typographic punctuation maps to a plain equivalent; other glyphs are
// dropped.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range norm.NFKD.String(s) {
		if rep, ok := asciiReplacements[r]; ok {
			b.WriteString(rep)
			continue
		}
		if r < 0x80 && (unicode.IsPrint(r) || r == ' ') {
			b.WriteRune(r)
		}
	}

	return collapseSpaces(b.String())
}

func collapseSpaces(s string) string {
	if !strings.Contains(s, "  ") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
