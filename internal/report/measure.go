package report

import (
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
)

// TextMeasurer reports the rendered width of text in millimetres.
type TextMeasurer interface {
	Width(text string, size float64, style FontStyle) float64
}

// fpdfMeasurer measures with the Helvetica core font metrics that the PDF
// writer uses. It is not safe for concurrent use.
type fpdfMeasurer struct {
	pdf *fpdf.Fpdf
}

func newFPDFMeasurer() TextMeasurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont(fontFamily, "", 10)
	return &fpdfMeasurer{pdf: pdf}
}

func (m *fpdfMeasurer) Width(text string, size float64, style FontStyle) float64 {
	m.pdf.SetFont(fontFamily, string(style), size)
	return m.pdf.GetStringWidth(text)
}

// wrapText greedily breaks text into lines no wider than maxWidth. Words
// longer than a full line are split by character.
func wrapText(m TextMeasurer, text string, size float64, style FontStyle, maxWidth float64) []string {
	var lines []string
	cur := ""

	for _, word := range strings.Fields(text) {
		for len(word) > 1 && m.Width(word, size, style) > maxWidth {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			n := fitPrefix(m, word, size, style, maxWidth)
			lines = append(lines, word[:n])
			word = word[n:]
		}

		if cur == "" {
			cur = word
			continue
		}
		candidate := cur + " " + word
		if m.Width(candidate, size, style) <= maxWidth {
			cur = candidate
		} else {
			lines = append(lines, cur)
			cur = word
		}
	}

	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// fitPrefix returns the longest prefix length of word that fits maxWidth,
// never less than one byte.
func fitPrefix(m TextMeasurer, word string, size float64, style FontStyle, maxWidth float64) int {
	n := 1
	for n < len(word) && m.Width(word[:n+1], size, style) <= maxWidth {
		n++
	}
	return n
}

// truncateToWidth returns the first wrapped line of text, marked with an
// ellipsis when the rest was cut.
func truncateToWidth(m TextMeasurer, text string, size float64, style FontStyle, maxWidth float64) string {
	if m.Width(text, size, style) <= maxWidth {
		return text
	}
	lines := wrapText(m, text, size, style, maxWidth-m.Width("...", size, style))
	if len(lines) == 0 {
		return ""
	}
	return lines[0] + "..."
}

// styledRun is a stretch of text in one font style.
type styledRun struct {
	Text string
	Bold bool
}

// placedRun is a styled run positioned on a wrapped line. X is the offset
// from the line's left edge.
type placedRun struct {
	X    float64
	Text string
	Bold bool
}

// splitBold splits a line on ** markers; odd segments are bold. An
// unmatched trailing marker leaves the remainder bold, as a reader
// would expect.
func splitBold(line string) []styledRun {
	parts := strings.Split(line, "**")
	runs := make([]styledRun, 0, len(parts))
	for i, p := range parts {
		if p == "" {
			continue
		}
		runs = append(runs, styledRun{Text: p, Bold: i%2 == 1})
	}
	return runs
}

type runToken struct {
	text string
	bold bool
	glue bool
}

func styleOf(bold bool) FontStyle {
	if bold {
		return StyleBold
	}
	return StyleRegular
}

// wrapRuns flows styled runs across lines no wider than maxWidth. Words
// keep their style; words that touched in the source stay joined.
func wrapRuns(m TextMeasurer, runs []styledRun, size, maxWidth float64) [][]placedRun {
	var tokens []runToken
	prevSpace := true
	for _, r := range runs {
		words := strings.Fields(r.Text)
		for i, w := range words {
			glue := i == 0 && !prevSpace && !startsWithSpace(r.Text)
			tokens = append(tokens, runToken{text: w, bold: r.Bold, glue: glue})
		}
		if r.Text != "" {
			prevSpace = endsWithSpace(r.Text)
		}
	}

	var lines [][]placedRun
	var line []placedRun
	x := 0.0
	space := m.Width(" ", size, StyleRegular)

	flush := func() {
		if len(line) > 0 {
			lines = append(lines, line)
		}
		line = nil
		x = 0
	}

	for _, tok := range tokens {
		style := styleOf(tok.bold)
		word := tok.text

		for len(word) > 1 && m.Width(word, size, style) > maxWidth {
			flush()
			n := fitPrefix(m, word, size, style, maxWidth)
			line = append(line, placedRun{X: 0, Text: word[:n], Bold: tok.bold})
			flush()
			word = word[n:]
			tok.glue = false
		}

		w := m.Width(word, size, style)
		gap := space
		if tok.glue || len(line) == 0 {
			gap = 0
		}
		if len(line) > 0 && x+gap+w > maxWidth {
			flush()
			gap = 0
		}

		if n := len(line); n > 0 && line[n-1].Bold == tok.bold {
			if gap > 0 {
				line[n-1].Text += " "
			}
			line[n-1].Text += word
		} else {
			line = append(line, placedRun{X: x + gap, Text: word, Bold: tok.bold})
		}
		x += gap + w
	}
	flush()

	return lines
}

func startsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[0]))
}

func endsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[len(s)-1]))
}
