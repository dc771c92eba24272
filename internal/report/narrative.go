package report

import (
	"regexp"
	"strings"
)

// narrative block geometry
const (
	narrativeTitle     = "AI Security Analysis & Recommendations"
	narrativeLineStep  = 5.0
	narrativeTextSize  = 9.0
	narrativeBlankStep = 3.0
	narrativeMinSpace  = 20.0

	h2Height = 12.0
	h3Height = 10.0

	bulletGlyph  = "•"
	bulletX      = 20.0
	bulletTextX  = 25.0
	bulletIndent = 45.0
)

// lineKind is the markup class of one narrative line.
type lineKind int

const (
	lineBlank lineKind = iota
	lineHeading2
	lineHeading3
	lineBullet
	lineBold
	lineParagraph
)

var (
	orderedMarker   = regexp.MustCompile(`^\d+\.\s+`)
	unorderedMarker = regexp.MustCompile(`^[*-]\s+`)
)

// classifyLine returns the kind of a trimmed, sanitized line and its
// body with markers removed. Precedence is blank, level-2 heading,
// level-3 heading, list item, bold, paragraph.
func classifyLine(line string) (lineKind, string) {
	if line == "" {
		return lineBlank, ""
	}

	if strings.HasPrefix(line, "#") {
		level := len(line) - len(strings.TrimLeft(line, "#"))
		body := strings.TrimSpace(line[level:])
		if level >= 3 {
			return lineHeading3, body
		}
		return lineHeading2, body
	}

	if loc := orderedMarker.FindStringIndex(line); loc != nil {
		return lineBullet, strings.TrimSpace(line[loc[1]:])
	}
	if loc := unorderedMarker.FindStringIndex(line); loc != nil {
		return lineBullet, strings.TrimSpace(line[loc[1]:])
	}

	if strings.Contains(line, "**") {
		return lineBold, line
	}

	return lineParagraph, line
}

// layoutNarrativeLine places one raw narrative line starting at cur and
// returns the draw operations with their pages and the cursor after the
// line. It holds no state between calls.
func layoutNarrativeLine(m TextMeasurer, raw string, cur cursor) ([]placedOp, cursor) {
	kind, body := classifyLine(strings.TrimSpace(sanitizeText(raw)))

	if kind == lineBlank {
		cur.Y += narrativeBlankStep
		return nil, cur
	}

	cur = cur.breakFor(narrativeMinSpace)
	var ops []placedOp
	emit := func(op Op) { ops = append(ops, placedOp{Page: cur.Page, Op: op}) }

	switch kind {
	case lineHeading2:
		cur.Y += 5
		emit(RectOp{X: marginX, Y: cur.Y - 3, W: contentWidth, H: h2Height,
			Stroke: colorPtr(colorAlert), Fill: colorPtr(colorAlertFill)})
		emit(TextOp{X: marginX + 3, Y: cur.Y + 6, Size: 12, Style: StyleBold, Color: colorAlert,
			Text: truncateToWidth(m, body, 12, StyleBold, contentWidth-6)})
		cur.Y += h2Height + 5

	case lineHeading3:
		cur.Y += 3
		emit(RectOp{X: marginX, Y: cur.Y - 2, W: contentWidth, H: h3Height,
			Stroke: colorPtr(colorHeading), Fill: colorPtr(colorInfoFill)})
		emit(TextOp{X: marginX + 3, Y: cur.Y + 5, Size: 10, Style: StyleBold, Color: colorHeading,
			Text: truncateToWidth(m, body, 10, StyleBold, contentWidth-6)})
		cur.Y += h3Height + 3

	case lineBullet:
		text := strings.ReplaceAll(body, "**", "")
		lines := wrapText(m, text, narrativeTextSize, StyleRegular, pageWidth-bulletIndent)
		emit(TextOp{X: bulletX, Y: cur.Y, Text: bulletGlyph, Size: narrativeTextSize, Color: colorBullet})
		for i, l := range lines {
			if i > 0 {
				cur.Y += narrativeLineStep
				cur = cur.breakFor(narrativeLineStep)
			}
			emit(TextOp{X: bulletTextX, Y: cur.Y, Text: l, Size: narrativeTextSize, Color: colorBlack})
		}
		cur.Y += 6

	case lineBold:
		for i, runs := range wrapRuns(m, splitBold(body), narrativeTextSize, contentWidth) {
			if i > 0 {
				cur = cur.breakFor(narrativeLineStep)
			}
			for _, r := range runs {
				op := TextOp{X: marginX + r.X, Y: cur.Y, Text: r.Text, Size: narrativeTextSize, Color: colorBlack}
				if r.Bold {
					op.Style = StyleBold
					op.Color = colorEmphasis
				}
				emit(op)
			}
			cur.Y += narrativeLineStep
		}
		cur.Y += 2

	default:
		for i, l := range wrapText(m, body, narrativeTextSize, StyleRegular, contentWidth) {
			if i > 0 {
				cur = cur.breakFor(narrativeLineStep)
			}
			emit(TextOp{X: marginX, Y: cur.Y, Text: l, Size: narrativeTextSize, Color: colorBlack})
			cur.Y += narrativeLineStep
		}
		cur.Y += 3
	}

	return ops, cur
}

// layoutNarrative places the section title on a fresh page and then every
// line of text.
func layoutNarrative(m TextMeasurer, text string, start cursor) ([]placedOp, cursor) {
	cur := start
	ops := []placedOp{{Page: cur.Page, Op: TextOp{X: marginX, Y: cur.Y, Text: narrativeTitle,
		Size: 16, Style: StyleBold, Color: colorNarrative}}}
	cur.Y += 15

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		var lineOps []placedOp
		lineOps, cur = layoutNarrativeLine(m, line, cur)
		ops = append(ops, lineOps...)
	}
	return ops, cur
}
