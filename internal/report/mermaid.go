package report

import (
	"fmt"
	"strings"
)

// mermaidPie renders chart entries as a Mermaid pie diagram. Zero entries
// are skipped since Mermaid rejects them.
func mermaidPie(title string, entries []ChartEntry) string {
	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString(fmt.Sprintf("pie showData title %s\n", mermaidLabel(title)))
	for _, e := range entries {
		if e.Value <= 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("    %q : %d\n", mermaidLabel(e.Label), e.Value))
	}
	sb.WriteString("```\n")

	return sb.String()
}

// mermaidRiskTimeline renders risk level transitions oldest first.
func mermaidRiskTimeline(changes []RiskChange) string {
	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("timeline\n")
	sb.WriteString("    title Risk Level Changes\n")
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		sb.WriteString(fmt.Sprintf("    %s : %s to %s : %s\n",
			c.Timestamp.Format("2006-01-02"), c.OldLevel, c.NewLevel, mermaidLabel(c.Filename)))
	}
	sb.WriteString("```\n")

	return sb.String()
}

// mermaidLabel strips characters that end a Mermaid statement.
func mermaidLabel(s string) string {
	s = sanitizeText(s)
	return strings.NewReplacer(`"`, "'", ":", " ", ";", ",", "#", "").Replace(s)
}
