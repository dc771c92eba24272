// Package narrative builds analysis prompts and requests AI-written
// narratives for scan results.
package narrative

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/user/intruscan/internal/model"
)

const promptTemplate = `Analyze this network security scan and provide brief, actionable recommendations:

SCAN RESULTS:
• Total Traffic: %s records analyzed
• Threat Level: %s (%.1f%% anomaly rate)
• Anomalies Detected: %s incidents

ATTACK BREAKDOWN:
%s

IMMEDIATE ACTIONS NEEDED:
1. What should be done RIGHT NOW to address the highest threat volume?
2. How can we stop the most critical attacks immediately?
3. What mitigation should be implemented urgently?

PREVENTION STRATEGY:
4. What specific security controls prevent these attack types?
5. What monitoring should be enhanced?
6. What is the recommended incident response plan?

Provide concise, prioritized recommendations for a network security team to implement within 24-48 hours.`

var printer = message.NewPrinter(language.English)

// BuildPrompt renders the analysis request for a scan. Attack shares are
// relative to the anomaly count, not the total.
func BuildPrompt(r model.ScanResults) string {
	return fmt.Sprintf(promptTemplate,
		printer.Sprintf("%d", r.TotalRecords),
		strings.ToUpper(string(model.RiskLevelFor(r.AnomalyRate))),
		r.AnomalyRate,
		printer.Sprintf("%d", r.AnomaliesDetected),
		attackBreakdown(r))
}

// attackBreakdown lists non-normal classes with a positive count, largest
// first.
func attackBreakdown(r model.ScanResults) string {
	var lines []string
	for _, c := range r.ClassDistribution.Attacks().Sorted() {
		if c.Count <= 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s: %s (%.1f%% of threats)",
			model.ClassLabel(c.Key),
			printer.Sprintf("%d", c.Count),
			model.Percent(c.Count, r.AnomaliesDetected)))
	}
	return strings.Join(lines, "\n")
}
