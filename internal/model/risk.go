package model

// RiskLevel is the three-tier classification of an anomaly rate.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Risk thresholds in percent. A rate equal to a threshold stays in the
// lower tier.
const (
	HighRiskThreshold   = 20.0
	MediumRiskThreshold = 10.0
)

// RiskLevelFor classifies an anomaly rate given in percent.
func RiskLevelFor(ratePercent float64) RiskLevel {
	switch {
	case ratePercent > HighRiskThreshold:
		return RiskHigh
	case ratePercent > MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
