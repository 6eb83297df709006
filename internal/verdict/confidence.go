package verdict

import "github.com/praxislabs/vetta/internal/model"

// Confidence ratio boundaries.
const (
	highRiskMediumRatio = 0.50
	lowRatio            = 0.40
	highRatio           = 0.70
)

// Classify maps evidence quality to a confidence label. Rules are evaluated
// as a priority list; the first match wins.
func Classify(q model.EvidenceQuality) model.Confidence {
	ratio := q.SupportRatio()

	switch {
	case q.ContradictedCritical:
		return model.ConfidenceLow
	case q.RiskLevel == model.RiskHigh && ratio < highRiskMediumRatio:
		return model.ConfidenceLow
	case q.RiskLevel == model.RiskHigh:
		return model.ConfidenceMedium
	case ratio < lowRatio:
		return model.ConfidenceLow
	case ratio < highRatio:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceHigh
	}
}
