// Package verdict computes the deterministic classification for a finalized
// scorecard. No I/O and no randomness: the same scorecard always yields the
// same verdict.
package verdict

import (
	"fmt"
	"math"

	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/model"
)

const (
	// floorScore is the dimension score at or below which the floor rule fires.
	floorScore = 2
	// floorComposite caps the composite when the floor rule fires.
	floorComposite = 3.0
	// noGoMax and pivotMax bound the threshold mapping.
	noGoMax  = 2.0
	pivotMax = 3.5
	// penaltyWarningCount is the warning count at which the penalty applies.
	penaltyWarningCount = 2
	// penalty is subtracted from the composite when warnings accumulate.
	penalty = 0.5
	// highScoreFloor is the score from which counter-signals demand reconciliation.
	highScoreFloor = 4
	// minStructuredEvidence is the shortest acceptable structured evidence.
	minStructuredEvidence = 30
	// minLegacyReconciliation is the shortest acceptable free-text reconciliation.
	minLegacyReconciliation = 50
	// vetoMinReconciled is how many well-reconciled counter-signals it takes
	// to keep a GO under HIGH evidence risk.
	vetoMinReconciled = 2
	// lowCoverageRatio marks externally supported claim coverage as weak.
	lowCoverageRatio = 0.50
	// circularThreshold marks a reconciliation as a restatement of its signal.
	circularThreshold = 0.70
)

// Decide applies the ordered decision rules to a finalized scorecard.
func Decide(card model.Scorecard) model.Verdict {
	v := model.Verdict{
		Confidence: Classify(card.Quality),
		Warnings:   []string{},
		Flags:      []string{},
	}

	// Knockout gate: any failed criterion ends the run at NO-GO.
	if failed := card.FailedKnockouts(); len(failed) > 0 {
		v.Classification = model.ClassificationNoGo
		v.Composite = 0.0
		for _, criterion := range failed {
			v.Flags = append(v.Flags, fmt.Sprintf("knockout_failed:%s", criterion))
		}
		return v
	}

	composite := meanScore(card.Dimensions)

	// Floor rule: one weak dimension caps an otherwise strong composite.
	if lowestScore(card.Dimensions) <= floorScore && composite > floorComposite {
		composite = floorComposite
		v.Flags = append(v.Flags, "composite_floored")
	}

	// Counter-signals against high-scoring dimensions must be reconciled.
	for _, sig := range card.CounterSignals {
		if !affectsHighScore(sig, card) {
			continue
		}
		if !reconciled(sig) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("unreconciled counter-signal: %s", sig.Signal))
		}
	}
	v.Warnings = append(v.Warnings, coverageWarnings(card.Quality)...)

	if len(v.Warnings) >= penaltyWarningCount {
		composite -= penalty
		if composite < 0 {
			composite = 0
		}
		v.Flags = append(v.Flags, "warning_penalty")
	}

	switch {
	case composite <= noGoMax:
		v.Classification = model.ClassificationNoGo
	case composite <= pivotMax:
		v.Classification = model.ClassificationPivot
	default:
		v.Classification = model.ClassificationGo
	}

	// Risk veto: unconditional. A GO under HIGH evidence risk stands only
	// when at least two counter-signals meet the stricter reconciliation bar.
	if card.Quality.RiskLevel == model.RiskHigh && v.Classification == model.ClassificationGo {
		if strictlyReconciledCount(card.CounterSignals) < vetoMinReconciled {
			v.Classification = model.ClassificationPivot
			v.Flags = append(v.Flags, "high_risk_veto")
		}
	}

	v.Composite = round1(composite)
	return v
}

func meanScore(scores []model.DimensionScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s.Score
	}
	return float64(sum) / float64(len(scores))
}

func lowestScore(scores []model.DimensionScore) int {
	lowest := 5
	for _, s := range scores {
		if s.Score < lowest {
			lowest = s.Score
		}
	}
	return lowest
}

func affectsHighScore(sig model.CounterSignal, card model.Scorecard) bool {
	for _, dim := range sig.AffectedDimensions {
		if score, ok := card.DimensionScoreFor(dim); ok && score.Score >= highScoreFloor {
			return true
		}
	}
	return false
}

// reconciled reports whether a counter-signal carries a complete, non-circular
// structured reconciliation: all three fields populated, evidence of at least
// 30 characters, and an explanation that is not a restatement of the signal.
func reconciled(sig model.CounterSignal) bool {
	if sig.WhyScoreHolds == "" || sig.WhatWouldChangeScore == "" || sig.EvidenceCited == "" {
		return false
	}
	if len(sig.EvidenceCited) < minStructuredEvidence {
		return false
	}
	if gate.Similarity(sig.WhyScoreHolds, sig.Signal) >= circularThreshold {
		return false
	}
	return true
}

// strictlyReconciled is the bar a counter-signal must meet to count against
// the risk veto: structured evidence of 30+ characters with all fields
// populated, or a legacy free-text reconciliation of 50+ characters.
func strictlyReconciled(sig model.CounterSignal) bool {
	if reconciled(sig) {
		return true
	}
	return len(sig.Reconciliation) >= minLegacyReconciliation
}

func strictlyReconciledCount(signals []model.CounterSignal) int {
	count := 0
	for _, sig := range signals {
		if strictlyReconciled(sig) {
			count++
		}
	}
	return count
}

func coverageWarnings(q model.EvidenceQuality) []string {
	var warnings []string
	if q.ContradictedCritical {
		warnings = append(warnings, "critical claim contradicted by external evidence")
	}
	if q.ExternalTotal > 0 && q.SupportRatio() < lowCoverageRatio {
		warnings = append(warnings, fmt.Sprintf("low external evidence coverage: %d/%d claims supported",
			q.ExternalSupported, q.ExternalTotal))
	}
	return warnings
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
