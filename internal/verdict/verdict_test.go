package verdict

import (
	"testing"

	"github.com/praxislabs/vetta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingKnockouts() []model.KnockoutResult {
	var out []model.KnockoutResult
	for _, criterion := range model.KnockoutCriteria() {
		out = append(out, model.KnockoutResult{Criterion: criterion, Result: true, Evidence: "verified"})
	}
	return out
}

func scoredDimensions(scores ...int) []model.DimensionScore {
	dims := model.Dimensions()
	out := make([]model.DimensionScore, 0, len(scores))
	for i, score := range scores {
		out = append(out, model.DimensionScore{
			Dimension: dims[i],
			Score:     score,
			Evidence:  "distinct supporting evidence",
			SourceTag: "market_context",
		})
	}
	return out
}

func card(scores []model.DimensionScore, quality model.EvidenceQuality, signals ...model.CounterSignal) model.Scorecard {
	return model.Scorecard{
		Knockouts:      passingKnockouts(),
		Dimensions:     scores,
		CounterSignals: signals,
		Quality:        quality,
	}
}

func reconciledSignal(dim model.Dimension) model.CounterSignal {
	return model.CounterSignal{
		Signal:               "a well-funded incumbent announced an overlapping product line",
		Source:               "market_context",
		AffectedDimensions:   []model.Dimension{dim},
		EvidenceCited:        "their launch targets enterprise accounts, not our mid-market wedge",
		WhyScoreHolds:        "pilot buyers chose us for the compliance workflow the incumbent lacks",
		WhatWouldChangeScore: "losing two of the three pilot renewals to the incumbent offering",
		Resolved:             true,
	}
}

func TestAllStrongScoresYieldGo(t *testing.T) {
	t.Parallel()

	quality := model.EvidenceQuality{RiskLevel: model.RiskLow, ExternalSupported: 9, ExternalTotal: 10}
	v := Decide(card(scoredDimensions(5, 5, 5, 5, 5, 5), quality))

	assert.Equal(t, model.ClassificationGo, v.Classification)
	assert.Equal(t, 5.0, v.Composite)
	assert.Equal(t, model.ConfidenceHigh, v.Confidence)
	assert.Empty(t, v.Warnings)
}

func TestFloorRuleCapsComposite(t *testing.T) {
	t.Parallel()

	quality := model.EvidenceQuality{RiskLevel: model.RiskLow, ExternalSupported: 9, ExternalTotal: 10}
	v := Decide(card(scoredDimensions(5, 5, 5, 5, 5, 1), quality))

	// Raw mean 4.33, clamped to exactly 3.0.
	assert.Equal(t, 3.0, v.Composite)
	assert.Equal(t, model.ClassificationPivot, v.Classification)
	assert.Contains(t, v.Flags, "composite_floored")
}

func TestKnockoutDominance(t *testing.T) {
	t.Parallel()

	c := card(scoredDimensions(5, 5, 5, 5, 5, 5), model.EvidenceQuality{RiskLevel: model.RiskLow, ExternalSupported: 10, ExternalTotal: 10})
	c.Knockouts[1] = model.KnockoutResult{Criterion: model.KnockoutChannelAccess, Result: false, Evidence: "no path to buyers"}

	v := Decide(c)
	assert.Equal(t, model.ClassificationNoGo, v.Classification)
	assert.Equal(t, 0.0, v.Composite)
	assert.Contains(t, v.Flags, "knockout_failed:channel_access")
}

func TestRiskVetoDowngradesGo(t *testing.T) {
	t.Parallel()

	// Mean 25/6 = 4.17, rounds to 4.2, maps to GO.
	scores := scoredDimensions(5, 4, 4, 4, 4, 4)
	quality := model.EvidenceQuality{RiskLevel: model.RiskHigh, ExternalSupported: 8, ExternalTotal: 10}

	v := Decide(card(scores, quality, reconciledSignal(model.DimensionProblemSeverity)))
	assert.Equal(t, model.ClassificationPivot, v.Classification)
	assert.Equal(t, 4.2, v.Composite)
	assert.Contains(t, v.Flags, "high_risk_veto")
}

func TestRiskVetoLiftedByTwoReconciledSignals(t *testing.T) {
	t.Parallel()

	scores := scoredDimensions(5, 4, 4, 4, 4, 4)
	quality := model.EvidenceQuality{RiskLevel: model.RiskHigh, ExternalSupported: 8, ExternalTotal: 10}
	second := reconciledSignal(model.DimensionMarketOpportunity)
	second.Signal = "pilot conversion lagged behind the survey intent numbers"
	second.WhyScoreHolds = "conversion recovered once onboarding was shortened in week three"
	second.EvidenceCited = "cohort two converted at 38% after the onboarding fix shipped"

	v := Decide(card(scores, quality, reconciledSignal(model.DimensionProblemSeverity), second))
	assert.Equal(t, model.ClassificationGo, v.Classification)
	assert.NotContains(t, v.Flags, "high_risk_veto")
}

func TestRiskVetoAcceptsLegacyReconciliation(t *testing.T) {
	t.Parallel()

	scores := scoredDimensions(5, 4, 4, 4, 4, 4)
	quality := model.EvidenceQuality{RiskLevel: model.RiskHigh, ExternalSupported: 8, ExternalTotal: 10}
	legacy := model.CounterSignal{
		Signal:         "regulatory review timelines are longer than modeled",
		Source:         "risk_assessment",
		Reconciliation: "counsel confirmed the product is exempt from the two slowest approval tracks in the target regions",
	}

	v := Decide(card(scores, quality, reconciledSignal(model.DimensionProblemSeverity), legacy))
	assert.Equal(t, model.ClassificationGo, v.Classification)
}

func TestUnreconciledSignalsWarnAndPenalize(t *testing.T) {
	t.Parallel()

	scores := scoredDimensions(4, 4, 4, 4, 4, 4)
	quality := model.EvidenceQuality{RiskLevel: model.RiskLow, ExternalSupported: 9, ExternalTotal: 10}
	bare := model.CounterSignal{
		Signal:             "churn in the trial cohort doubled in week four",
		Source:             "risk_assessment",
		AffectedDimensions: []model.Dimension{model.DimensionProblemSeverity},
	}
	short := model.CounterSignal{
		Signal:               "enterprise buyers balked at the pricing model",
		Source:               "market_context",
		AffectedDimensions:   []model.Dimension{model.DimensionMarketOpportunity},
		EvidenceCited:        "too short",
		WhyScoreHolds:        "pricing is being reworked",
		WhatWouldChangeScore: "continued pushback after the rework",
	}

	v := Decide(card(scores, quality, bare, short))
	require.Len(t, v.Warnings, 2)
	assert.Contains(t, v.Flags, "warning_penalty")
	// 4.0 - 0.5 penalty lands on PIVOT.
	assert.Equal(t, 3.5, v.Composite)
	assert.Equal(t, model.ClassificationPivot, v.Classification)
}

func TestCircularReconciliationRejected(t *testing.T) {
	t.Parallel()

	scores := scoredDimensions(4, 4, 4, 4, 4, 4)
	quality := model.EvidenceQuality{RiskLevel: model.RiskLow, ExternalSupported: 9, ExternalTotal: 10}
	circular := model.CounterSignal{
		Signal:               "churn in the trial cohort doubled in week four",
		Source:               "risk_assessment",
		AffectedDimensions:   []model.Dimension{model.DimensionProblemSeverity},
		EvidenceCited:        "retention dashboards for the trial cohort, weeks one through six",
		WhyScoreHolds:        "the trial cohort churn doubled in week four",
		WhatWouldChangeScore: "further churn growth",
	}

	v := Decide(card(scores, quality, circular))
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "unreconciled counter-signal")
}

func TestThresholdBoundaries(t *testing.T) {
	t.Parallel()

	quality := model.EvidenceQuality{RiskLevel: model.RiskLow, ExternalSupported: 9, ExternalTotal: 10}

	// Mean exactly 2.0.
	v := Decide(card(scoredDimensions(2, 2, 2, 2, 2, 2), quality))
	assert.Equal(t, model.ClassificationNoGo, v.Classification)

	// Mean exactly 3.5 is still PIVOT.
	v = Decide(card(scoredDimensions(3, 3, 4, 4, 3, 4), quality))
	assert.Equal(t, model.ClassificationPivot, v.Classification)
	assert.Equal(t, 3.5, v.Composite)

	// Mean 22/6 = 3.67 crosses into GO.
	v = Decide(card(scoredDimensions(4, 4, 4, 4, 3, 3), quality))
	assert.Equal(t, model.ClassificationGo, v.Classification)
}

func TestCompositeStaysInRange(t *testing.T) {
	t.Parallel()

	grids := [][]int{
		{1, 1, 1, 1, 1, 1},
		{5, 5, 5, 5, 5, 5},
		{1, 5, 1, 5, 1, 5},
		{2, 2, 2, 2, 2, 3},
	}
	for _, grid := range grids {
		quality := model.EvidenceQuality{RiskLevel: model.RiskHigh, ExternalSupported: 0, ExternalTotal: 10, ContradictedCritical: true}
		v := Decide(card(scoredDimensions(grid...), quality))
		assert.GreaterOrEqual(t, v.Composite, 0.0)
		assert.LessOrEqual(t, v.Composite, 5.0)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	t.Parallel()

	quality := model.EvidenceQuality{RiskLevel: model.RiskHigh, ExternalSupported: 4, ExternalTotal: 10}
	c := card(scoredDimensions(5, 4, 3, 2, 4, 5), quality,
		reconciledSignal(model.DimensionProblemSeverity),
		model.CounterSignal{Signal: "raw objection", Source: "risk_assessment",
			AffectedDimensions: []model.Dimension{model.DimensionRevenueViability}})

	first := Decide(c)
	second := Decide(c)
	require.Equal(t, first, second)
}
