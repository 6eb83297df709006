// Package model defines the typed records exchanged between the evidence
// producer, the scorecard accumulator, and the verdict engine.
package model

// Dimension is one of the six fixed qualitative axes scored 1-5.
type Dimension string

// The six scored dimensions.
const (
	DimensionProblemSeverity      Dimension = "problem_severity"
	DimensionMarketOpportunity    Dimension = "market_opportunity"
	DimensionDifferentiation      Dimension = "competitive_differentiation"
	DimensionExecutionFeasibility Dimension = "execution_feasibility"
	DimensionRevenueViability     Dimension = "revenue_viability"
	DimensionAdoptionRisk         Dimension = "adoption_risk"
)

// Dimensions lists all scored dimensions in canonical order.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionProblemSeverity,
		DimensionMarketOpportunity,
		DimensionDifferentiation,
		DimensionExecutionFeasibility,
		DimensionRevenueViability,
		DimensionAdoptionRisk,
	}
}

// Valid reports whether d is one of the six fixed dimensions.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionProblemSeverity, DimensionMarketOpportunity, DimensionDifferentiation,
		DimensionExecutionFeasibility, DimensionRevenueViability, DimensionAdoptionRisk:
		return true
	}
	return false
}

// KnockoutCriterion is a binary pass/fail gate that can force outright
// rejection independent of dimension scores.
type KnockoutCriterion string

// The three knockout criteria.
const (
	KnockoutProblemReality    KnockoutCriterion = "problem_reality"
	KnockoutChannelAccess     KnockoutCriterion = "channel_access"
	KnockoutRegulatoryEthical KnockoutCriterion = "regulatory_ethical"
)

// KnockoutCriteria lists all knockout criteria in canonical order.
func KnockoutCriteria() []KnockoutCriterion {
	return []KnockoutCriterion{
		KnockoutProblemReality,
		KnockoutChannelAccess,
		KnockoutRegulatoryEthical,
	}
}

// Valid reports whether k is one of the three fixed criteria.
func (k KnockoutCriterion) Valid() bool {
	switch k {
	case KnockoutProblemReality, KnockoutChannelAccess, KnockoutRegulatoryEthical:
		return true
	}
	return false
}

// RiskLevel grades the overall health of the evidence base.
type RiskLevel string

// Risk levels, lowest to highest.
const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// Confidence labels how trustworthy a verdict is given evidence coverage.
type Confidence string

// Confidence labels.
const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Classification is the actionable outcome of a run.
type Classification string

// Classifications, worst to best.
const (
	ClassificationNoGo  Classification = "NO-GO"
	ClassificationPivot Classification = "PIVOT"
	ClassificationGo    Classification = "GO"
)

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	return c == ClassificationNoGo || c == ClassificationPivot || c == ClassificationGo
}

// EvidenceRef is a cited fact together with the upstream research stage that
// produced it.
type EvidenceRef struct {
	Text        string `json:"text"`
	SourceStage string `json:"source_stage,omitempty"`
}

// KnockoutResult records the outcome of one knockout criterion.
type KnockoutResult struct {
	Criterion KnockoutCriterion `json:"criterion"`
	Result    bool              `json:"result"`
	Evidence  string            `json:"evidence"`
}

// DimensionScore is a 1-5 rating of one dimension, justified by evidence.
// SourceTag names the upstream stage the evidence came from; it is mandatory
// for scores of 4 or above.
type DimensionScore struct {
	Dimension Dimension `json:"dimension"`
	Score     int       `json:"score"`
	Evidence  string    `json:"evidence"`
	SourceTag string    `json:"source_tag,omitempty"`
}

// CounterSignal is evidence arguing against a high score on one or more
// dimensions, together with the structured reconciliation of why the score
// holds anyway.
type CounterSignal struct {
	Signal               string      `json:"signal"`
	Source               string      `json:"source"`
	AffectedDimensions   []Dimension `json:"affected_dimensions"`
	EvidenceCited        string      `json:"evidence_cited"`
	WhyScoreHolds        string      `json:"why_score_holds"`
	WhatWouldChangeScore string      `json:"what_would_change_score"`
	Resolved             bool        `json:"resolved"`
	// Reconciliation carries legacy free-text reconciliation for producers
	// that have not migrated to the structured fields.
	Reconciliation string `json:"reconciliation,omitempty"`
}

// EvidenceQuality summarizes the health of the evidence base for a run.
type EvidenceQuality struct {
	RiskLevel            RiskLevel `json:"risk_level"`
	ExternalSupported    int       `json:"external_supported"`
	ExternalTotal        int       `json:"external_total"`
	ContradictedCritical bool      `json:"contradicted_critical"`
}

// SupportRatio returns external_supported / external_total, or 0 when no
// external claims were made.
func (q EvidenceQuality) SupportRatio() float64 {
	if q.ExternalTotal <= 0 {
		return 0
	}
	return float64(q.ExternalSupported) / float64(q.ExternalTotal)
}
