package model

// Scorecard is the finalized, immutable snapshot of one run's assessments.
// It is produced by scorecard.Builder.Finalize and consumed exactly once by
// the verdict engine; nothing downstream mutates it.
type Scorecard struct {
	Knockouts      []KnockoutResult `json:"knockouts"`
	Dimensions     []DimensionScore `json:"dimensions"`
	CounterSignals []CounterSignal  `json:"counter_signals"`
	Quality        EvidenceQuality  `json:"evidence_quality"`
}

// FailedKnockouts returns the criteria that failed their gate.
func (s Scorecard) FailedKnockouts() []KnockoutCriterion {
	var failed []KnockoutCriterion
	for _, k := range s.Knockouts {
		if !k.Result {
			failed = append(failed, k.Criterion)
		}
	}
	return failed
}

// DimensionScoreFor returns the recorded score for a dimension.
func (s Scorecard) DimensionScoreFor(d Dimension) (DimensionScore, bool) {
	for _, ds := range s.Dimensions {
		if ds.Dimension == d {
			return ds, true
		}
	}
	return DimensionScore{}, false
}

// Verdict is the computed decision for a finalized scorecard. It is a pure
// function of the scorecard: the same input always yields the same output.
type Verdict struct {
	Classification Classification `json:"classification"`
	Composite      float64        `json:"composite"`
	Confidence     Confidence     `json:"confidence"`
	Warnings       []string       `json:"warnings"`
	Flags          []string       `json:"flags"`
}

// Narrative is the free-text prose produced by the external collaborator,
// keyed by section name (executive_summary, findings, next_steps, ...).
type Narrative map[string]string

// Clone returns a deep copy so merge output never aliases producer state.
func (n Narrative) Clone() Narrative {
	out := make(Narrative, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

// MergedOutput is the final per-run artifact: the scorecard, the computed
// verdict, and the verdict-corrected narrative. It is immutable once
// produced; a revised run supersedes it with a new artifact.
type MergedOutput struct {
	Knockouts       []KnockoutResult `json:"knockouts"`
	Dimensions      []DimensionScore `json:"dimensions"`
	CounterSignals  []CounterSignal  `json:"counter_signals"`
	RiskLevel       RiskLevel        `json:"risk_level"`
	EvidenceQuality EvidenceQuality  `json:"evidence_quality"`
	Verdict         Verdict          `json:"verdict"`
	Narrative       Narrative        `json:"narrative"`
}
