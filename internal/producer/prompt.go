package producer

import (
	"strings"
)

// instructions builds the system prompt describing the recording protocol.
// The collaborator does the research and argues the scores; the accumulator
// on our side enforces the evidence gate, so the prompt states the rules the
// gate will apply rather than trusting the collaborator to self-police.
func instructions(req Request) string {
	var b strings.Builder
	b.WriteString("You are a venture analyst. Assess the idea below and emit your assessment as JSON Lines: one JSON object per line, no prose, no markdown fences.\n")
	b.WriteString("Each line is {\"op\": <operation>, ...fields}. Operations:\n")
	b.WriteString("- record_knockout: criterion (problem_reality|channel_access|regulatory_ethical), result (bool), evidence (string). Record all three exactly once.\n")
	b.WriteString("- record_dimension_score: dimension (problem_severity|market_opportunity|competitive_differentiation|execution_feasibility|revenue_viability|adoption_risk), score (1-5 integer), evidence (string), source_tag (string). Record all six exactly once.\n")
	b.WriteString("- record_counter_signal: signal, source, affected_dimensions (list), evidence_cited, why_score_holds, what_would_change_score, resolved (bool). Record every material signal arguing against a score.\n")
	b.WriteString("- set_evidence_quality: risk_level (LOW|MEDIUM|HIGH), external_supported (int), external_total (int), contradicted_critical (bool). Record exactly once.\n")
	b.WriteString("- narrative_section: section (executive_summary|findings|next_steps), text. Write the prose sections last.\n")
	b.WriteString("Rules enforced on our side:\n")
	b.WriteString("- Evidence must be concrete facts from your research. Never describe the scoring rubric itself as evidence.\n")
	b.WriteString("- Scores of 4 or 5 require a source_tag naming one of the allowed research stages.\n")
	b.WriteString("- Re-used evidence across dimensions is rejected; each score needs its own support.\n")
	b.WriteString("- Do NOT state a GO/PIVOT/NO-GO verdict in narrative text; the verdict is computed, not asserted.\n")

	if len(req.StageTags) > 0 {
		b.WriteString("Allowed source_tag values: ")
		b.WriteString(strings.Join(req.StageTags, ", "))
		b.WriteString(".\n")
	}
	if req.CustomerJob != "" {
		b.WriteString("The customer job statement to anchor on: ")
		b.WriteString(req.CustomerJob)
		b.WriteString("\n")
	}
	return b.String()
}
