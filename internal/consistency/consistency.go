// Package consistency runs independent cross-field checks over a merged run
// artifact. Findings are advisory: they are attached to the artifact for
// human review and never change the verdict.
package consistency

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/model"
)

// Context carries upstream evidence metadata the validators compare against.
type Context struct {
	// StagesRun lists the upstream research stages that actually produced
	// claims during this run.
	StagesRun []string
	// CustomerJob is the job statement the idea analysis anchored on.
	CustomerJob string
}

// Check inspects one aspect of the artifact and returns zero or more warnings.
type Check func(out model.MergedOutput, ctx Context) []string

// Checks returns all validators in fixed evaluation order.
func Checks() []Check {
	return []Check{
		revenueEvidence,
		claimOrigin,
		jobAlignment,
		conceptHealthCap,
		adoptionInputs,
		marketSizePlausibility,
	}
}

// Run executes every validator and collects their warnings.
func Run(out model.MergedOutput, ctx Context) []string {
	var warnings []string
	for _, check := range Checks() {
		warnings = append(warnings, check(out, ctx)...)
	}
	return warnings
}

var revenueTerms = []string{"revenue", "pricing", "price", "subscription", "arpu", "willingness to pay", "paid", "margin"}

// revenueEvidence expects a high revenue-viability score to be justified by
// evidence that actually talks about money.
func revenueEvidence(out model.MergedOutput, _ Context) []string {
	score, ok := dimensionScore(out, model.DimensionRevenueViability)
	if !ok || score.Score < 4 {
		return nil
	}
	lowered := strings.ToLower(score.Evidence)
	for _, term := range revenueTerms {
		if strings.Contains(lowered, term) {
			return nil
		}
	}
	return []string{fmt.Sprintf("revenue_viability scored %d but its evidence cites no revenue signal", score.Score)}
}

// claimOrigin cross-checks source tags against the stages that actually ran.
func claimOrigin(out model.MergedOutput, ctx Context) []string {
	if len(ctx.StagesRun) == 0 {
		return nil
	}
	ran := make(map[string]struct{}, len(ctx.StagesRun))
	for _, stage := range ctx.StagesRun {
		ran[strings.ToLower(stage)] = struct{}{}
	}
	var warnings []string
	for _, score := range out.Dimensions {
		if score.SourceTag == "" {
			continue
		}
		if _, ok := ran[strings.ToLower(score.SourceTag)]; !ok {
			warnings = append(warnings, fmt.Sprintf(
				"%s cites stage %s, which produced no claims this run", score.Dimension, score.SourceTag))
		}
	}
	return warnings
}

// jobAlignment expects the executive summary to stay anchored on the
// customer job statement from the idea analysis.
func jobAlignment(out model.MergedOutput, ctx Context) []string {
	if ctx.CustomerJob == "" {
		return nil
	}
	summary, ok := out.Narrative["executive_summary"]
	if !ok || summary == "" {
		return nil
	}
	if gate.Similarity(ctx.CustomerJob, summary) >= 0.10 {
		return nil
	}
	return []string{"executive summary does not reference the customer job statement"}
}

// conceptHealthCap flags a near-perfect composite resting on a shaky
// evidence base.
func conceptHealthCap(out model.MergedOutput, _ Context) []string {
	if out.Verdict.Composite >= 4.5 && out.EvidenceQuality.RiskLevel != model.RiskLow {
		return []string{fmt.Sprintf(
			"composite %.1f exceeds the concept-health cap for %s evidence risk",
			out.Verdict.Composite, out.EvidenceQuality.RiskLevel)}
	}
	return nil
}

// adoptionInputs flags a high adoption score coexisting with an unresolved
// counter-signal against it.
func adoptionInputs(out model.MergedOutput, _ Context) []string {
	score, ok := dimensionScore(out, model.DimensionAdoptionRisk)
	if !ok || score.Score < 4 {
		return nil
	}
	var warnings []string
	for _, sig := range out.CounterSignals {
		if sig.Resolved {
			continue
		}
		for _, dim := range sig.AffectedDimensions {
			if dim == model.DimensionAdoptionRisk {
				warnings = append(warnings, fmt.Sprintf(
					"adoption_risk scored %d with unresolved counter-signal: %s", score.Score, sig.Signal))
			}
		}
	}
	return warnings
}

var marketFigure = regexp.MustCompile(`(?i)\$?\s*([0-9]+(?:\.[0-9]+)?)\s*(billion|trillion|bn|tn|b\b|t\b)`)

// marketSizePlausibility sanity-checks market-size figures cited for the
// market opportunity dimension.
func marketSizePlausibility(out model.MergedOutput, _ Context) []string {
	score, ok := dimensionScore(out, model.DimensionMarketOpportunity)
	if !ok {
		return nil
	}
	matches := marketFigure.FindAllStringSubmatch(score.Evidence, -1)
	if len(matches) == 0 {
		if score.Score == 5 {
			return []string{"market_opportunity scored 5 without a quantified market size"}
		}
		return nil
	}
	var warnings []string
	for _, match := range matches {
		unit := strings.ToLower(strings.TrimSpace(match[2]))
		if unit == "trillion" || unit == "tn" || unit == "t" {
			warnings = append(warnings, fmt.Sprintf(
				"market size claim %q is implausibly large for a single venture", strings.TrimSpace(match[0])))
		}
	}
	return warnings
}

func dimensionScore(out model.MergedOutput, dim model.Dimension) (model.DimensionScore, bool) {
	for _, score := range out.Dimensions {
		if score.Dimension == dim {
			return score, true
		}
	}
	return model.DimensionScore{}, false
}
