// Package merge combines a computed verdict with the externally authored
// narrative. The computed classification and composite are authoritative:
// any classification the narrative asserts is rewritten to match them, and
// narrative content never alters the verdict.
package merge

import (
	"regexp"
	"sort"
	"strings"

	"github.com/praxislabs/vetta/internal/model"
)

// verdictPhrase matches verdict-bearing statements in prose, e.g.
// "verdict: GO", "the recommendation is PIVOT", "decision - NO-GO".
// Group 1 is the lead-in, group 2 the asserted classification.
var verdictPhrase = regexp.MustCompile(
	`(?i)\b((?:final\s+)?(?:verdict|recommendation|classification|decision)(?:\s+is|\s*[:\-])\s*)(NO[\s-]?GO|PIVOT|GO)\b`)

// Patch records one classification correction made to the narrative.
type Patch struct {
	Section  string
	Asserted model.Classification
}

// Merge produces the immutable run artifact from a finalized scorecard, its
// computed verdict, and the collaborator's narrative. Returned patches list
// every narrative statement that contradicted the computed classification.
func Merge(card model.Scorecard, v model.Verdict, narrative model.Narrative) (model.MergedOutput, []Patch) {
	patched := narrative.Clone()
	var patches []Patch

	sections := make([]string, 0, len(patched))
	for name := range patched {
		sections = append(sections, name)
	}
	sort.Strings(sections)

	for _, section := range sections {
		text, sectionPatches := patchSection(section, patched[section], v.Classification)
		patched[section] = text
		patches = append(patches, sectionPatches...)
	}

	return model.MergedOutput{
		Knockouts:       card.Knockouts,
		Dimensions:      card.Dimensions,
		CounterSignals:  card.CounterSignals,
		RiskLevel:       card.Quality.RiskLevel,
		EvidenceQuality: card.Quality,
		Verdict:         v,
		Narrative:       patched,
	}, patches
}

func patchSection(section, text string, computed model.Classification) (string, []Patch) {
	var patches []Patch
	out := verdictPhrase.ReplaceAllStringFunc(text, func(match string) string {
		groups := verdictPhrase.FindStringSubmatch(match)
		asserted := normalizeClassification(groups[2])
		if asserted == computed {
			return match
		}
		patches = append(patches, Patch{Section: section, Asserted: asserted})
		return groups[1] + string(computed)
	})
	return out, patches
}

func normalizeClassification(token string) model.Classification {
	cleaned := strings.ToUpper(strings.TrimSpace(token))
	cleaned = strings.ReplaceAll(cleaned, " ", "-")
	if cleaned == "NOGO" {
		cleaned = "NO-GO"
	}
	return model.Classification(cleaned)
}
