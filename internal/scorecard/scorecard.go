// Package scorecard accumulates validated assessments for a single run.
//
// A Builder is owned by exactly one run: it is created empty at run start,
// mutated only through the gated recording calls below, frozen by Finalize,
// and discarded afterwards. Concurrent runs must each own their own Builder.
package scorecard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/model"
)

// IncompleteError is returned by Finalize when required assessments are
// missing. No partial or best-effort scorecard is ever produced.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete scorecard: missing %s", strings.Join(e.Missing, ", "))
}

// Builder records assessments for one run. It is not safe for concurrent
// use; isolation is enforced at the instance level, one Builder per run.
type Builder struct {
	gate      *gate.Gate
	knockouts map[model.KnockoutCriterion]model.KnockoutResult
	scores    map[model.Dimension]model.DimensionScore
	signals   []model.CounterSignal
	quality   *model.EvidenceQuality
	finalized bool
}

// NewBuilder creates an empty per-run accumulator validated by g.
func NewBuilder(g *gate.Gate) *Builder {
	return &Builder{
		gate:      g,
		knockouts: make(map[model.KnockoutCriterion]model.KnockoutResult),
		scores:    make(map[model.Dimension]model.DimensionScore),
	}
}

// RecordKnockout records the pass/fail outcome of one knockout criterion.
// Each of the three criteria may be recorded exactly once.
func (b *Builder) RecordKnockout(criterion model.KnockoutCriterion, result bool, evidence string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if !criterion.Valid() {
		return fmt.Errorf("unknown knockout criterion %q", criterion)
	}
	if strings.TrimSpace(evidence) == "" {
		return fmt.Errorf("knockout %s requires evidence", criterion)
	}
	if _, ok := b.knockouts[criterion]; ok {
		return gate.Reject(gate.ReasonDuplicateAssignment, "knockout %s already recorded", criterion)
	}
	b.knockouts[criterion] = model.KnockoutResult{
		Criterion: criterion,
		Result:    result,
		Evidence:  evidence,
	}
	return nil
}

// RecordDimensionScore records a 1-5 rating for one dimension. The gate
// rejects rubric-echo evidence, missing or invalid source tags on high
// scores, and evidence duplicating a previously accepted dimension's.
func (b *Builder) RecordDimensionScore(dimension model.Dimension, score int, evidence, sourceTag string) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if !dimension.Valid() {
		return fmt.Errorf("unknown dimension %q", dimension)
	}
	if score < 1 || score > 5 {
		return fmt.Errorf("dimension %s: score %d out of range [1,5]", dimension, score)
	}
	if strings.TrimSpace(evidence) == "" {
		return fmt.Errorf("dimension %s requires evidence", dimension)
	}
	if _, ok := b.scores[dimension]; ok {
		return gate.Reject(gate.ReasonDuplicateAssignment, "dimension %s already scored", dimension)
	}

	candidate := model.DimensionScore{
		Dimension: dimension,
		Score:     score,
		Evidence:  evidence,
		SourceTag: sourceTag,
	}
	if err := b.gate.CheckDimensionScore(candidate, b.acceptedEvidence()); err != nil {
		return err
	}
	b.scores[dimension] = candidate
	return nil
}

// RecordCounterSignal records evidence arguing against a high score. Counter
// signals may be recorded any number of times; the source must always be an
// allowlisted stage tag.
func (b *Builder) RecordCounterSignal(sig model.CounterSignal) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if strings.TrimSpace(sig.Signal) == "" {
		return fmt.Errorf("counter-signal requires signal text")
	}
	if strings.TrimSpace(sig.Source) == "" {
		return gate.Reject(gate.ReasonInvalidSourceStage, "counter-signal requires a source stage")
	}
	if err := b.gate.CheckStageTag(sig.Source); err != nil {
		return err
	}
	for _, d := range sig.AffectedDimensions {
		if !d.Valid() {
			return fmt.Errorf("counter-signal affects unknown dimension %q", d)
		}
	}
	b.signals = append(b.signals, sig)
	return nil
}

// SetEvidenceQuality records the aggregate evidence health, exactly once.
func (b *Builder) SetEvidenceQuality(q model.EvidenceQuality) error {
	if err := b.mutable(); err != nil {
		return err
	}
	if b.quality != nil {
		return gate.Reject(gate.ReasonDuplicateAssignment, "evidence quality already set")
	}
	if !q.RiskLevel.Valid() {
		return fmt.Errorf("unknown risk level %q", q.RiskLevel)
	}
	if q.ExternalSupported < 0 || q.ExternalTotal < 0 || q.ExternalSupported > q.ExternalTotal {
		return fmt.Errorf("invalid external claim counts %d/%d", q.ExternalSupported, q.ExternalTotal)
	}
	b.quality = &q
	return nil
}

// Finalize freezes the builder and returns the immutable scorecard snapshot.
// It fails with *IncompleteError unless all three knockouts, all six
// dimension scores, and the evidence quality summary are recorded.
func (b *Builder) Finalize() (model.Scorecard, error) {
	if b.finalized {
		return model.Scorecard{}, fmt.Errorf("scorecard already finalized")
	}

	var missing []string
	for _, criterion := range model.KnockoutCriteria() {
		if _, ok := b.knockouts[criterion]; !ok {
			missing = append(missing, "knockout:"+string(criterion))
		}
	}
	for _, dimension := range model.Dimensions() {
		if _, ok := b.scores[dimension]; !ok {
			missing = append(missing, "dimension:"+string(dimension))
		}
	}
	if b.quality == nil {
		missing = append(missing, "evidence_quality")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return model.Scorecard{}, &IncompleteError{Missing: missing}
	}

	card := model.Scorecard{
		Knockouts:      make([]model.KnockoutResult, 0, len(b.knockouts)),
		Dimensions:     make([]model.DimensionScore, 0, len(b.scores)),
		CounterSignals: append([]model.CounterSignal(nil), b.signals...),
		Quality:        *b.quality,
	}
	for _, criterion := range model.KnockoutCriteria() {
		card.Knockouts = append(card.Knockouts, b.knockouts[criterion])
	}
	for _, dimension := range model.Dimensions() {
		card.Dimensions = append(card.Dimensions, b.scores[dimension])
	}

	b.finalized = true
	return card, nil
}

// Finalized reports whether Finalize has succeeded on this builder.
func (b *Builder) Finalized() bool { return b.finalized }

func (b *Builder) mutable() error {
	if b.finalized {
		return fmt.Errorf("scorecard is finalized")
	}
	return nil
}

func (b *Builder) acceptedEvidence() map[model.Dimension]string {
	prior := make(map[model.Dimension]string, len(b.scores))
	for dimension, score := range b.scores {
		prior[dimension] = score.Evidence
	}
	return prior
}
