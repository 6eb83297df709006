// Package gate enforces evidence quality rules on incoming assessments
// before they are accepted into a scorecard. Every check is stateless and
// returns a reason-coded rejection; a rejected call never mutates state.
package gate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/praxislabs/vetta/internal/model"
)

// Reason codes for rejected recording calls.
type Reason string

const (
	// ReasonRubricPhrase flags evidence that echoes blocklisted rubric phrasing.
	ReasonRubricPhrase Reason = "RubricPhraseDetected"
	// ReasonMissingSourceTag flags a score >= 4 without a valid source tag.
	ReasonMissingSourceTag Reason = "MissingSourceTag"
	// ReasonEvidenceDuplicate flags evidence overlapping a prior dimension's.
	ReasonEvidenceDuplicate Reason = "EvidenceDuplicate"
	// ReasonInvalidSourceStage flags a source tag outside the allowlist.
	ReasonInvalidSourceStage Reason = "InvalidSourceStage"
	// ReasonDuplicateAssignment flags re-recording a single-assignment field.
	ReasonDuplicateAssignment Reason = "DuplicateAssignment"
)

// RejectionError is returned when a recording call fails a gate check.
type RejectionError struct {
	Reason Reason
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Reject constructs a reason-coded rejection.
func Reject(reason Reason, format string, args ...any) *RejectionError {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the reason code from a gate rejection, if err is one.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// Rules configures the gate. The blocklist and allowlist are data, not
// constants, so the gate stays portable across upstream prompt wording.
type Rules struct {
	// RubricPhrases rejects evidence containing any entry, case-insensitively.
	RubricPhrases []string `yaml:"rubric_phrases"`
	// StageTags is the allowlist of upstream research stage identifiers.
	StageTags []string `yaml:"stage_tags"`
	// SimilarityThreshold rejects dimension evidence whose Jaccard similarity
	// with any previously accepted dimension's evidence meets or exceeds it.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// HighScoreFloor is the lowest score that requires a source tag.
	HighScoreFloor int `yaml:"high_score_floor"`
}

// DefaultRules returns the shipped gate configuration.
func DefaultRules() Rules {
	return Rules{
		RubricPhrases: []string{
			"per the rubric",
			"according to the rubric",
			"scoring criteria",
			"scoring guidelines",
			"as instructed",
			"the grading scale",
			"deserves a score of",
			"meets the bar for a",
		},
		StageTags: []string{
			"idea_analysis",
			"market_context",
			"risk_assessment",
			"concept_anchor",
			"pivot_strategy",
			"founder_context",
		},
		SimilarityThreshold: 0.70,
		HighScoreFloor:      4,
	}
}

// Gate applies Rules to candidate assessments.
type Gate struct {
	rules   Rules
	tagSet  map[string]struct{}
	phrases []string
}

// New builds a gate from rules, falling back to defaults for zero values.
func New(rules Rules) *Gate {
	def := DefaultRules()
	if len(rules.RubricPhrases) == 0 {
		rules.RubricPhrases = def.RubricPhrases
	}
	if len(rules.StageTags) == 0 {
		rules.StageTags = def.StageTags
	}
	if rules.SimilarityThreshold <= 0 || rules.SimilarityThreshold > 1 {
		rules.SimilarityThreshold = def.SimilarityThreshold
	}
	if rules.HighScoreFloor <= 0 {
		rules.HighScoreFloor = def.HighScoreFloor
	}

	tags := make(map[string]struct{}, len(rules.StageTags))
	for _, t := range rules.StageTags {
		tags[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	phrases := make([]string, 0, len(rules.RubricPhrases))
	for _, p := range rules.RubricPhrases {
		phrases = append(phrases, strings.ToLower(p))
	}
	return &Gate{rules: rules, tagSet: tags, phrases: phrases}
}

// Rules returns the effective rules after defaulting.
func (g *Gate) Rules() Rules { return g.rules }

// CheckRubricPhrase rejects evidence that merely echoes scoring instructions.
func (g *Gate) CheckRubricPhrase(evidence string) error {
	lowered := strings.ToLower(evidence)
	for _, phrase := range g.phrases {
		if strings.Contains(lowered, phrase) {
			return Reject(ReasonRubricPhrase, "evidence echoes rubric phrase %q", phrase)
		}
	}
	return nil
}

// CheckStageTag rejects tags outside the allowlist. An empty tag passes; the
// score-dependent requirement is CheckSourceTag's job.
func (g *Gate) CheckStageTag(tag string) error {
	if tag == "" {
		return nil
	}
	if _, ok := g.tagSet[strings.ToLower(strings.TrimSpace(tag))]; !ok {
		return Reject(ReasonInvalidSourceStage, "source stage %q is not in the allowlist", tag)
	}
	return nil
}

// CheckSourceTag enforces the source-tag requirement for a dimension score:
// scores at or above the high-score floor must carry a valid allowlisted tag.
func (g *Gate) CheckSourceTag(score int, tag string) error {
	if score < g.rules.HighScoreFloor {
		return g.CheckStageTag(tag)
	}
	if strings.TrimSpace(tag) == "" {
		return Reject(ReasonMissingSourceTag, "score %d requires a source tag", score)
	}
	if err := g.CheckStageTag(tag); err != nil {
		return err
	}
	return nil
}

// CheckDuplicate rejects evidence whose word-level Jaccard similarity with
// any previously accepted dimension's evidence meets the threshold. This
// forces each dimension to be justified by materially distinct evidence.
// Prior dimensions are checked in canonical order so the rejection detail
// names the same dimension on every run.
func (g *Gate) CheckDuplicate(evidence string, prior map[model.Dimension]string) error {
	for _, dim := range model.Dimensions() {
		accepted, ok := prior[dim]
		if !ok {
			continue
		}
		sim := Similarity(evidence, accepted)
		if sim >= g.rules.SimilarityThreshold {
			return Reject(ReasonEvidenceDuplicate,
				"evidence overlaps %.0f%% with %s", sim*100, dim)
		}
	}
	return nil
}

// CheckDimensionScore runs every stateless check for a candidate score in
// rejection-priority order: rubric phrase, tag validity, dedup.
func (g *Gate) CheckDimensionScore(score model.DimensionScore, prior map[model.Dimension]string) error {
	if err := g.CheckRubricPhrase(score.Evidence); err != nil {
		return err
	}
	if err := g.CheckSourceTag(score.Score, score.SourceTag); err != nil {
		return err
	}
	return g.CheckDuplicate(score.Evidence, prior)
}
