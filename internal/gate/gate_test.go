package gate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/praxislabs/vetta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(prefix string, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func TestSimilarityBoundary(t *testing.T) {
	t.Parallel()

	// 9 shared tokens, 13 in the union: 0.6923.
	below := strings.Join(append(tokens("w", 9), "only", "in"), " ")
	belowOther := strings.Join(append(tokens("w", 9), "two", "more"), " ")
	assert.Less(t, Similarity(below, belowOther), 0.70)

	// 7 shared tokens out of 10: exactly 0.70.
	at := strings.Join(tokens("w", 10), " ")
	atOther := strings.Join(tokens("w", 7), " ")
	assert.InDelta(t, 0.70, Similarity(at, atOther), 1e-9)

	// 10 shared tokens, 14 in the union: 0.714.
	above := strings.Join(tokens("w", 12), " ")
	aboveOther := strings.Join(append(tokens("w", 10), "fresh", "words"), " ")
	assert.Greater(t, Similarity(above, aboveOther), 0.70)
}

func TestSimilarityIgnoresCaseAndPunctuation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, Similarity("Churn is HIGH, per interviews.", "churn is high per interviews"))
	assert.Equal(t, 0.0, Similarity("alpha beta", "gamma delta"))
}

func TestCheckDuplicateUsesThreshold(t *testing.T) {
	t.Parallel()

	g := New(Rules{})
	prior := map[model.Dimension]string{
		model.DimensionProblemSeverity: strings.Join(tokens("w", 10), " "),
	}

	// Exactly at the 0.70 boundary: rejected.
	err := g.CheckDuplicate(strings.Join(tokens("w", 7), " "), prior)
	require.Error(t, err)
	reason, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonEvidenceDuplicate, reason)

	// Below the boundary: accepted.
	distinct := strings.Join(append(tokens("w", 9), "fresh", "angle"), " ")
	prior[model.DimensionProblemSeverity] = strings.Join(append(tokens("w", 9), "other", "words"), " ")
	assert.NoError(t, g.CheckDuplicate(distinct, prior))
}

func TestCheckDuplicateNamesDimensionsInCanonicalOrder(t *testing.T) {
	t.Parallel()

	g := New(Rules{})
	evidence := strings.Join(tokens("w", 10), " ")
	prior := map[model.Dimension]string{
		model.DimensionRevenueViability:  evidence,
		model.DimensionMarketOpportunity: evidence,
	}

	// Both priors overlap fully; the rejection must name the earlier
	// dimension in canonical order on every run.
	for i := 0; i < 10; i++ {
		err := g.CheckDuplicate(evidence, prior)
		require.Error(t, err)
		assert.Contains(t, err.Error(), string(model.DimensionMarketOpportunity))
		assert.NotContains(t, err.Error(), string(model.DimensionRevenueViability))
	}
}

func TestCheckRubricPhrase(t *testing.T) {
	t.Parallel()

	g := New(Rules{})

	err := g.CheckRubricPhrase("This clearly deserves a score of 5 given the interviews.")
	require.Error(t, err)
	reason, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonRubricPhrase, reason)

	// Case-insensitive.
	err = g.CheckRubricPhrase("PER THE RUBRIC this is strong.")
	require.Error(t, err)

	assert.NoError(t, g.CheckRubricPhrase("14 of 20 interviewees reported weekly churn pain."))
}

func TestCheckSourceTag(t *testing.T) {
	t.Parallel()

	g := New(Rules{})

	tests := []struct {
		name   string
		score  int
		tag    string
		reason Reason
	}{
		{"high score without tag", 4, "", ReasonMissingSourceTag},
		{"top score without tag", 5, "", ReasonMissingSourceTag},
		{"high score with unknown tag", 5, "water_cooler", ReasonInvalidSourceStage},
		{"low score without tag", 3, "", ""},
		{"low score with valid tag", 2, "market_context", ""},
		{"high score with valid tag", 5, "risk_assessment", ""},
		{"low score with unknown tag", 2, "water_cooler", ReasonInvalidSourceStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := g.CheckSourceTag(tt.score, tt.tag)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			reason, ok := ReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	g := New(Rules{SimilarityThreshold: 2.5})
	rules := g.Rules()
	assert.Equal(t, 0.70, rules.SimilarityThreshold)
	assert.Equal(t, 4, rules.HighScoreFloor)
	assert.NotEmpty(t, rules.RubricPhrases)
	assert.Contains(t, rules.StageTags, "idea_analysis")
}

func TestCustomRulesOverrideDefaults(t *testing.T) {
	t.Parallel()

	g := New(Rules{
		RubricPhrases: []string{"magic phrase"},
		StageTags:     []string{"custom_stage"},
	})

	assert.NoError(t, g.CheckRubricPhrase("per the rubric: fine under custom rules"))
	require.Error(t, g.CheckRubricPhrase("contains the MAGIC PHRASE somewhere"))

	assert.NoError(t, g.CheckStageTag("custom_stage"))
	require.Error(t, g.CheckStageTag("idea_analysis"))
}
