package run

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxislabs/vetta/internal/db"
	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/model"
	"github.com/praxislabs/vetta/internal/producer"
)

// fakeProducer returns a canned recording stream.
type fakeProducer struct {
	stream string
	err    error
	req    producer.Request
}

func (f *fakeProducer) Produce(_ context.Context, req producer.Request) ([]byte, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.stream), nil
}

func (f *fakeProducer) Describe() string { return "fake" }

const completeStream = `{"op":"record_knockout","criterion":"problem_reality","result":true,"evidence":"14 of 20 interviewees described the problem unprompted"}
{"op":"record_knockout","criterion":"channel_access","result":true,"evidence":"two distribution partners signed letters of intent"}
{"op":"record_knockout","criterion":"regulatory_ethical","result":true,"evidence":"counsel review found no licensing requirement"}
{"op":"record_dimension_score","dimension":"problem_severity","score":4,"evidence":"weekly workflow blocker for ops teams","source_tag":"idea_analysis"}
{"op":"record_dimension_score","dimension":"market_opportunity","score":4,"evidence":"fragmented mid-market segment with no dominant vendor","source_tag":"market_context"}
{"op":"record_dimension_score","dimension":"competitive_differentiation","score":3,"evidence":"incumbents target enterprise accounts only"}
{"op":"record_dimension_score","dimension":"execution_feasibility","score":3,"evidence":"founding team shipped two comparable products"}
{"op":"record_dimension_score","dimension":"revenue_viability","score":3,"evidence":"pilot customers pay for manual alternatives today"}
{"op":"record_dimension_score","dimension":"adoption_risk","score":3,"evidence":"integration burden is a single webhook"}
{"op":"set_evidence_quality","risk_level":"LOW","external_supported":8,"external_total":10}
{"op":"narrative_section","section":"executive_summary","text":"A credible wedge with real demand signals."}
`

func newPipeline(t *testing.T, prod producer.Runner) (*Pipeline, *db.Store, string) {
	t.Helper()
	dataDir := t.TempDir()
	conn, err := db.Open(filepath.Join(dataDir, "vetta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	store := db.NewStore(conn)
	return New(store, prod, gate.DefaultRules(), dataDir), store, dataDir
}

func TestExecutePersistsArtifact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	prod := &fakeProducer{stream: completeStream}
	pipeline, store, dataDir := newPipeline(t, prod)

	res, err := pipeline.Execute(ctx, Options{Idea: "ops workflow copilot"})
	require.NoError(t, err)

	assert.Equal(t, model.ClassificationPivot, res.Output.Verdict.Classification)
	assert.InDelta(t, 3.3, res.Output.Verdict.Composite, 0.001)
	assert.Equal(t, model.ConfidenceHigh, res.Output.Verdict.Confidence)
	assert.Empty(t, res.Rejections)

	// The producer saw the allowlisted stage tags.
	assert.Contains(t, prod.req.StageTags, "idea_analysis")

	// The raw stream is kept for replay.
	raw, err := os.ReadFile(filepath.Join(dataDir, "runs", res.RunID, "stream.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, completeStream, string(raw))

	artifact, markdown, err := store.GetArtifact(ctx, res.RunID)
	require.NoError(t, err)
	assert.Contains(t, artifact, `"classification": "PIVOT"`)
	assert.Contains(t, markdown, "**Verdict:** PIVOT")

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.StatusComplete, runs[0].Status)
}

func TestExecuteRecordsRejections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// One high score without a source tag; the recovery line right after
	// supplies the tag so the scorecard still completes.
	s := strings.Replace(completeStream,
		`{"op":"record_dimension_score","dimension":"problem_severity","score":4,"evidence":"weekly workflow blocker for ops teams","source_tag":"idea_analysis"}`,
		`{"op":"record_dimension_score","dimension":"problem_severity","score":4,"evidence":"weekly workflow blocker for ops teams"}
{"op":"record_dimension_score","dimension":"problem_severity","score":4,"evidence":"weekly workflow blocker for ops teams","source_tag":"idea_analysis"}`,
		1)
	pipeline, store, _ := newPipeline(t, &fakeProducer{stream: s})

	res, err := pipeline.Execute(ctx, Options{Idea: "x"})
	require.NoError(t, err)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, gate.ReasonMissingSourceTag, res.Rejections[0].Reason)

	events, err := store.ListEvents(ctx, res.RunID)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "recording_rejected")
}

func TestExecuteIncompleteScorecardFailsRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	// Only one knockout: the scorecard can never finalize.
	partial := `{"op":"record_knockout","criterion":"problem_reality","result":true,"evidence":"e"}` + "\n"
	pipeline, store, _ := newPipeline(t, &fakeProducer{stream: partial})

	res, err := pipeline.Execute(ctx, Options{Idea: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalize")

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.StatusFailed, runs[0].Status)

	// No artifact survives a failed run.
	_, _, err = store.GetArtifact(ctx, res.RunID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestExecuteProducerFailureFailsRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pipeline, store, _ := newPipeline(t, &fakeProducer{err: errors.New("boom")})

	_, err := pipeline.Execute(ctx, Options{Idea: "x"})
	require.Error(t, err)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, db.StatusFailed, runs[0].Status)
}

func TestReplayUsesStreamContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pipeline, _, _ := newPipeline(t, nil)

	s := completeStream +
		`{"op":"run_context","customer_job":"keep incident handoffs from dropping context","stages_run":["idea_analysis","market_context"]}` + "\n"
	res, err := pipeline.Replay(ctx, Options{Idea: "ops workflow copilot"}, strings.NewReader(s))
	require.NoError(t, err)
	assert.Equal(t, model.ClassificationPivot, res.Output.Verdict.Classification)
}

func TestExecuteRequiresIdea(t *testing.T) {
	t.Parallel()

	pipeline, _, _ := newPipeline(t, &fakeProducer{stream: completeStream})
	_, err := pipeline.Execute(context.Background(), Options{})
	require.Error(t, err)
}

func TestPruneRemovesOrphanedRunDirs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pipeline, _, dataDir := newPipeline(t, &fakeProducer{stream: completeStream})

	_, err := pipeline.Execute(ctx, Options{Idea: "first idea"})
	require.NoError(t, err)
	_, err = pipeline.Execute(ctx, Options{Idea: "second idea"})
	require.NoError(t, err)

	res, err := pipeline.Prune(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, 1, res.DirsRemoved)

	// The surviving run's directory is the only one left, and it matches
	// the surviving store row.
	runs, err := pipeline.store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	entries, err := os.ReadDir(filepath.Join(dataDir, "runs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, runs[0].RunID, entries[0].Name())
}
