package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/praxislabs/vetta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "vetta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStore(conn)
}

func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateRun(ctx, "run-1", "automated compliance audits"))
	require.NoError(t, store.AppendEvent(ctx, "run-1", "recording_rejected",
		"EvidenceDuplicate: evidence overlaps 80% with problem_severity", ""))

	verdict := model.Verdict{
		Classification: model.ClassificationGo,
		Composite:      4.2,
		Confidence:     model.ConfidenceHigh,
	}
	require.NoError(t, store.FinishRun(ctx, "run-1", verdict, `{"verdict":{}}`, "# Report"))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusComplete, runs[0].Status)
	assert.Equal(t, "GO", runs[0].Classification)
	assert.Equal(t, 4.2, runs[0].Composite)

	artifactJSON, markdown, err := store.GetArtifact(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, `{"verdict":{}}`, artifactJSON)
	assert.Equal(t, "# Report", markdown)

	events, err := store.ListEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "run_started", events[0].Type)
	assert.Equal(t, "recording_rejected", events[1].Type)
	assert.Equal(t, "run_finalized", events[2].Type)
}

func TestFailedRunHasNoArtifact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.CreateRun(ctx, "run-1", "an idea"))
	require.NoError(t, store.FailRun(ctx, "run-1", "incomplete scorecard"))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)

	_, _, err = store.GetArtifact(ctx, "run-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPruneKeepLast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)

	for _, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, store.CreateRun(ctx, id, "idea"))
	}

	deleted, err := store.PruneRuns(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPruneKeepDaysRetainsRecentRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.CreateRun(ctx, "run-a", "idea"))

	deleted, err := store.PruneRuns(ctx, 0, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestPruneRejectsEmptyRetentionPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.CreateRun(ctx, "run-a", "idea"))

	_, err := store.PruneRuns(ctx, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keep-last or keep-days")

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
