// Package run orchestrates one assessment end to end: drive the producer,
// replay its recording stream through the gate, compute the verdict, merge
// the narrative, and persist the artifact.
package run

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/praxislabs/vetta/internal/consistency"
	"github.com/praxislabs/vetta/internal/db"
	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/merge"
	"github.com/praxislabs/vetta/internal/model"
	"github.com/praxislabs/vetta/internal/producer"
	"github.com/praxislabs/vetta/internal/render"
	"github.com/praxislabs/vetta/internal/scorecard"
	"github.com/praxislabs/vetta/internal/stream"
	"github.com/praxislabs/vetta/internal/verdict"
)

// Pipeline executes assessment runs against one data directory.
type Pipeline struct {
	store    *db.Store
	producer producer.Runner
	rules    gate.Rules
	dataDir  string
}

// Options are the per-run inputs.
type Options struct {
	Idea        string
	CustomerJob string
	StagesRun   []string
}

// Result summarizes a completed run.
type Result struct {
	RunID               string
	Output              model.MergedOutput
	Rejections          []stream.Rejection
	ConsistencyWarnings []string
	ArtifactJSON        []byte
	Markdown            string
}

// New constructs a pipeline. The producer may be nil for replay-only use.
func New(store *db.Store, prod producer.Runner, rules gate.Rules, dataDir string) *Pipeline {
	return &Pipeline{
		store:    store,
		producer: prod,
		rules:    rules,
		dataDir:  dataDir,
	}
}

// Execute drives the producer for a fresh assessment and assembles its
// recording stream into a persisted artifact.
func (p *Pipeline) Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.Idea == "" {
		return Result{}, fmt.Errorf("idea is required")
	}
	if p.producer == nil {
		return Result{}, fmt.Errorf("no producer configured")
	}

	lock, err := AcquireLock(p.dataDir)
	if err != nil {
		return Result{}, err
	}
	defer lock.Release()

	runID := uuid.NewString()
	startedAt := time.Now()
	runDir := filepath.Join(p.dataDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return Result{RunID: runID}, fmt.Errorf("create run dir: %w", err)
	}

	if err := p.store.CreateRun(ctx, runID, opts.Idea); err != nil {
		return Result{RunID: runID}, err
	}

	raw, err := p.producer.Produce(ctx, producer.Request{
		Idea:        opts.Idea,
		CustomerJob: opts.CustomerJob,
		StageTags:   p.rules.StageTags,
		RunDir:      runDir,
	})
	if err != nil {
		p.fail(ctx, runID, fmt.Sprintf("producer: %v", err))
		return Result{RunID: runID}, fmt.Errorf("producer: %w", err)
	}

	// Persist the raw stream so the run can be replayed and audited later.
	if err := os.WriteFile(filepath.Join(runDir, "stream.jsonl"), raw, 0o644); err != nil {
		p.fail(ctx, runID, fmt.Sprintf("persist stream: %v", err))
		return Result{RunID: runID}, fmt.Errorf("persist stream: %w", err)
	}
	_ = p.store.AppendEvent(ctx, runID, "stream_received", p.producer.Describe(), "")

	res, err := p.assemble(ctx, runID, bytes.NewReader(raw), opts)
	if err == nil {
		log.Info().
			Str("run_id", runID).
			Str("classification", string(res.Output.Verdict.Classification)).
			Float64("composite", res.Output.Verdict.Composite).
			Dur("duration", time.Since(startedAt)).
			Msg("run finished")
	}
	return res, err
}

// Replay assembles an artifact from an already-recorded stream. It persists
// a new run; the producer is never invoked.
func (p *Pipeline) Replay(ctx context.Context, opts Options, r io.Reader) (Result, error) {
	if opts.Idea == "" {
		return Result{}, fmt.Errorf("idea is required")
	}

	lock, err := AcquireLock(p.dataDir)
	if err != nil {
		return Result{}, err
	}
	defer lock.Release()

	runID := uuid.NewString()
	if err := p.store.CreateRun(ctx, runID, opts.Idea); err != nil {
		return Result{RunID: runID}, err
	}
	_ = p.store.AppendEvent(ctx, runID, "stream_received", "replay", "")

	return p.assemble(ctx, runID, r, opts)
}

// assemble replays the stream into a fresh accumulator and runs the scoring
// pipeline. A failed gate check on an individual recording is an event, not
// a failure; an incomplete scorecard fails the run and discards all partial
// state.
func (p *Pipeline) assemble(ctx context.Context, runID string, r io.Reader, opts Options) (Result, error) {
	builder := scorecard.NewBuilder(gate.New(p.rules))

	streamRes, err := stream.Replay(r, builder)
	if err != nil {
		p.fail(ctx, runID, fmt.Sprintf("stream: %v", err))
		return Result{RunID: runID}, fmt.Errorf("stream: %w", err)
	}
	for _, rej := range streamRes.Rejections {
		data, _ := json.Marshal(map[string]any{
			"line":   rej.Line,
			"op":     string(rej.Op),
			"reason": string(rej.Reason),
		})
		_ = p.store.AppendEvent(ctx, runID, "recording_rejected", rej.Detail, string(data))
	}

	card, err := builder.Finalize()
	if err != nil {
		p.fail(ctx, runID, fmt.Sprintf("finalize: %v", err))
		return Result{RunID: runID}, fmt.Errorf("finalize: %w", err)
	}

	v := verdict.Decide(card)
	out, patches := merge.Merge(card, v, streamRes.Narrative)
	for _, patch := range patches {
		_ = p.store.AppendEvent(ctx, runID, "narrative_patched",
			fmt.Sprintf("section %s asserted %s", patch.Section, patch.Asserted), "")
	}

	cctx := consistency.Context{
		StagesRun:   opts.StagesRun,
		CustomerJob: opts.CustomerJob,
	}
	if len(cctx.StagesRun) == 0 {
		cctx.StagesRun = streamRes.Context.StagesRun
	}
	if cctx.CustomerJob == "" {
		cctx.CustomerJob = streamRes.Context.CustomerJob
	}
	warnings := consistency.Run(out, cctx)
	for _, w := range warnings {
		_ = p.store.AppendEvent(ctx, runID, "consistency_warning", w, "")
	}

	artifact, err := render.JSON(&out)
	if err != nil {
		p.fail(ctx, runID, fmt.Sprintf("render: %v", err))
		return Result{RunID: runID}, err
	}
	markdown := render.Markdown(&out, opts.Idea)

	if err := p.store.FinishRun(ctx, runID, out.Verdict, string(artifact), markdown); err != nil {
		return Result{RunID: runID}, err
	}

	return Result{
		RunID:               runID,
		Output:              out,
		Rejections:          streamRes.Rejections,
		ConsistencyWarnings: warnings,
		ArtifactJSON:        artifact,
		Markdown:            markdown,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, runID, reason string) {
	if err := p.store.FailRun(ctx, runID, reason); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("failed to mark run failed")
	}
}
