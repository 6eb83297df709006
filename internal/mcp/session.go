package mcp

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxislabs/vetta/internal/consistency"
	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/merge"
	"github.com/praxislabs/vetta/internal/model"
	"github.com/praxislabs/vetta/internal/scorecard"
	"github.com/praxislabs/vetta/internal/verdict"
)

// Session accumulates one assessment's recordings. All methods are safe for
// concurrent use; the SDK may dispatch tool calls from multiple goroutines.
type Session struct {
	ID        string
	Idea      string
	CreatedAt time.Time

	mu        sync.Mutex
	builder   *scorecard.Builder
	narrative model.Narrative
	output    *model.MergedOutput
}

// NewSession creates a session with a fresh accumulator behind the given
// gate rules.
func NewSession(idea string, rules gate.Rules) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Idea:      idea,
		CreatedAt: time.Now().UTC(),
		builder:   scorecard.NewBuilder(gate.New(rules)),
		narrative: model.Narrative{},
	}
}

// RecordKnockout forwards to the accumulator.
func (s *Session) RecordKnockout(criterion model.KnockoutCriterion, result bool, evidence string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.RecordKnockout(criterion, result, evidence)
}

// RecordDimensionScore forwards to the accumulator.
func (s *Session) RecordDimensionScore(dim model.Dimension, score int, evidence, sourceTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.RecordDimensionScore(dim, score, evidence, sourceTag)
}

// RecordCounterSignal forwards to the accumulator.
func (s *Session) RecordCounterSignal(sig model.CounterSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.RecordCounterSignal(sig)
}

// SetEvidenceQuality forwards to the accumulator.
func (s *Session) SetEvidenceQuality(q model.EvidenceQuality) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.SetEvidenceQuality(q)
}

// SetNarrativeSection stores one prose section, replacing any prior text for
// the same section name.
func (s *Session) SetNarrativeSection(name, text string) error {
	if name == "" {
		return fmt.Errorf("section name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output != nil {
		return fmt.Errorf("assessment already finalized")
	}
	s.narrative[name] = text
	return nil
}

// Finalize freezes the scorecard, computes the verdict, merges the
// narrative, and runs the post-merge validators. It can be called once;
// repeat calls return the cached result.
func (s *Session) Finalize(cctx consistency.Context) (model.MergedOutput, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.output != nil {
		return *s.output, consistency.Run(*s.output, cctx), nil
	}

	card, err := s.builder.Finalize()
	if err != nil {
		return model.MergedOutput{}, nil, err
	}
	v := verdict.Decide(card)
	out, _ := merge.Merge(card, v, s.narrative)
	s.output = &out
	return out, consistency.Run(out, cctx), nil
}

// Output returns the finalized artifact, if Finalize has run.
func (s *Session) Output() (model.MergedOutput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.output == nil {
		return model.MergedOutput{}, false
	}
	return *s.output, true
}
