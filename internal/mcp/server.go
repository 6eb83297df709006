// Package mcp exposes the assessment recorder as an MCP tool server so an
// external collaborator can record knockouts, scores, counter-signals, and
// narrative over the Model Context Protocol instead of a JSON Lines stream.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/praxislabs/vetta/internal/consistency"
	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/logging"
	"github.com/praxislabs/vetta/internal/model"
	"github.com/praxislabs/vetta/internal/render"
	"github.com/praxislabs/vetta/internal/scorecard"
)

// Server wraps the MCP SDK server and manages one assessment session at a
// time. A second begin_assessment replaces a finished session but refuses to
// clobber an active one unless forced.
type Server struct {
	MCPServer *sdkmcp.Server

	rules gate.Rules

	mu      sync.Mutex
	session *Session
}

// NewServer creates an MCP server whose recording tools validate evidence
// against the given gate rules.
func NewServer(rules gate.Rules) *Server {
	s := &Server{rules: rules}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "vetta", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over the given transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, t sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, t)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "begin_assessment",
		Description: "Start an assessment session for one venture idea. Returns a session ID used by every other tool.",
	}, s.handleBeginAssessment)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "record_knockout",
		Description: "Record the pass/fail outcome of one knockout criterion with its supporting evidence.",
	}, s.handleRecordKnockout)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "record_dimension_score",
		Description: "Record a 1-5 score for one dimension. Scores of 4+ must cite a source_tag from an allowlisted research stage. Rejected recordings report a reason and may be retried with better evidence.",
	}, s.handleRecordDimensionScore)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "record_counter_signal",
		Description: "Record evidence arguing against a score, with the structured reconciliation of why the score holds.",
	}, s.handleRecordCounterSignal)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "set_evidence_quality",
		Description: "Set the run's evidence quality summary: risk level, external claim support counts, and contradiction flag.",
	}, s.handleSetEvidenceQuality)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "narrative_section",
		Description: "Set one prose section of the assessment narrative (executive_summary, findings, next_steps, ...).",
	}, s.handleNarrativeSection)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "finalize_assessment",
		Description: "Freeze the scorecard, compute the verdict, reconcile the narrative, and return the merged artifact.",
	}, s.handleFinalizeAssessment)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_verdict",
		Description: "Return the computed verdict for a finalized assessment.",
	}, s.handleGetVerdict)
}

// --- Tool input/output types ---

type beginAssessmentInput struct {
	Idea  string `json:"idea" jsonschema:"one-line description of the venture idea under assessment"`
	Force bool   `json:"force,omitempty" jsonschema:"replace an active session instead of failing"`
}

type beginAssessmentOutput struct {
	SessionID string `json:"session_id"`
}

type recordOutput struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type recordKnockoutInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from begin_assessment"`
	Criterion string `json:"criterion" jsonschema:"knockout criterion (problem_reality, channel_access, regulatory_ethical)"`
	Result    bool   `json:"result" jsonschema:"true if the criterion passes"`
	Evidence  string `json:"evidence" jsonschema:"evidence supporting the outcome"`
}

type recordDimensionScoreInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from begin_assessment"`
	Dimension string `json:"dimension" jsonschema:"scored dimension (problem_severity, market_opportunity, competitive_differentiation, execution_feasibility, revenue_viability, adoption_risk)"`
	Score     int    `json:"score" jsonschema:"integer score from 1 to 5"`
	Evidence  string `json:"evidence" jsonschema:"concrete evidence justifying the score"`
	SourceTag string `json:"source_tag,omitempty" jsonschema:"research stage the evidence came from; required for scores of 4 or above"`
}

type recordCounterSignalInput struct {
	SessionID            string   `json:"session_id" jsonschema:"session ID from begin_assessment"`
	Signal               string   `json:"signal" jsonschema:"the counter-signal being recorded"`
	Source               string   `json:"source" jsonschema:"research stage the signal came from"`
	AffectedDimensions   []string `json:"affected_dimensions,omitempty" jsonschema:"dimensions the signal argues against"`
	EvidenceCited        string   `json:"evidence_cited,omitempty" jsonschema:"evidence backing the reconciliation"`
	WhyScoreHolds        string   `json:"why_score_holds,omitempty" jsonschema:"why the affected scores hold despite the signal"`
	WhatWouldChangeScore string   `json:"what_would_change_score,omitempty" jsonschema:"observation that would force a score change"`
	Resolved             bool     `json:"resolved,omitempty" jsonschema:"true if the signal is considered resolved"`
	Reconciliation       string   `json:"reconciliation,omitempty" jsonschema:"legacy free-text reconciliation"`
}

type setEvidenceQualityInput struct {
	SessionID            string `json:"session_id" jsonschema:"session ID from begin_assessment"`
	RiskLevel            string `json:"risk_level" jsonschema:"overall evidence risk (LOW, MEDIUM, HIGH)"`
	ExternalSupported    int    `json:"external_supported" jsonschema:"externally supported claim count"`
	ExternalTotal        int    `json:"external_total" jsonschema:"total external claim count"`
	ContradictedCritical bool   `json:"contradicted_critical,omitempty" jsonschema:"true if a critical claim was contradicted by external evidence"`
}

type narrativeSectionInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from begin_assessment"`
	Section   string `json:"section" jsonschema:"section name (executive_summary, findings, next_steps, ...)"`
	Text      string `json:"text" jsonschema:"section prose"`
}

type finalizeAssessmentInput struct {
	SessionID   string   `json:"session_id" jsonschema:"session ID from begin_assessment"`
	StagesRun   []string `json:"stages_run,omitempty" jsonschema:"research stages that actually executed this run"`
	CustomerJob string   `json:"customer_job,omitempty" jsonschema:"the customer job statement the idea anchors on"`
}

type finalizeAssessmentOutput struct {
	Classification string   `json:"classification"`
	Composite      float64  `json:"composite"`
	Confidence     string   `json:"confidence"`
	Warnings       []string `json:"warnings,omitempty"`
	Flags          []string `json:"flags,omitempty"`
	Consistency    []string `json:"consistency_warnings,omitempty"`
	ArtifactJSON   string   `json:"artifact_json"`
	Incomplete     []string `json:"incomplete,omitempty"`
}

type getVerdictInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from begin_assessment"`
}

type getVerdictOutput struct {
	Classification string   `json:"classification"`
	Composite      float64  `json:"composite"`
	Confidence     string   `json:"confidence"`
	Warnings       []string `json:"warnings,omitempty"`
	Flags          []string `json:"flags,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleBeginAssessment(_ context.Context, _ *sdkmcp.CallToolRequest, input beginAssessmentInput) (*sdkmcp.CallToolResult, beginAssessmentOutput, error) {
	logger := logging.Component("mcp")
	if input.Idea == "" {
		return nil, beginAssessmentOutput{}, fmt.Errorf("idea is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		if _, done := s.session.Output(); !done && !input.Force {
			return nil, beginAssessmentOutput{}, fmt.Errorf("an assessment is already in progress (id=%s)", s.session.ID)
		}
		logger.Info().Str("old_id", s.session.ID).Msg("replacing session")
	}
	s.session = NewSession(input.Idea, s.rules)
	logger.Info().Str("session_id", s.session.ID).Str("idea", input.Idea).Msg("assessment started")

	return nil, beginAssessmentOutput{SessionID: s.session.ID}, nil
}

func (s *Server) handleRecordKnockout(_ context.Context, _ *sdkmcp.CallToolRequest, input recordKnockoutInput) (*sdkmcp.CallToolResult, recordOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, recordOutput{}, err
	}
	err = sess.RecordKnockout(model.KnockoutCriterion(input.Criterion), input.Result, input.Evidence)
	return nil, recordResult(err), passthrough(err)
}

func (s *Server) handleRecordDimensionScore(_ context.Context, _ *sdkmcp.CallToolRequest, input recordDimensionScoreInput) (*sdkmcp.CallToolResult, recordOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, recordOutput{}, err
	}
	err = sess.RecordDimensionScore(model.Dimension(input.Dimension), input.Score, input.Evidence, input.SourceTag)
	if reason, ok := gate.ReasonOf(err); ok {
		logger := logging.Component("mcp")
		logger.Debug().
			Str("session_id", sess.ID).
			Str("dimension", input.Dimension).
			Str("reason", string(reason)).
			Msg("recording rejected")
	}
	return nil, recordResult(err), passthrough(err)
}

func (s *Server) handleRecordCounterSignal(_ context.Context, _ *sdkmcp.CallToolRequest, input recordCounterSignalInput) (*sdkmcp.CallToolResult, recordOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, recordOutput{}, err
	}
	dims := make([]model.Dimension, len(input.AffectedDimensions))
	for i, d := range input.AffectedDimensions {
		dims[i] = model.Dimension(d)
	}
	err = sess.RecordCounterSignal(model.CounterSignal{
		Signal:               input.Signal,
		Source:               input.Source,
		AffectedDimensions:   dims,
		EvidenceCited:        input.EvidenceCited,
		WhyScoreHolds:        input.WhyScoreHolds,
		WhatWouldChangeScore: input.WhatWouldChangeScore,
		Resolved:             input.Resolved,
		Reconciliation:       input.Reconciliation,
	})
	return nil, recordResult(err), passthrough(err)
}

func (s *Server) handleSetEvidenceQuality(_ context.Context, _ *sdkmcp.CallToolRequest, input setEvidenceQualityInput) (*sdkmcp.CallToolResult, recordOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, recordOutput{}, err
	}
	err = sess.SetEvidenceQuality(model.EvidenceQuality{
		RiskLevel:            model.RiskLevel(input.RiskLevel),
		ExternalSupported:    input.ExternalSupported,
		ExternalTotal:        input.ExternalTotal,
		ContradictedCritical: input.ContradictedCritical,
	})
	return nil, recordResult(err), passthrough(err)
}

func (s *Server) handleNarrativeSection(_ context.Context, _ *sdkmcp.CallToolRequest, input narrativeSectionInput) (*sdkmcp.CallToolResult, recordOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, recordOutput{}, err
	}
	if err := sess.SetNarrativeSection(input.Section, input.Text); err != nil {
		return nil, recordOutput{}, err
	}
	return nil, recordOutput{Accepted: true}, nil
}

func (s *Server) handleFinalizeAssessment(_ context.Context, _ *sdkmcp.CallToolRequest, input finalizeAssessmentInput) (*sdkmcp.CallToolResult, finalizeAssessmentOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, finalizeAssessmentOutput{}, err
	}

	out, warnings, err := sess.Finalize(consistency.Context{
		StagesRun:   input.StagesRun,
		CustomerJob: input.CustomerJob,
	})
	if err != nil {
		var incomplete *scorecard.IncompleteError
		if errors.As(err, &incomplete) {
			return nil, finalizeAssessmentOutput{Incomplete: incomplete.Missing}, nil
		}
		return nil, finalizeAssessmentOutput{}, fmt.Errorf("finalize: %w", err)
	}

	artifact, err := render.JSON(&out)
	if err != nil {
		return nil, finalizeAssessmentOutput{}, err
	}

	logger := logging.Component("mcp")
	logger.Info().
		Str("session_id", sess.ID).
		Str("classification", string(out.Verdict.Classification)).
		Float64("composite", out.Verdict.Composite).
		Msg("assessment finalized")

	return nil, finalizeAssessmentOutput{
		Classification: string(out.Verdict.Classification),
		Composite:      out.Verdict.Composite,
		Confidence:     string(out.Verdict.Confidence),
		Warnings:       out.Verdict.Warnings,
		Flags:          out.Verdict.Flags,
		Consistency:    warnings,
		ArtifactJSON:   string(artifact),
	}, nil
}

func (s *Server) handleGetVerdict(_ context.Context, _ *sdkmcp.CallToolRequest, input getVerdictInput) (*sdkmcp.CallToolResult, getVerdictOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getVerdictOutput{}, err
	}
	out, ok := sess.Output()
	if !ok {
		return nil, getVerdictOutput{}, fmt.Errorf("assessment not finalized (call finalize_assessment first)")
	}
	return nil, getVerdictOutput{
		Classification: string(out.Verdict.Classification),
		Composite:      out.Verdict.Composite,
		Confidence:     string(out.Verdict.Confidence),
		Warnings:       out.Verdict.Warnings,
		Flags:          out.Verdict.Flags,
	}, nil
}

// SessionID returns the current session's ID, or empty string if none.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session.ID
	}
	return ""
}

func (s *Server) getSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("no active assessment (call begin_assessment first)")
	}
	if s.session.ID != id {
		return nil, fmt.Errorf("session_id mismatch: have %s, got %s", s.session.ID, id)
	}
	return s.session, nil
}

// recordResult maps a gate rejection into a retryable tool result. Gate
// rejections are recoverable by recording better evidence, so they come back
// as accepted=false rather than a tool error.
func recordResult(err error) recordOutput {
	if err == nil {
		return recordOutput{Accepted: true}
	}
	if reason, ok := gate.ReasonOf(err); ok {
		return recordOutput{Accepted: false, Reason: string(reason), Detail: err.Error()}
	}
	return recordOutput{}
}

// passthrough keeps non-gate errors fatal to the tool call.
func passthrough(err error) error {
	if _, ok := gate.ReasonOf(err); ok {
		return nil
	}
	return err
}
