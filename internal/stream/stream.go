// Package stream decodes the ordered recording calls emitted by an evidence
// producer and replays them into a scorecard builder. The stream is JSON
// Lines: one {"op": ..., ...} object per line.
package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"

	"github.com/praxislabs/vetta/internal/consistency"
	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/model"
	"github.com/praxislabs/vetta/internal/scorecard"
)

// Op identifies one recording operation.
type Op string

// Recording operations, matching the accumulator's surface plus the
// narrative and run-context envelopes.
const (
	OpRecordKnockout       Op = "record_knockout"
	OpRecordDimensionScore Op = "record_dimension_score"
	OpRecordCounterSignal  Op = "record_counter_signal"
	OpSetEvidenceQuality   Op = "set_evidence_quality"
	OpNarrativeSection     Op = "narrative_section"
	OpRunContext           Op = "run_context"
)

// KnockoutCall records one knockout criterion outcome.
type KnockoutCall struct {
	Criterion string `json:"criterion" mapstructure:"criterion"`
	Result    bool   `json:"result"    mapstructure:"result"`
	Evidence  string `json:"evidence"  mapstructure:"evidence"`
}

// DimensionCall records one dimension score.
type DimensionCall struct {
	Dimension string `json:"dimension"            mapstructure:"dimension"`
	Score     int    `json:"score"                mapstructure:"score"`
	Evidence  string `json:"evidence"             mapstructure:"evidence"`
	SourceTag string `json:"source_tag,omitempty" mapstructure:"source_tag"`
}

// CounterSignalCall records one counter-signal.
type CounterSignalCall struct {
	Signal               string   `json:"signal"                   mapstructure:"signal"`
	Source               string   `json:"source"                   mapstructure:"source"`
	AffectedDimensions   []string `json:"affected_dimensions"      mapstructure:"affected_dimensions"`
	EvidenceCited        string   `json:"evidence_cited"           mapstructure:"evidence_cited"`
	WhyScoreHolds        string   `json:"why_score_holds"          mapstructure:"why_score_holds"`
	WhatWouldChangeScore string   `json:"what_would_change_score"  mapstructure:"what_would_change_score"`
	Resolved             bool     `json:"resolved"                 mapstructure:"resolved"`
	Reconciliation       string   `json:"reconciliation,omitempty" mapstructure:"reconciliation"`
}

// QualityCall records the evidence-quality summary.
type QualityCall struct {
	RiskLevel            string `json:"risk_level"            mapstructure:"risk_level"`
	ExternalSupported    int    `json:"external_supported"    mapstructure:"external_supported"`
	ExternalTotal        int    `json:"external_total"        mapstructure:"external_total"`
	ContradictedCritical bool   `json:"contradicted_critical" mapstructure:"contradicted_critical"`
}

// NarrativeCall carries one narrative section.
type NarrativeCall struct {
	Section string `json:"section" mapstructure:"section"`
	Text    string `json:"text"    mapstructure:"text"`
}

// ContextCall carries upstream run context for the post-merge validators.
type ContextCall struct {
	CustomerJob string   `json:"customer_job" mapstructure:"customer_job"`
	StagesRun   []string `json:"stages_run"   mapstructure:"stages_run"`
}

// Rejection describes one recording call the gate refused. Rejections are
// final: nothing in this layer retries them.
type Rejection struct {
	Line   int
	Op     Op
	Reason gate.Reason
	Detail string
}

// Result is everything a replay produces besides builder state.
type Result struct {
	Narrative  model.Narrative
	Context    consistency.Context
	Rejections []Rejection
}

// Replay decodes the stream and applies every recording call to the builder
// in order. Gate rejections are collected and skipped; a malformed line is a
// fatal stream error.
func Replay(r io.Reader, b *scorecard.Builder) (Result, error) {
	result := Result{Narrative: model.Narrative{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var envelope map[string]any
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return result, fmt.Errorf("line %d: decode call: %w", line, err)
		}
		opValue, _ := envelope["op"].(string)
		op := Op(opValue)
		delete(envelope, "op")

		if err := apply(op, envelope, b, &result); err != nil {
			reason, isRejection := gate.ReasonOf(err)
			if !isRejection {
				return result, fmt.Errorf("line %d: %s: %w", line, op, err)
			}
			log.Debug().Int("line", line).Str("op", string(op)).Str("reason", string(reason)).
				Msg("recording call rejected")
			result.Rejections = append(result.Rejections, Rejection{
				Line:   line,
				Op:     op,
				Reason: reason,
				Detail: err.Error(),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read stream: %w", err)
	}
	return result, nil
}

func apply(op Op, args map[string]any, b *scorecard.Builder, result *Result) error {
	switch op {
	case OpRecordKnockout:
		var call KnockoutCall
		if err := decode(args, &call); err != nil {
			return err
		}
		return b.RecordKnockout(model.KnockoutCriterion(call.Criterion), call.Result, call.Evidence)

	case OpRecordDimensionScore:
		var call DimensionCall
		if err := decode(args, &call); err != nil {
			return err
		}
		return b.RecordDimensionScore(model.Dimension(call.Dimension), call.Score, call.Evidence, call.SourceTag)

	case OpRecordCounterSignal:
		var call CounterSignalCall
		if err := decode(args, &call); err != nil {
			return err
		}
		dims := make([]model.Dimension, 0, len(call.AffectedDimensions))
		for _, d := range call.AffectedDimensions {
			dims = append(dims, model.Dimension(d))
		}
		return b.RecordCounterSignal(model.CounterSignal{
			Signal:               call.Signal,
			Source:               call.Source,
			AffectedDimensions:   dims,
			EvidenceCited:        call.EvidenceCited,
			WhyScoreHolds:        call.WhyScoreHolds,
			WhatWouldChangeScore: call.WhatWouldChangeScore,
			Resolved:             call.Resolved,
			Reconciliation:       call.Reconciliation,
		})

	case OpSetEvidenceQuality:
		var call QualityCall
		if err := decode(args, &call); err != nil {
			return err
		}
		return b.SetEvidenceQuality(model.EvidenceQuality{
			RiskLevel:            model.RiskLevel(call.RiskLevel),
			ExternalSupported:    call.ExternalSupported,
			ExternalTotal:        call.ExternalTotal,
			ContradictedCritical: call.ContradictedCritical,
		})

	case OpNarrativeSection:
		var call NarrativeCall
		if err := decode(args, &call); err != nil {
			return err
		}
		if call.Section == "" {
			return fmt.Errorf("narrative section requires a name")
		}
		result.Narrative[call.Section] = call.Text
		return nil

	case OpRunContext:
		var call ContextCall
		if err := decode(args, &call); err != nil {
			return err
		}
		result.Context.CustomerJob = call.CustomerJob
		result.Context.StagesRun = call.StagesRun
		return nil

	default:
		return fmt.Errorf("unknown op %q", op)
	}
}

func decode(args map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
