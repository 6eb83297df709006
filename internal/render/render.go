// Package render produces the per-run artifacts from a merged output.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/praxislabs/vetta/internal/model"
)

// JSON produces the canonical machine-readable artifact. The output
// round-trips through json.Unmarshal back to an equal MergedOutput.
func JSON(out *model.MergedOutput) ([]byte, error) {
	if out == nil {
		return nil, fmt.Errorf("render: nil output")
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// Markdown produces a human-readable summary of the merged output, suitable
// for terminal display or sharing. Sections are emitted in a fixed order so
// the same artifact always renders the same document.
func Markdown(out *model.MergedOutput, idea string) string {
	if out == nil {
		return ""
	}
	var sb strings.Builder

	sb.WriteString("# Venture Assessment\n\n")
	if idea != "" {
		fmt.Fprintf(&sb, "**Idea:** %s\n\n", mdEscape(idea))
	}
	fmt.Fprintf(&sb, "**Verdict:** %s  \n", out.Verdict.Classification)
	fmt.Fprintf(&sb, "**Composite:** %.1f/5.0  \n", out.Verdict.Composite)
	fmt.Fprintf(&sb, "**Confidence:** %s  \n", out.Verdict.Confidence)
	fmt.Fprintf(&sb, "**Evidence risk:** %s\n\n", out.RiskLevel)

	if len(out.Knockouts) > 0 {
		sb.WriteString("## Knockout Criteria\n\n")
		sb.WriteString("| Criterion | Result | Evidence |\n")
		sb.WriteString("|---|---|---|\n")
		for _, k := range out.Knockouts {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", k.Criterion, passFail(k.Result), mdEscape(k.Evidence))
		}
		sb.WriteString("\n")
	}

	if len(out.Dimensions) > 0 {
		sb.WriteString("## Dimension Scores\n\n")
		sb.WriteString("| Dimension | Score | Source | Evidence |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, d := range out.Dimensions {
			fmt.Fprintf(&sb, "| %s | %d/5 | %s | %s |\n",
				d.Dimension, d.Score, d.SourceTag, mdEscape(d.Evidence))
		}
		sb.WriteString("\n")
	}

	if len(out.CounterSignals) > 0 {
		sb.WriteString("## Counter-Signals\n\n")
		for _, cs := range out.CounterSignals {
			status := "unresolved"
			if cs.Resolved {
				status = "resolved"
			}
			fmt.Fprintf(&sb, "### %s (%s)\n\n", mdEscape(cs.Signal), status)
			fmt.Fprintf(&sb, "- **Source:** %s\n", cs.Source)
			if len(cs.AffectedDimensions) > 0 {
				fmt.Fprintf(&sb, "- **Affects:** %s\n", joinDimensions(cs.AffectedDimensions))
			}
			if cs.EvidenceCited != "" {
				fmt.Fprintf(&sb, "- **Evidence cited:** %s\n", mdEscape(cs.EvidenceCited))
			}
			if cs.WhyScoreHolds != "" {
				fmt.Fprintf(&sb, "- **Why the score holds:** %s\n", mdEscape(cs.WhyScoreHolds))
			}
			if cs.WhatWouldChangeScore != "" {
				fmt.Fprintf(&sb, "- **What would change it:** %s\n", mdEscape(cs.WhatWouldChangeScore))
			}
			if cs.Reconciliation != "" {
				fmt.Fprintf(&sb, "- **Reconciliation:** %s\n", mdEscape(cs.Reconciliation))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## Evidence Quality\n\n")
	fmt.Fprintf(&sb, "- **External claims supported:** %d of %d\n",
		out.EvidenceQuality.ExternalSupported, out.EvidenceQuality.ExternalTotal)
	contradicted := "no"
	if out.EvidenceQuality.ContradictedCritical {
		contradicted = "yes"
	}
	fmt.Fprintf(&sb, "- **Critical claim contradicted:** %s\n\n", contradicted)

	if len(out.Verdict.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range out.Verdict.Warnings {
			fmt.Fprintf(&sb, "- %s\n", mdEscape(w))
		}
		sb.WriteString("\n")
	}

	if len(out.Verdict.Flags) > 0 {
		sb.WriteString("## Flags\n\n")
		for _, f := range out.Verdict.Flags {
			fmt.Fprintf(&sb, "- `%s`\n", f)
		}
		sb.WriteString("\n")
	}

	if len(out.Narrative) > 0 {
		sections := make([]string, 0, len(out.Narrative))
		for name := range out.Narrative {
			sections = append(sections, name)
		}
		sort.Strings(sections)
		for _, name := range sections {
			fmt.Fprintf(&sb, "## %s\n\n%s\n\n", sectionTitle(name), out.Narrative[name])
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func joinDimensions(dims []model.Dimension) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = string(d)
	}
	return strings.Join(parts, ", ")
}

// sectionTitle turns a snake_case section key into a display heading.
func sectionTitle(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
