package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/praxislabs/vetta/internal/db"
	"github.com/praxislabs/vetta/internal/model"
	"github.com/praxislabs/vetta/internal/producer"
	"github.com/praxislabs/vetta/internal/run"
)

var (
	styleGo    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	stylePivot = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	styleNoGo  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func runCmd() *cobra.Command {
	var customerJob string
	var stagesRun []string
	cmd := &cobra.Command{
		Use:          "run <idea>",
		Short:        "Assess a venture idea and persist the verdict artifact",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, dataDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			cfg, rules, err := loadConfig(filepath.Dir(dataDir))
			if err != nil {
				return err
			}
			prod, err := producer.New(cfg.Producer)
			if err != nil {
				return err
			}

			pipeline := run.New(db.NewStore(conn), prod, rules, dataDir)
			res, err := pipeline.Execute(cmd.Context(), run.Options{
				Idea:        args[0],
				CustomerJob: customerJob,
				StagesRun:   stagesRun,
			})
			if err != nil {
				return err
			}
			printSummary(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&customerJob, "customer-job", "", "customer job statement the idea anchors on")
	cmd.Flags().StringSliceVar(&stagesRun, "stages", nil, "research stages that executed this run")
	return cmd
}

func printSummary(cmd *cobra.Command, res run.Result) {
	out := cmd.OutOrStdout()
	v := res.Output.Verdict
	fmt.Fprintf(out, "%s  composite %.1f  confidence %s\n",
		classificationStyle(v.Classification).Render(string(v.Classification)),
		v.Composite, v.Confidence)
	fmt.Fprintln(out, styleMuted.Render("run "+res.RunID))

	for _, rej := range res.Rejections {
		fmt.Fprintf(out, "rejected line %d (%s): %s\n", rej.Line, rej.Reason, rej.Detail)
	}
	for _, w := range v.Warnings {
		fmt.Fprintln(out, "warning: "+w)
	}
	for _, w := range res.ConsistencyWarnings {
		fmt.Fprintln(out, "consistency: "+w)
	}
	if len(v.Flags) > 0 {
		fmt.Fprintln(out, styleMuted.Render("flags: "+strings.Join(v.Flags, ", ")))
	}
}

func classificationStyle(c model.Classification) lipgloss.Style {
	switch c {
	case model.ClassificationGo:
		return styleGo
	case model.ClassificationNoGo:
		return styleNoGo
	default:
		return stylePivot
	}
}
