package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/praxislabs/vetta/internal/db"
	"github.com/praxislabs/vetta/internal/run"
)

func replayCmd() *cobra.Command {
	var idea string
	var customerJob string
	var stagesRun []string
	cmd := &cobra.Command{
		Use:          "replay <stream.jsonl>",
		Short:        "Assemble a verdict from a previously recorded stream",
		Long:         "Replays a JSON Lines recording stream through the evidence gate without invoking the producer. The result is persisted as a new run.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if idea == "" {
				return fmt.Errorf("--idea is required")
			}

			conn, dataDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			_, rules, err := loadConfig(filepath.Dir(dataDir))
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open stream: %w", err)
			}
			defer f.Close()

			pipeline := run.New(db.NewStore(conn), nil, rules, dataDir)
			res, err := pipeline.Replay(cmd.Context(), run.Options{
				Idea:        idea,
				CustomerJob: customerJob,
				StagesRun:   stagesRun,
			}, f)
			if err != nil {
				return err
			}
			printSummary(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&idea, "idea", "", "idea the stream assesses (required)")
	cmd.Flags().StringVar(&customerJob, "customer-job", "", "customer job statement the idea anchors on")
	cmd.Flags().StringSliceVar(&stagesRun, "stages", nil, "research stages that executed this run")
	return cmd
}
