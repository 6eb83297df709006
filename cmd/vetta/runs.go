package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/praxislabs/vetta/internal/db"
	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/run"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage assessment runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	cmd.AddCommand(runsPruneCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "list",
		Short:        "List runs, newest first",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := db.NewStore(conn).ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tCREATED\tSTATUS\tVERDICT\tCOMPOSITE\tIDEA")
			for _, r := range records {
				composite := ""
				if r.Status == db.StatusComplete {
					composite = fmt.Sprintf("%.1f", r.Composite)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.RunID, r.CreatedAt, r.Status, r.Classification, composite, r.Idea)
			}
			return w.Flush()
		},
	}
}

func runsShowCmd() *cobra.Command {
	var asJSON bool
	var events bool
	cmd := &cobra.Command{
		Use:          "show <run-id>",
		Short:        "Show a run's artifact",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, _, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()
			store := db.NewStore(conn)

			if events {
				trail, err := store.ListEvents(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SEQ\tTIME\tTYPE\tMESSAGE")
				for _, e := range trail {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Seq, e.TS, e.Type, e.Message)
				}
				return w.Flush()
			}

			artifact, markdown, err := store.GetArtifact(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), artifact)
				return nil
			}

			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(100),
			)
			if err != nil {
				return err
			}
			out, err := renderer.Render(markdown)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON artifact")
	cmd.Flags().BoolVar(&events, "events", false, "print the run's audit trail instead of the artifact")
	return cmd
}

func runsPruneCmd() *cobra.Command {
	var keepLast int
	var keepDays int
	cmd := &cobra.Command{
		Use:          "prune",
		Short:        "Prune old runs from disk and database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, dataDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			if keepLast <= 0 && keepDays <= 0 {
				cfg, _, err := loadConfig(filepath.Dir(dataDir))
				if err != nil {
					return err
				}
				keepLast = cfg.Retention.KeepLast
				keepDays = cfg.Retention.KeepDays
			}
			if keepLast <= 0 && keepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in .vetta/config.json)")
			}

			pipeline := run.New(db.NewStore(conn), nil, gate.DefaultRules(), dataDir)
			res, err := pipeline.Prune(cmd.Context(), keepLast, keepDays)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs, removed %d run dirs\n", res.Deleted, res.DirsRemoved)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep this many most recent runs")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep runs newer than this many days")
	return cmd
}
