package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"canvas-drive-sync/internal/ledger"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transfers recorded in the ledger",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of transfers to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the summary of one run instead")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.LedgerPath == "" {
		return errors.New("ledger is disabled (LEDGER_PATH is empty)")
	}

	ctx := cmd.Context()
	l, err := ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer l.Close()

	out := cmd.OutOrStdout()
	if historyRun != "" {
		run, err := l.GetRun(ctx, historyRun)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", historyRun)
		}
		finished := "still running or interrupted"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(out, "run:       %s\nbackend:   %s\ncourses:   %v\nstarted:   %s\nfinished:  %s\n",
			run.ID, run.Backend, run.CourseIDs, run.StartedAt.Local().Format(time.DateTime), finished)
		fmt.Fprintf(out, "total=%d uploaded=%d skipped=%d failed=%d failed_courses=%v\n",
			run.Summary.Total, run.Summary.Uploaded, run.Summary.Skipped, run.Summary.Failed, run.Summary.FailedCourses)
		return nil
	}

	entries, err := l.History(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No transfers recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tRUN\tCOURSE\tSTATUS\tFILE\tDESTINATION")
	for _, e := range entries {
		r := e.Result
		name := r.Filename
		if name == "" {
			name = r.Title
		}
		dest := r.DestinationID
		if r.Error != "" {
			dest = r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.RecordedAt.Local().Format(time.DateTime), shortID(e.RunID), r.CourseID, r.Status, name, dest)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
