package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"canvas-drive-sync/internal/canvas"
	"canvas-drive-sync/internal/concurrency"
	"canvas-drive-sync/internal/config"
	"canvas-drive-sync/internal/domain"
	"canvas-drive-sync/internal/export"
	"canvas-drive-sync/internal/ledger"
	"canvas-drive-sync/internal/output"
	"canvas-drive-sync/internal/sync"
)

var (
	runCourses    []int64
	runAllActive  bool
	runFolder     string
	runFolderID   string
	runDryRun     bool
	runReport     string
	runFailClosed bool
)

var runCmd = &cobra.Command{
	Use:   "run [course-id...]",
	Short: "Copy module files of one or more courses to the destination",
	Long: `Copy every file referenced by the modules of the given courses into one
destination folder. Course ids come from --course, positional arguments or
--all-active. Files whose name already exists in the folder are skipped.

Use --dry-run to see what would happen without downloading or uploading.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Int64SliceVar(&runCourses, "course", nil, "Canvas course id (repeatable or comma separated)")
	runCmd.Flags().BoolVar(&runAllActive, "all-active", false, "Include every course with an active enrollment")
	runCmd.Flags().StringVar(&runFolder, "folder", "", "Destination folder name (default DEST_FOLDER)")
	runCmd.Flags().StringVar(&runFolderID, "folder-id", "", "Destination folder id; overrides --folder")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Only report what would be uploaded or skipped")
	runCmd.Flags().StringVar(&runReport, "report", "", "Write a CSV report of every transfer to this path")
	runCmd.Flags().BoolVar(&runFailClosed, "fail-closed", false, "Do not upload when the existence check fails")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFailClosed {
		cfg.ExistsPolicy = config.PolicyFailClosed
	}

	lms := newCanvasClient(cfg)
	courseIDs, err := selectCourses(ctx, lms, args)
	if err != nil {
		return err
	}
	if len(courseIDs) == 0 {
		return errors.New("no courses given: pass course ids, --course or --all-active")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	policy := sync.FailOpen
	if cfg.FailClosed() {
		policy = sync.FailClosed
	}
	runner := &sync.Runner{
		LMS: lms,
		Transferer: &sync.Transferer{
			LMS:         lms,
			Store:       store,
			Policy:      policy,
			FileTimeout: cfg.FileTimeout,
			PlanWorkers: concurrency.DefaultWorkers,
		},
	}
	dest := sync.Destination{FolderName: runFolder, FolderID: runFolderID}
	if dest.FolderName == "" {
		dest.FolderName = cfg.DestFolder
	}

	if runDryRun {
		return dryRun(cmd, runner, courseIDs, dest)
	}

	runner.RunID = ledger.NewRunID()
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(ctx, cfg.LedgerPath)
		if err != nil {
			output.Warning(fmt.Sprintf("ledger disabled: %v", err))
		} else {
			defer l.Close()
			runner.Recorder = l
		}
	}
	runner.OnCourse = func(n, total int, courseID int64) {
		output.Step(n, total, fmt.Sprintf("Processing course %d", courseID))
	}
	runner.OnResult = output.Result

	output.Header(fmt.Sprintf("canvasdrive run %s", runner.RunID))
	output.Info(fmt.Sprintf("%d course(s) -> %s", len(courseIDs), store.Name()))

	rep, runErr := runner.Run(ctx, courseIDs, dest)
	if runReport != "" {
		if err := writeReport(runReport, rep.Results); err != nil {
			output.Warning(fmt.Sprintf("report not written: %v", err))
		} else {
			output.Info("report written to " + runReport)
		}
	}
	output.Summary(rep.Summary)
	if runErr != nil {
		return runErr
	}
	if !rep.Summary.OK() {
		return errRunFailed
	}
	return nil
}

// selectCourses merges --course, positional ids and --all-active in that order.
func selectCourses(ctx context.Context, lms *canvas.Client, args []string) ([]int64, error) {
	fromArgs, err := parseCourseIDs(args)
	if err != nil {
		return nil, err
	}
	ids := append(append([]int64{}, runCourses...), fromArgs...)

	if runAllActive {
		courses, err := lms.ListActiveCourses(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range courses {
			ids = append(ids, c.ID)
		}
	}
	return uniqueIDs(ids), nil
}

func dryRun(cmd *cobra.Command, runner *sync.Runner, courseIDs []int64, dest sync.Destination) error {
	items, failedCourses, err := runner.Plan(cmd.Context(), courseIDs, dest)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tCOURSE\tMODULE\tFILENAME\tSIZE\tNOTE")
	for _, it := range items {
		name := it.Filename
		if name == "" {
			name = it.Descriptor.Title
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%s\n",
			it.Action, it.Descriptor.CourseID, it.Descriptor.ModuleName, name, it.Size, it.Reason)
	}
	w.Flush()

	counts := sync.CountActions(items)
	fmt.Fprintf(cmd.OutOrStdout(), "\nwould upload=%d skip=%d fail=%d\n",
		counts[sync.ActionUpload], counts[sync.ActionSkip], counts[sync.ActionFail])
	for _, id := range failedCourses {
		output.Error(fmt.Sprintf("course %d could not be processed", id))
	}
	if len(failedCourses) > 0 || counts[sync.ActionFail] > 0 {
		return errRunFailed
	}
	return nil
}

func writeReport(path string, results []domain.TransferResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteTransferCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
