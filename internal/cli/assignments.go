package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"canvas-drive-sync/internal/domain"
)

var assignmentsCourse int64

var assignmentsCmd = &cobra.Command{
	Use:   "assignments",
	Short: "Print the assignments and quizzes of a course as plain text",
	RunE:  runAssignments,
}

func init() {
	assignmentsCmd.Flags().Int64Var(&assignmentsCourse, "course", 0, "Canvas course id")
	rootCmd.AddCommand(assignmentsCmd)
}

func runAssignments(cmd *cobra.Command, args []string) error {
	if assignmentsCourse <= 0 {
		return errors.New("--course is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	lms := newCanvasClient(cfg)

	work, err := lms.ListAssignments(ctx, assignmentsCourse)
	if err != nil {
		return err
	}
	quizzes, err := lms.ListQuizzes(ctx, assignmentsCourse)
	if err != nil {
		return err
	}
	work = append(work, quizzes...)

	out := cmd.OutOrStdout()
	if len(work) == 0 {
		fmt.Fprintf(out, "No assignments or quizzes in course %d\n", assignmentsCourse)
		return nil
	}
	for i, w := range work {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printWork(cmd, w)
	}
	return nil
}

func printWork(cmd *cobra.Command, w domain.CourseWork) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[%s] %s\n", w.Kind, w.Name)
	if w.DueAt != "" {
		fmt.Fprintf(out, "  due: %s\n", w.DueAt)
	}
	for _, line := range strings.Split(w.Description, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}
