package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses with an active enrollment",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		courses, err := newCanvasClient(cfg).ListActiveCourses(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list courses: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(courses) == 0 {
			fmt.Fprintln(out, "No active courses found")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tNAME")
		fmt.Fprintln(w, "--\t----\t----")
		for _, c := range courses {
			fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.CourseCode, c.Name)
		}
		return w.Flush()
	},
}

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List folders available at the destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		folders, err := store.ListFolders(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(folders) == 0 {
			fmt.Fprintf(out, "No folders found on %s\n", store.Name())
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, f := range folders {
			fmt.Fprintf(w, "%s\t%s\n", f.ID, f.Name)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(foldersCmd)
}
