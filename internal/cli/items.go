package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"canvas-drive-sync/internal/canvas"
	"canvas-drive-sync/internal/domain"
)

var itemsCourse int64

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Print the text of the Page and Quiz items in a course's modules",
	RunE:  runItems,
}

func init() {
	itemsCmd.Flags().Int64Var(&itemsCourse, "course", 0, "Canvas course id")
	rootCmd.AddCommand(itemsCmd)
}

func runItems(cmd *cobra.Command, args []string) error {
	if itemsCourse <= 0 {
		return errors.New("--course is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	lms := newCanvasClient(cfg)
	out := cmd.OutOrStdout()

	modules, err := lms.ListModules(ctx, itemsCourse)
	if err != nil {
		return err
	}
	printed := 0
	for _, m := range modules {
		items, err := lms.ListModuleItems(ctx, itemsCourse, m.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			text, ok, err := itemText(cmd, lms, it)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if printed > 0 {
				fmt.Fprintln(out)
			}
			printed++
			fmt.Fprintf(out, "[%s] %s / %s\n", strings.ToLower(it.Type), m.Name, it.Title)
			if text == "" {
				fmt.Fprintln(out, "  (no content)")
			}
			for _, line := range strings.Split(text, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					fmt.Fprintf(out, "  %s\n", line)
				}
			}
		}
	}
	if printed == 0 {
		fmt.Fprintf(out, "No page or quiz items in course %d\n", itemsCourse)
	}
	return nil
}

// itemText fetches the plain text of a Page or Quiz item. ok is false for other types.
func itemText(cmd *cobra.Command, lms *canvas.Client, it domain.ModuleItem) (string, bool, error) {
	switch it.Type {
	case domain.ItemPage:
		if it.PageURL == "" {
			return "", true, nil
		}
		text, err := lms.GetPageBody(cmd.Context(), itemsCourse, it.PageURL)
		return text, true, err
	case domain.ItemQuiz:
		text, err := lms.GetQuizDescription(cmd.Context(), itemsCourse, it.ContentID)
		return text, true, err
	}
	return "", false, nil
}
