// Package output prints operator-facing console text.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"canvas-drive-sync/internal/domain"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)

	out io.Writer = color.Output
)

// SetOutput redirects console output; it returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	prev := out
	out = w
	return prev
}

// Header prints a formatted header
func Header(text string) {
	line := strings.Repeat("=", 60)
	green.Fprintf(out, "\n%s\n", line)
	green.Fprintf(out, "%-60s\n", center(text, 60))
	green.Fprintf(out, "%s\n\n", line)
}

// Step prints a step indicator
func Step(stepNum, totalSteps int, text string) {
	yellow.Fprintf(out, "[%d/%d] %s\n", stepNum, totalSteps, text)
}

func Success(text string) {
	green.Fprintf(out, "  → %s\n", text)
}

func Info(text string) {
	fmt.Fprintf(out, "  → %s\n", text)
}

func Warning(text string) {
	yellow.Fprintf(out, "  ⚠ %s\n", text)
}

func Error(text string) {
	red.Fprintf(out, "Error: %s\n", text)
}

// Result prints one transfer outcome, colored by status.
func Result(r domain.TransferResult) {
	name := r.Filename
	if name == "" {
		name = r.Title
	}
	switch r.Status {
	case domain.StatusUploaded:
		Success(fmt.Sprintf("uploaded %s (%s)", name, r.ModuleName))
	case domain.StatusSkipped:
		Info(fmt.Sprintf("skipped %s, already in destination", name))
	default:
		red.Fprintf(out, "  ✗ %s (%s): %s\n", name, r.ModuleName, r.Error)
	}
}

// Summary prints the run totals and any courses that could not be scanned.
func Summary(s domain.Summary) {
	text := fmt.Sprintf("total=%d uploaded=%d skipped=%d failed=%d", s.Total, s.Uploaded, s.Skipped, s.Failed)
	if s.OK() {
		green.Fprintf(out, "\n%s\n", text)
		return
	}
	yellow.Fprintf(out, "\n%s\n", text)
	for _, id := range s.FailedCourses {
		Error(fmt.Sprintf("course %d could not be processed", id))
	}
}

// center centers text within a given width
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
