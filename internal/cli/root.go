package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"canvas-drive-sync/internal/canvas"
	"canvas-drive-sync/internal/config"
	"canvas-drive-sync/internal/httpx"
	"canvas-drive-sync/internal/output"
)

var (
	Version    = "dev"
	configPath string
)

// errRunFailed makes the process exit non-zero after the summary was printed.
var errRunFailed = errors.New("run finished with failures")

var rootCmd = &cobra.Command{
	Use:     "canvasdrive",
	Short:   "Copy Canvas course module files into Google Drive",
	Version: Version,
	Long: `canvasdrive walks the modules of Canvas LMS courses and copies every file
they reference into one destination folder. Files already present in the folder
(same name) are skipped, so runs can be repeated safely.

The destination is Google Drive by default; SFTP and Google Cloud Storage are
selected with STORAGE_BACKEND.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errRunFailed) {
			output.Error(err.Error())
		}
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CANVASDRIVE_CONFIG"),
		"YAML config file (or set CANVASDRIVE_CONFIG); environment variables override it")
}

// loadConfig reads and validates the configuration before anything touches the network.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newCanvasClient(cfg config.Config) *canvas.Client {
	c := canvas.New(cfg.CanvasURL, cfg.CanvasToken)
	c.HTTP.Timeout = cfg.HTTPTimeout
	c.PageSize = cfg.CanvasPageSize
	c.Retry = httpx.WithAttempts(cfg.RetryAttempts)
	return c
}

// parseCourseIDs accepts ids as separate arguments or comma separated.
func parseCourseIDs(args []string) ([]int64, error) {
	var out []int64
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid course id %q", part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// uniqueIDs drops repeated ids and keeps first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
