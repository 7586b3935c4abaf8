package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/batch"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/extract"
)

var (
	quietFlag  bool
	outDirFlag string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Extract profiles from every STEP file under a directory",
	Long: `Batch discovers STEP files with the configured glob patterns and runs
one extraction worker per file. Extractions are independent and pure, so
results for unchanged files come from a content-hash cache.

Profiles are written as <name>.profile.json next to each input file, or
under --out when given.

Examples:
  # Process the current directory
  gestima-profile batch

  # Process a drawings folder with 8 workers, writing JSON to ./profiles
  GESTIMA_BATCH_WORKERS=8 gestima-profile batch ./drawings --out ./profiles
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress output")
	batchCmd.Flags().StringVar(&outDirFlag, "out", "", "Directory for profile JSON output")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling batch...")
		cancel()
	}()

	rootDir, err := targetDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	runner, err := batch.NewRunner(cfg, extract.New(cfg, extract.WithLogger(logger)), logger)
	if err != nil {
		return err
	}

	progress := NewProgressReporter(quietFlag)
	results, err := runner.Run(ctx, rootDir, func(r batch.FileResult) {
		progress.OnFileDone(r)
	})
	if err != nil {
		return err
	}
	progress.Finish(results)

	failures := 0
	for _, r := range results {
		if r.Err != nil {
			failures++
			continue
		}
		if err := writeProfile(r); err != nil {
			return err
		}
	}
	if failures > 0 {
		logger.Warn("some files failed extraction", zap.Int("failed", failures), zap.Int("total", len(results)))
	}
	return nil
}

func targetDir(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return os.Getwd()
}

func writeProfile(r batch.FileResult) error {
	base := filepath.Base(r.Path)
	out := r.Path + ".profile.json"
	if outDirFlag != "" {
		if err := os.MkdirAll(outDirFlag, 0o755); err != nil {
			return err
		}
		out = filepath.Join(outDirFlag, base+".profile.json")
	}

	data, err := json.MarshalIndent(r.Result.Profile, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, append(data, '\n'), 0o644)
}
