package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/batch"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/extract"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and re-extract STEP files as they change",
	Long: `Watch monitors a directory tree for STEP file writes and re-runs
extraction on the changed files after a quiet period. Useful next to a CAD
export folder during quoting.

Example:
  gestima-profile watch ./drawings --out ./profiles
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&outDirFlag, "out", "", "Directory for profile JSON output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nStopping watch...")
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

	watcher, err := batch.NewWatcher(rootDir, time.Duration(cfg.Batch.DebounceMS)*time.Millisecond)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	logger.Info("watching for STEP file changes", zap.String("dir", rootDir))
	return watcher.Start(ctx, func(files []string) {
		results, err := runner.RunFiles(ctx, files, nil)
		if err != nil {
			logger.Error("re-extraction failed", zap.Error(err))
			return
		}
		for _, r := range results {
			if r.Err != nil {
				logger.Warn("extraction failed", zap.String("path", r.Path), zap.Error(r.Err))
				continue
			}
			if err := writeProfile(r); err != nil {
				logger.Error("failed to write profile", zap.String("path", r.Path), zap.Error(err))
				continue
			}
			logger.Info("profile updated",
				zap.String("path", r.Path),
				zap.Float64("length", r.Result.Profile.Length),
				zap.Float64("max_diameter", r.Result.Profile.MaxDiameter),
			)
		}
	})
}
