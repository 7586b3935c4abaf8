// Package batch is the data-parallel host layer around the extraction core:
// one worker per file, no cross-task coordination. Extraction is
// deterministic and side-effect-free, so results are cached by content
// checksum.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"

	"github.com/maypok86/otter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/config"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/extract"
	"github.com/kg46sp8kps-web/gestima-sub000/internal/profile"
)

// FileResult is the outcome of extracting one file. Err carries the typed
// file-level failure, if any; per-surface skips are inside Result.Stats.
type FileResult struct {
	Path   string
	Result *extract.Result
	Err    error
	Cached bool
}

// Runner fans extraction out across files.
type Runner struct {
	cfg    *config.Config
	ex     *extract.Extractor
	cache  otter.Cache[string, *profile.Profile]
	logger *zap.Logger
}

// NewRunner creates a batch runner sharing one extractor and one profile
// cache across runs.
func NewRunner(cfg *config.Config, ex *extract.Extractor, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := otter.MustBuilder[string, *profile.Profile](cfg.Batch.CacheSize).Build()
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, ex: ex, cache: cache, logger: logger}, nil
}

// Run discovers exchange files under rootDir and extracts them in parallel.
// onDone, if non-nil, is invoked from worker goroutines as each file
// finishes; it must be safe for concurrent use. The returned slice is
// ordered like the discovered file list.
func (r *Runner) Run(ctx context.Context, rootDir string, onDone func(FileResult)) ([]FileResult, error) {
	fd, err := NewFileDiscovery(rootDir, r.cfg.Batch.Patterns, r.cfg.Batch.Ignore)
	if err != nil {
		return nil, err
	}
	files, err := fd.DiscoverFiles()
	if err != nil {
		return nil, err
	}
	return r.RunFiles(ctx, files, onDone)
}

// RunFiles extracts an explicit file list in parallel.
func (r *Runner) RunFiles(ctx context.Context, files []string, onDone func(FileResult)) ([]FileResult, error) {
	results := make([]FileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = r.extractOne(path)
			if onDone != nil {
				onDone(results[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) extractOne(path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if prof, ok := r.cache.Get(key); ok {
		r.logger.Debug("profile cache hit", zap.String("path", path))
		return FileResult{Path: path, Result: &extract.Result{Profile: prof}, Cached: true}
	}

	res, err := r.ex.ExtractFile(data)
	if err != nil {
		r.logger.Warn("extraction failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return FileResult{Path: path, Err: err}
	}
	r.cache.Set(key, res.Profile)
	return FileResult{Path: path, Result: res}
}

func (r *Runner) workers() int {
	if w := r.cfg.Batch.Workers; w > 0 {
		return w
	}
	return runtime.GOMAXPROCS(0)
}
