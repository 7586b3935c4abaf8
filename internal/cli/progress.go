package cli

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/batch"
)

// ProgressReporter tracks batch extraction progress with a progress bar.
type ProgressReporter struct {
	quiet     bool
	startTime time.Time

	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	processed int
	failed    int
	cached    int
}

// NewProgressReporter creates a reporter; quiet disables all output.
func NewProgressReporter(quiet bool) *ProgressReporter {
	return &ProgressReporter{
		quiet:     quiet,
		startTime: time.Now(),
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Extracting profiles"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionSetVisibility(!quiet),
		),
	}
}

// OnFileDone records one finished file. Safe for concurrent use.
func (p *ProgressReporter) OnFileDone(r batch.FileResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed++
	if r.Err != nil {
		p.failed++
	}
	if r.Cached {
		p.cached++
	}
	_ = p.bar.Add(1)
}

// Finish prints the summary line.
func (p *ProgressReporter) Finish(results []batch.FileResult) {
	if p.quiet {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintf(os.Stderr, "\nProcessed %d files in %s (%d cached, %d failed)\n",
		len(results), time.Since(p.startTime).Round(time.Millisecond), p.cached, p.failed)
}
