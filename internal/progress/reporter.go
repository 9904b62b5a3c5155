package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/handiism/osm-tile-downloader/internal/download"
)

// Source is polled for counters. *download.Manager implements it.
type Source interface {
	Progress() download.Progress
}

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is how often a progress line is printed.
	// Default: 2s
	UpdateInterval time.Duration
}

// Reporter prints one progress line per interval, suitable for logs and
// pipes where a redrawn bar would be noise.
type Reporter struct {
	opts   Options
	source Source

	mu        sync.Mutex
	startTime time.Time
	stopped   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewReporter creates a new progress reporter reading from source.
func NewReporter(source Source, opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval <= 0 {
		opts.UpdateInterval = 2 * time.Second
	}

	return &Reporter{
		opts:   opts,
		source: source,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start prints the header and begins the update loop.
func (r *Reporter) Start() {
	r.startTime = time.Now()
	p := r.source.Progress()
	fmt.Fprintf(r.opts.Output, "Fetching %d tiles\n", p.Total)

	go r.updateLoop()
}

// Stop ends the update loop and prints the final summary. It returns once
// the summary is written and is safe to call more than once.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		<-r.doneCh
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) printProgress() {
	p := r.source.Progress()
	elapsed := time.Since(r.startTime)
	rate := float64(p.Completed) / elapsed.Seconds()

	eta := "calculating..."
	if rate > 0 {
		remaining := float64(p.Total-p.Completed) / rate
		eta = formatDuration(time.Duration(remaining * float64(time.Second)))
	}

	fmt.Fprintf(r.opts.Output, "%d/%d tiles (%d%%) | %.1f tiles/sec | %d failed | Elapsed: %s | ETA: %s\n",
		p.Completed, p.Total, percent(p), rate, p.Failed, formatDuration(elapsed), eta)
}

func (r *Reporter) printFinalStatus() {
	p := r.source.Progress()
	elapsed := time.Since(r.startTime)

	fmt.Fprintf(r.opts.Output, "Finished %d/%d tiles in %s: %d fetched, %d skipped, %d failed\n",
		p.Completed, p.Total, formatDuration(elapsed), p.Fetched, p.Skipped, p.Failed)
}

func percent(p download.Progress) int {
	if p.Total == 0 {
		return 100
	}
	return p.Completed * 100 / p.Total
}

// formatDuration formats a duration as 1h02m03s, 2m03s or 3s.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
