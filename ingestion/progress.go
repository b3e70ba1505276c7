package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker writes a single, rewritten status line as documents finish.
type ProgressTracker struct {
	writer  io.Writer
	total   int
	done    int
	failed  int
	start   time.Time
	started bool
	mu      sync.Mutex
}

// NewProgressTracker creates a tracker for total documents writing to w
// (typically os.Stderr).
func NewProgressTracker(w io.Writer, total int) *ProgressTracker {
	return &ProgressTracker{writer: w, total: total}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.start = time.Now()
	p.started = true
	p.done = 0
	p.failed = 0
	p.report()
}

// Done records one finished document.
func (p *ProgressTracker) Done(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	if p.done < p.total {
		p.done++
	}
	if failed {
		p.failed++
	}
	p.report()
}

// Finish prints the final line and a newline.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// Elapsed returns the time since Start, or zero if not started.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.start)
}

// Must be called with p.mu held.
func (p *ProgressTracker) report() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	rate := 0.0
	if secs := time.Since(p.start).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	fmt.Fprintf(p.writer, "\rIngested %d/%d documents (%.1f%%), %d failed, %.1f docs/s",
		p.done, p.total, pct, p.failed, rate)
}
