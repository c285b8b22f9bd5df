package jobs

import (
	"sync"
	"time"

	"github.com/poiesic/docquery/core"
)

// reportFunc receives progress snapshots. Called without the tracker lock.
type reportFunc func(state core.JobProgressState)

// progressTracker tracks how far a job has advanced and pushes snapshots
// to a report function at a configurable interval. All methods are safe
// for concurrent use.
type progressTracker struct {
	total          int
	current        int
	label          string
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	report         reportFunc
	mu             sync.Mutex
}

// newProgressTracker creates a tracker over total items that reports every
// reportInterval completions. An interval below 1 reports on every update.
func newProgressTracker(total, reportInterval int, report reportFunc) *progressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &progressTracker{
		total:          total,
		reportInterval: reportInterval,
		report:         report,
	}
}

// Start begins tracking and resets progress to zero.
func (p *progressTracker) Start(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
	p.label = label
}

// Increment advances progress by delta, capped at total. A snapshot is
// reported when a report interval boundary is crossed.
func (p *progressTracker) Increment(delta int) {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}

	p.current += delta
	if p.current > p.total {
		p.current = p.total
	}

	shouldReport := p.current-p.lastReported >= p.reportInterval
	if shouldReport {
		p.lastReported = p.current
	}
	state := p.snapshot()
	p.mu.Unlock()

	if shouldReport && p.report != nil {
		p.report(state)
	}
}

// Finish marks the job fully progressed and reports a final snapshot.
func (p *progressTracker) Finish() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.current = p.total
	p.lastReported = p.total
	state := p.snapshot()
	p.mu.Unlock()

	if p.report != nil {
		p.report(state)
	}
}

// Elapsed returns the time since Start.
func (p *progressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// State returns the current progress snapshot.
func (p *progressTracker) State() core.JobProgressState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// snapshot builds a progress state. Must be called with lock held.
func (p *progressTracker) snapshot() core.JobProgressState {
	return core.JobProgressState{
		Current: p.current,
		Total:   p.total,
		Label:   p.label,
	}
}
