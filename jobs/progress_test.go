package jobs

import (
	"testing"

	"github.com/poiesic/docquery/core"
	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_ReportsAtInterval(t *testing.T) {
	var reports []core.JobProgressState
	tracker := newProgressTracker(10, 3, func(state core.JobProgressState) {
		reports = append(reports, state)
	})
	tracker.Start("working")

	for i := 0; i < 7; i++ {
		tracker.Increment(1)
	}

	// Interval 3 over 7 increments crosses two boundaries
	assert.Len(t, reports, 2)
	assert.Equal(t, 3, reports[0].Current)
	assert.Equal(t, 6, reports[1].Current)
	assert.Equal(t, "working", reports[0].Label)
	assert.Equal(t, 10, reports[0].Total)
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	tracker := newProgressTracker(5, 1, nil)
	tracker.Start("working")

	tracker.Increment(3)
	tracker.Increment(100)

	state := tracker.State()
	assert.Equal(t, 5, state.Current)
	assert.Equal(t, 5, state.Total)
}

func TestProgressTracker_FinishReportsFullProgress(t *testing.T) {
	var last core.JobProgressState
	tracker := newProgressTracker(4, 10, func(state core.JobProgressState) {
		last = state
	})
	tracker.Start("working")

	// Interval 10 means increments alone never report
	tracker.Increment(2)
	assert.Zero(t, last.Total)

	tracker.Finish()
	assert.Equal(t, 4, last.Current)
	assert.Equal(t, 4, last.Total)
}

func TestProgressTracker_NoOpBeforeStart(t *testing.T) {
	calls := 0
	tracker := newProgressTracker(3, 1, func(core.JobProgressState) {
		calls++
	})

	tracker.Increment(1)
	tracker.Finish()

	assert.Zero(t, calls)
	assert.Zero(t, tracker.Elapsed())
}
