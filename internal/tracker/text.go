package tracker

import (
	"math"
	"time"

	"github.com/coder/quartz"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	infra "github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure"
	"go.uber.org/zap"
)

// ExpectedReadingTime reading time of contentLength characters, never below the configured minimum
func ExpectedReadingTime(contentLength int, cfg infra.TrackingConfig) time.Duration {
	seconds := 0
	if charsPerMinute := cfg.WordsPerMinute * cfg.AvgWordLength; charsPerMinute > 0 && contentLength > 0 {
		seconds = contentLength * 60 / charsPerMinute
	}
	expected := time.Duration(seconds) * time.Second
	if expected < cfg.MinReadingTime {
		return cfg.MinReadingTime
	}
	return expected
}

// TextTracker estimates reading progress of a text lesson from the time spent on it
type TextTracker struct {
	*session
	expected time.Duration

	started bool
	initial *quartz.Timer
}

var _ Tracker = &TextTracker{}

// NewTextTracker create a text tracker, Start runs its clock
func NewTextTracker(id string, lesson Lesson, deps *Deps) *TextTracker {
	return &TextTracker{
		session:  newSession(id, domain.LessonText, lesson, deps),
		expected: ExpectedReadingTime(lesson.ContentLength, deps.Config),
	}
}

// Start .
func (t *TextTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.skipped || t.closed || t.started {
		return
	}
	t.started = true
	t.initial = t.clock.AfterFunc(t.config.TextInitialDelay, t.sendUpdate, "text", "initial")
	t.clock.TickerFunc(t.ctx, t.config.TextTick, t.tick, "text", "tick")
	t.clock.TickerFunc(t.ctx, t.config.TextUpdateInterval, func() error {
		t.sendUpdate()
		return nil
	}, "text", "update")
	t.logger.Debug("Reading clock started", zap.Duration("lesson.expected_reading_time", t.expected))
}

func (t *TextTracker) tick() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.completionSent {
		return nil
	}
	if t.refreshLocked() {
		t.completeLocked(100, "reading time")
		t.stopTimersLocked()
	}
	return nil
}

func (t *TextTracker) sendUpdate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.completionSent {
		return
	}
	t.refreshLocked()
	t.reportLocked(t.progress, "reading")
}

// refreshLocked updates progress and reports whether the expected reading time has passed
func (t *TextTracker) refreshLocked() bool {
	elapsed := t.elapsed()
	if t.expected <= 0 {
		t.progress = 100
		return true
	}
	t.progress = math.Min(float64(elapsed)/float64(t.expected)*100, 100)
	return elapsed >= t.expected
}

func (t *TextTracker) stopTimersLocked() {
	if t.initial != nil {
		t.initial.Stop()
		t.initial = nil
	}
	t.cancel()
}

// MarkAsCompleted .
func (t *TextTracker) MarkAsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.skipped {
		return false
	}
	t.refreshLocked()
	ok := t.completeLocked(t.progress, "manual")
	t.stopTimersLocked()
	return ok
}

// State .
func (t *TextTracker) State() *domain.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed && !t.completionSent {
		t.refreshLocked()
	}
	state := t.stateLocked()
	state.CanComplete = !t.skipped && t.progress >= 100
	return state
}

// Close .
func (t *TextTracker) Close(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if !t.skipped && !t.completionSent {
		if t.refreshLocked() {
			t.completeLocked(100, reason)
		} else if t.elapsed() > t.config.NoiseFloor {
			t.reportLocked(t.progress, reason)
		}
	}
	t.stopTimersLocked()
	t.shutdownLocked()
}
