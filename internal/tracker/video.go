package tracker

import (
	"math"

	"github.com/coder/quartz"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"go.uber.org/zap"
)

// VideoTracker follows an embedded video player and reports watch progress
type VideoTracker struct {
	*session
	surface domain.PlayerSurface

	started     bool
	initialized bool
	attempts    int
	retry       *quartz.Timer
	player      domain.Player
	unbinds     []func()

	duration          float64
	position          float64
	thresholdReached  bool
	videoEnded        bool
	finalProgressSent bool
}

var _ Tracker = &VideoTracker{}

// NewVideoTracker create a video tracker, Start attaches it to the player surface
func NewVideoTracker(id string, lesson Lesson, surface domain.PlayerSurface, deps *Deps) *VideoTracker {
	return &VideoTracker{
		session: newSession(id, domain.LessonVideo, lesson, deps),
		surface: surface,
	}
}

// Start binds the player, retrying while the surface is not ready. Calling it again is a no-op.
func (t *VideoTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.skipped || t.closed || t.started {
		return
	}
	t.started = true
	t.attemptLocked()
}

func (t *VideoTracker) attemptLocked() {
	t.attempts++
	player, err := t.surface.Bind(t.ctx)
	if err == nil {
		t.bindLocked(player)
		return
	}
	if t.attempts >= t.config.InitAttempts {
		t.logger.Warn("Giving up binding the player", zap.Int("attempts", t.attempts), zap.Error(err))
		return
	}
	t.logger.Debug("Player is not ready, retrying", zap.Int("attempts", t.attempts), zap.Error(err))
	t.retry = t.clock.AfterFunc(t.config.InitBackoff, t.retryBind, "video", "init")
}

func (t *VideoTracker) retryBind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retry = nil
	if t.closed || t.initialized {
		return
	}
	t.attemptLocked()
}

func (t *VideoTracker) bindLocked(player domain.Player) {
	t.player = player
	t.initialized = true
	t.unbinds = append(t.unbinds,
		player.On(domain.PlayerReady, t.onReady),
		player.On(domain.PlayerTimeUpdate, t.onTimeUpdate),
		player.On(domain.PlayerEnded, t.onEnded),
		player.On(domain.PlayerError, t.onError),
	)
	t.clock.TickerFunc(t.ctx, t.config.PollInterval, t.poll, "video", "poll")
	t.logger.Debug("Player bound", zap.Int("attempts", t.attempts))
}

func (t *VideoTracker) onReady(ev domain.PlayerEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if ev.Duration > 0 {
		t.duration = ev.Duration
	}
}

func (t *VideoTracker) onTimeUpdate(ev domain.PlayerEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.duration <= 0 && ev.Duration > 0 {
		t.duration = ev.Duration
	}
	t.observeLocked(ev.Seconds)
}

func (t *VideoTracker) onEnded(ev domain.PlayerEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.videoEnded = true
	if t.finalProgressSent {
		return
	}
	if t.duration <= 0 && ev.Duration > 0 {
		t.duration = ev.Duration
	}
	if t.duration <= 0 {
		// handlers run on the player's read loop, a player call from here would never get its reply
		go t.endWithPlayerDuration(t.player)
		return
	}
	t.endLocked()
}

// endWithPlayerDuration asks the player for a duration nothing reported yet,
// without one the ended report is skipped
func (t *VideoTracker) endWithPlayerDuration(player domain.Player) {
	duration, err := player.Duration(t.ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.finalProgressSent {
		return
	}
	if t.duration <= 0 {
		t.duration = duration
	}
	if err != nil || t.duration <= 0 {
		t.logger.Warn("Skipping ended report, the video duration is unknown", zap.Error(err))
		return
	}
	t.endLocked()
}

func (t *VideoTracker) endLocked() {
	t.position = t.duration
	t.progress = 100
	t.finalProgressSent = true
	if !t.completeLocked(t.duration, "ended") {
		t.reportLocked(t.duration, "ended")
	}
}

func (t *VideoTracker) onError(ev domain.PlayerEvent) {
	t.logger.Warn("Player reported an error", zap.String("player.error", ev.Message))
}

// observeLocked records the playback position, the threshold only applies once the duration is known
func (t *VideoTracker) observeLocked(position float64) {
	t.position = position
	if t.duration <= 0 {
		return
	}
	t.progress = math.Min(position/t.duration*100, 100)
	if !t.thresholdReached && t.progress >= t.config.CompletionThreshold {
		t.thresholdReached = true
		t.completeLocked(position, "threshold")
	}
}

// poll re-samples the position, errors are logged only so the ticker keeps running
func (t *VideoTracker) poll() error {
	t.mu.Lock()
	player, needDuration, closed := t.player, t.duration <= 0, t.closed
	t.mu.Unlock()
	if closed || player == nil {
		return nil
	}

	var duration float64
	if needDuration {
		d, err := player.Duration(t.ctx)
		if err != nil {
			t.logger.Debug("Failed to read player duration", zap.Error(err))
		}
		duration = d
	}
	position, err := player.CurrentTime(t.ctx)
	if err != nil {
		t.logger.Debug("Failed to read player position", zap.Error(err))
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if t.duration <= 0 && duration > 0 {
		t.duration = duration
	}
	t.observeLocked(position)

	if !t.thresholdReached {
		if position-t.lastReported >= t.config.MinProgressDelta.Seconds() {
			t.reportLocked(position, "poll")
		}
		return nil
	}
	if !t.finalProgressSent && t.progress >= t.config.FinalProgressAt {
		t.finalProgressSent = true
		t.reportLocked(position, "final progress")
	}
	return nil
}

// MarkAsCompleted .
func (t *VideoTracker) MarkAsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.skipped {
		return false
	}
	return t.completeLocked(t.position, "manual")
}

// State .
func (t *VideoTracker) State() *domain.TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.stateLocked()
	state.CanComplete = !t.skipped && (t.thresholdReached || t.videoEnded)
	return state
}

// Close .
func (t *VideoTracker) Close(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if !t.skipped && !t.completionSent && !t.finalProgressSent {
		switch {
		case t.duration > 0 && t.progress >= t.config.CompletionThreshold:
			t.completeLocked(t.position, reason)
		case t.elapsed() > t.config.NoiseFloor:
			t.reportLocked(t.position, reason)
		}
	}

	if t.retry != nil {
		t.retry.Stop()
		t.retry = nil
	}
	for _, unbind := range t.unbinds {
		unbind()
	}
	t.unbinds = nil
	t.player = nil
	t.shutdownLocked()
}
