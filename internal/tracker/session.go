package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	infra "github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure"
	"go.uber.org/zap"
)

// reports waiting for delivery per session, a full queue drops the newest report
const queueSize = 16

// Tracker a mounted lesson tracker
type Tracker interface {
	ID() string
	Ref() domain.LessonRef
	State() *domain.TrackerState
	// MarkAsCompleted sends the completion report unless one was sent already
	MarkAsCompleted() bool
	// Close flushes a final report when due, then stops every timer and binding
	Close(reason string)
	// Done is closed once every queued report has been handed to the reporter
	Done() <-chan struct{}
}

// Lesson mount request of a tracker
type Lesson struct {
	domain.LessonRef

	Module           domain.ModuleProgress `json:"module"`
	IsLessonComplete bool                  `json:"isLessonComplete"`
	TimeSpent        int                   `json:"timeSpent" validate:"min=0"`     // seconds recorded by earlier sessions
	ContentLength    int                   `json:"contentLength" validate:"min=0"` // characters, text lessons only
}

// Deps collaborators shared by all trackers
type Deps struct {
	Clock    quartz.Clock
	Reporter domain.ProgressReporter
	Config   infra.TrackingConfig
	Logger   *zap.Logger
	// Context of report delivery, it outlives single sessions so teardown flushes still go out
	Context context.Context
}

// session per-mount state shared by the video and text trackers. Every field below mu is
// guarded by it; timer and player callbacks take it before touching anything.
type session struct {
	id        string
	kind      domain.LessonKind
	lesson    Lesson
	clock     quartz.Clock
	config    infra.TrackingConfig
	reporter  domain.ProgressReporter
	logger    *zap.Logger
	sendCtx   context.Context
	startedAt time.Time

	// timers and bindings of the session
	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	skipped        bool
	closed         bool
	completionSent bool
	lastReported   float64
	progress       float64

	queue chan *domain.ProgressPayload
	done  chan struct{}
}

func newSession(id string, kind domain.LessonKind, lesson Lesson, deps *Deps) *session {
	sendCtx := deps.Context
	if sendCtx == nil {
		sendCtx = context.Background()
	}
	s := &session{
		id:        id,
		kind:      kind,
		lesson:    lesson,
		clock:     deps.Clock,
		config:    deps.Config,
		reporter:  deps.Reporter,
		sendCtx:   sendCtx,
		startedAt: deps.Clock.Now(),
		done:      make(chan struct{}),
		logger: deps.Logger.With(
			zap.String("session.id", id),
			zap.String("lesson.id", lesson.LessonID),
			zap.String("lesson.kind", string(kind)),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if lesson.IsLessonComplete {
		// nothing to track, no timers, no bindings, no reports
		s.skipped = true
		s.completionSent = true
		s.progress = 100
		close(s.done)
		return s
	}
	s.queue = make(chan *domain.ProgressPayload, queueSize)
	go s.sendLoop(s.queue)
	return s
}

// ID .
func (s *session) ID() string {
	return s.id
}

// Ref .
func (s *session) Ref() domain.LessonRef {
	return s.lesson.LessonRef
}

// Done .
func (s *session) Done() <-chan struct{} {
	return s.done
}

func (s *session) sendLoop(queue <-chan *domain.ProgressPayload) {
	defer close(s.done)
	for payload := range queue {
		err := s.reporter.UpdateLessonProgress(s.sendCtx, s.lesson.LessonRef, payload)
		if err != nil {
			s.logger.Warn("Failed to report lesson progress",
				zap.Error(err),
				zap.String("lesson.status", string(payload.LessonStatus)),
				zap.Float64("lesson.position", payload.LastPosition),
			)
			continue
		}
		s.logger.Debug("Reported lesson progress",
			zap.String("lesson.status", string(payload.LessonStatus)),
			zap.Float64("lesson.position", payload.LastPosition),
			zap.Int("lesson.time_spent", payload.TimeSpent),
		)
	}
}

func (s *session) elapsed() time.Duration {
	return s.clock.Since(s.startedAt)
}

func (s *session) timeSpentLocked() int {
	if s.skipped {
		return s.lesson.TimeSpent
	}
	return s.lesson.TimeSpent + int(s.elapsed()/time.Second)
}

// reportLocked queues a report, status follows the completion guard so it never reverts
func (s *session) reportLocked(position float64, reason string) {
	if s.queue == nil || s.closed {
		return
	}
	if position < s.lastReported {
		position = s.lastReported
	}
	s.lastReported = position

	status := domain.StatusInProgress
	if s.completionSent {
		status = domain.StatusCompleted
	}
	payload := &domain.ProgressPayload{
		StartedAt:         s.startedAt,
		LastPosition:      position,
		TimeSpent:         s.timeSpentLocked(),
		LessonStatus:      status,
		IsModuleCompleted: status == domain.StatusCompleted && s.lesson.Module.CompletesModule(),
	}
	select {
	case s.queue <- payload:
	default:
		s.logger.Warn("Progress queue is full, report dropped", zap.String("reason", reason))
	}
}

// completeLocked sends the completion report once per session
func (s *session) completeLocked(position float64, reason string) bool {
	if s.completionSent {
		return false
	}
	s.completionSent = true
	s.reportLocked(position, reason)
	s.logger.Info("Lesson completed", zap.String("reason", reason), zap.Float64("lesson.position", position))
	return true
}

// shutdownLocked releases the session timers and ends report delivery after the queued reports
func (s *session) shutdownLocked() {
	s.closed = true
	s.cancel()
	if s.queue != nil {
		close(s.queue)
		s.queue = nil
	}
}

func (s *session) stateLocked() *domain.TrackerState {
	return &domain.TrackerState{
		LessonRef:       s.lesson.LessonRef,
		SessionID:       s.id,
		Kind:            s.kind,
		IsCompleted:     s.completionSent,
		TimeSpent:       s.timeSpentLocked(),
		ProgressPercent: s.progress,
	}
}
