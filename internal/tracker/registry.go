package tracker

import (
	"context"
	"sync"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/uuid"
	"go.uber.org/zap"
)

// SurfaceProvider hands out the player surface of a video session
type SurfaceProvider interface {
	Surface(sessionID string) domain.PlayerSurface
	Release(sessionID string)
}

// Registry live tracker sessions, at most one per lesson
type Registry struct {
	deps     *Deps
	surfaces SurfaceProvider
	ids      uuid.Generator
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]Tracker
	lessons  map[domain.LessonRef]string
}

// NewRegistry .
func NewRegistry(deps *Deps, surfaces SurfaceProvider, ids uuid.Generator) *Registry {
	return &Registry{
		deps:     deps,
		surfaces: surfaces,
		ids:      ids,
		logger:   deps.Logger,
		sessions: make(map[string]Tracker),
		lessons:  make(map[domain.LessonRef]string),
	}
}

// MountVideo start tracking a video lesson, a live session of the same lesson is closed first
func (r *Registry) MountVideo(lesson Lesson) (Tracker, error) {
	return r.mount(lesson, func(id string) Tracker {
		t := NewVideoTracker(id, lesson, r.surfaces.Surface(id), r.deps)
		t.Start()
		return t
	})
}

// MountText start tracking a text lesson, a live session of the same lesson is closed first
func (r *Registry) MountText(lesson Lesson) (Tracker, error) {
	return r.mount(lesson, func(id string) Tracker {
		t := NewTextTracker(id, lesson, r.deps)
		t.Start()
		return t
	})
}

func (r *Registry) mount(lesson Lesson, create func(id string) Tracker) (Tracker, error) {
	if err := lesson.Validate(); err != nil {
		return nil, err
	}
	id, err := r.ids.Generate()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.lessons[lesson.LessonRef]; ok {
		r.closeLocked(prev, "remount")
	}
	t := create(id)
	r.sessions[id] = t
	r.lessons[lesson.LessonRef] = id
	r.logger.Debug("Tracker mounted",
		zap.String("session.id", id),
		zap.String("lesson.id", lesson.LessonID),
		zap.Bool("lesson.completed", lesson.IsLessonComplete),
	)
	return t, nil
}

// Get .
func (r *Registry) Get(id string) (Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return t, nil
}

// Unmount close the session, flushing its final report
func (r *Registry) Unmount(id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	r.closeLocked(id, reason)
	return nil
}

func (r *Registry) closeLocked(id string, reason string) {
	t := r.sessions[id]
	delete(r.sessions, id)
	if r.lessons[t.Ref()] == id {
		delete(r.lessons, t.Ref())
	}
	t.Close(reason)
	if r.surfaces != nil {
		r.surfaces.Release(id)
	}
	r.logger.Debug("Tracker unmounted", zap.String("session.id", id), zap.String("reason", reason))
}

// Len number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown close every session and wait until their final reports are handed off or ctx is done
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	closed := make([]Tracker, 0, len(r.sessions))
	for id, t := range r.sessions {
		closed = append(closed, t)
		r.closeLocked(id, "shutdown")
	}
	r.mu.Unlock()

	for _, t := range closed {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
