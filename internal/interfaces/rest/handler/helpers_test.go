package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/driver"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/tracker"
	"github.com/stretchr/testify/require"
)

func newRequest(e *echo.Echo, method, path string, data ...[]byte) (echo.Context, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	return ctx, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

type fakeTracker struct {
	id        string
	state     *domain.TrackerState
	completed bool
}

func (t *fakeTracker) ID() string                  { return t.id }
func (t *fakeTracker) Ref() domain.LessonRef       { return t.state.LessonRef }
func (t *fakeTracker) State() *domain.TrackerState { return t.state }
func (t *fakeTracker) Close(string)                {}

func (t *fakeTracker) MarkAsCompleted() bool {
	if t.completed {
		return false
	}
	t.completed = true
	t.state.IsCompleted = true
	return true
}

func (t *fakeTracker) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

type fakeRegistry struct {
	sessions  map[string]*fakeTracker
	unmounted map[string]string
	next      int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		sessions:  make(map[string]*fakeTracker),
		unmounted: make(map[string]string),
	}
}

func (r *fakeRegistry) MountVideo(lesson tracker.Lesson) (tracker.Tracker, error) {
	return r.mount(lesson, domain.LessonVideo)
}

func (r *fakeRegistry) MountText(lesson tracker.Lesson) (tracker.Tracker, error) {
	return r.mount(lesson, domain.LessonText)
}

func (r *fakeRegistry) mount(lesson tracker.Lesson, kind domain.LessonKind) (tracker.Tracker, error) {
	if err := lesson.Validate(); err != nil {
		return nil, err
	}
	r.next++
	id := fmt.Sprintf("s%d", r.next)
	t := &fakeTracker{
		id:        id,
		completed: lesson.IsLessonComplete,
		state: &domain.TrackerState{
			LessonRef:   lesson.LessonRef,
			SessionID:   id,
			Kind:        kind,
			IsCompleted: lesson.IsLessonComplete,
			TimeSpent:   lesson.TimeSpent,
		},
	}
	r.sessions[id] = t
	return t, nil
}

func (r *fakeRegistry) Get(id string) (tracker.Tracker, error) {
	t, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return t, nil
}

func (r *fakeRegistry) Unmount(id string, reason string) error {
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	r.unmounted[id] = reason
	return nil
}

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

var _ driver.KeyValueDB = &fakeKV{}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (kv *fakeKV) SetEX(_ context.Context, key string, value string, expiration time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	kv.ttl[key] = expiration
	return nil
}

func (kv *fakeKV) Get(_ context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[key]
	if !ok {
		return "", driver.ErrKeyNotFound
	}
	return v, nil
}

func (kv *fakeKV) Exists(_ context.Context, key string) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, ok := kv.data[key]
	return ok, nil
}

func (kv *fakeKV) Ping(context.Context) error { return nil }

type fakeIdentities struct {
	established []*domain.Identity
	cleared     int
}

func (f *fakeIdentities) Establish(_ context.Context, identity *domain.Identity) error {
	if !identity.Known() {
		return domain.ErrNoIdentity
	}
	f.established = append(f.established, identity)
	return nil
}

func (f *fakeIdentities) Clear() { f.cleared++ }
