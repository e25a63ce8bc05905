package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	infra "github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type report struct {
	ref     domain.LessonRef
	payload domain.ProgressPayload
}

type fakeReporter struct {
	mu    sync.Mutex
	calls []report
	err   error
}

func (f *fakeReporter) UpdateLessonProgress(_ context.Context, ref domain.LessonRef, payload *domain.ProgressPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, report{ref, *payload})
	return f.err
}

func (f *fakeReporter) Calls() []report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]report(nil), f.calls...)
}

func completedReports(calls []report) []report {
	var out []report
	for _, c := range calls {
		if c.payload.LessonStatus == domain.StatusCompleted {
			out = append(out, c)
		}
	}
	return out
}

type fakePlayer struct {
	mu       sync.Mutex
	handlers map[domain.PlayerEventName]map[int]func(domain.PlayerEvent)
	next     int
	position float64
	duration float64
}

func newFakePlayer(duration float64) *fakePlayer {
	return &fakePlayer{
		handlers: make(map[domain.PlayerEventName]map[int]func(domain.PlayerEvent)),
		duration: duration,
	}
}

func (p *fakePlayer) On(event domain.PlayerEventName, handler func(domain.PlayerEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handlers[event] == nil {
		p.handlers[event] = make(map[int]func(domain.PlayerEvent))
	}
	id := p.next
	p.next++
	p.handlers[event][id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers[event], id)
	}
}

func (p *fakePlayer) CurrentTime(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, nil
}

func (p *fakePlayer) Duration(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, nil
}

func (p *fakePlayer) setPosition(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = seconds
}

// emit delivers ev synchronously, like the bridge read loop does
func (p *fakePlayer) emit(ev domain.PlayerEvent) {
	p.mu.Lock()
	var handlers []func(domain.PlayerEvent)
	for _, h := range p.handlers[ev.Name] {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (p *fakePlayer) timeUpdate(seconds float64) {
	p.setPosition(seconds)
	p.emit(domain.PlayerEvent{Name: domain.PlayerTimeUpdate, Seconds: seconds})
}

func (p *fakePlayer) handlerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, hs := range p.handlers {
		n += len(hs)
	}
	return n
}

type fakeSurface struct {
	mu     sync.Mutex
	player *fakePlayer
	ready  bool
	binds  int
}

func (s *fakeSurface) Bind(context.Context) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binds++
	if !s.ready {
		return nil, domain.ErrNotReady
	}
	return s.player, nil
}

func (s *fakeSurface) setReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}

func (s *fakeSurface) bindCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binds
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	clock    *quartz.Mock
	reporter *fakeReporter
	deps     *Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	clock := quartz.NewMock(t)
	reporter := &fakeReporter{}
	return &harness{
		t:        t,
		ctx:      ctx,
		clock:    clock,
		reporter: reporter,
		deps: &Deps{
			Clock:    clock,
			Reporter: reporter,
			Config:   infra.DefaultTrackingConfig(),
			Logger:   zaptest.NewLogger(t),
			Context:  context.Background(),
		},
	}
}

// advance moves the mock clock by d, stopping at every timer on the way
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	for d > 0 {
		next, ok := h.clock.Peek()
		if !ok || next > d {
			h.clock.Advance(d).MustWait(h.ctx)
			return
		}
		h.clock.Advance(next).MustWait(h.ctx)
		d -= next
	}
}

// closeAndWait tears the tracker down and waits for report delivery to end
func (h *harness) closeAndWait(tr Tracker, reason string) {
	h.t.Helper()
	tr.Close(reason)
	select {
	case <-tr.Done():
	case <-h.ctx.Done():
		h.t.Fatal("timed out waiting for the tracker to drain")
	}
}

func testLesson() Lesson {
	return Lesson{
		LessonRef: domain.LessonRef{CourseID: "c1", ModuleID: "m1", LessonID: "l1"},
		Module:    domain.ModuleProgress{CompletedLessons: 2, TotalLessons: 3},
	}
}
