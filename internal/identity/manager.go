package identity

import (
	"context"
	"sync"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// Subscriber realtime side of an identity
type Subscriber interface {
	SetIdentity(ctx context.Context, identity *domain.Identity) error
	ClearIdentity() error
}

// Loader initial pull of the identity's notifications
type Loader interface {
	Load(ctx context.Context) error
}

// Resetter forgets everything held for the previous identity
type Resetter interface {
	Reset()
}

// Manager owns the current identity. Establishing one subscribes the user channel
// and loads the notifications, clearing it tears both down.
type Manager struct {
	realtime      Subscriber
	notifications Loader
	store         Resetter
	logger        *zap.Logger

	// switchMu serializes whole Establish/Clear transitions, mu guards current
	switchMu sync.Mutex
	mu       sync.RWMutex
	current  *domain.Identity
}

// NewManager .
func NewManager(realtime Subscriber, notifications Loader, store Resetter, logger *zap.Logger) *Manager {
	return &Manager{
		realtime:      realtime,
		notifications: notifications,
		store:         store,
		logger:        logger,
	}
}

// Current .
func (m *Manager) Current() *domain.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Token implement backend.TokenSource
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// Establish make identity current. Realtime and notification failures are logged,
// the UI falls back to stale notifications.
// On a user switch the old channel is torn down before the store is reset, so no
// push for the previous user can land after the reset.
func (m *Manager) Establish(ctx context.Context, identity *domain.Identity) error {
	apmSpan, ctx := apm.StartSpan(ctx, "IdentityManager.Establish", "service")
	defer apmSpan.End()

	if !identity.Known() {
		return domain.ErrNoIdentity
	}

	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	prev := m.current
	m.current = identity
	m.mu.Unlock()

	logger := m.logger.With(zap.String("user.id", identity.DocumentID))
	if err := m.realtime.SetIdentity(ctx, identity); err != nil {
		logger.Warn("Failed to subscribe realtime channel", zap.Error(err))
	}
	if prev != nil && prev.DocumentID != identity.DocumentID {
		m.store.Reset()
	}
	if err := m.notifications.Load(ctx); err != nil {
		logger.Warn("Failed to load notifications", zap.Error(err))
	}
	return nil
}

// Clear forget the current identity
func (m *Manager) Clear() {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()
	if prev == nil {
		return
	}

	if err := m.realtime.ClearIdentity(); err != nil {
		m.logger.Warn("Failed to leave realtime channel", zap.String("user.id", prev.DocumentID), zap.Error(err))
	}
	m.store.Reset()
}
