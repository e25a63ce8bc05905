package player

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"go.uber.org/zap"
)

// Surface player surface of one video tracking session
type Surface struct {
	mu     sync.Mutex
	bridge *Bridge
}

var _ domain.PlayerSurface = &Surface{}

// Bind implement domain.PlayerSurface
func (s *Surface) Bind(context.Context) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bridge == nil {
		return nil, domain.ErrNotReady
	}
	select {
	case <-s.bridge.Closed():
		return nil, domain.ErrNotReady
	default:
		return s.bridge, nil
	}
}

// Hub player surfaces keyed by tracking session ID
type Hub struct {
	logger *zap.Logger

	mu       sync.Mutex
	surfaces map[string]*Surface
}

// NewHub .
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger,
		surfaces: make(map[string]*Surface),
	}
}

// Surface implement tracker.SurfaceProvider
func (h *Hub) Surface(sessionID string) domain.PlayerSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.surfaces[sessionID]
	if !ok {
		s = &Surface{}
		h.surfaces[sessionID] = s
	}
	return s
}

// Release drop the surface and disconnect its player page
func (h *Hub) Release(sessionID string) {
	h.mu.Lock()
	s, ok := h.surfaces[sessionID]
	delete(h.surfaces, sessionID)
	h.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	bridge := s.bridge
	s.bridge = nil
	s.mu.Unlock()
	if bridge != nil {
		bridge.Close()
	}
}

// Serve attach the connected player page to the session surface and serve it until it disconnects
func (h *Hub) Serve(sessionID string, conn *websocket.Conn) error {
	h.mu.Lock()
	s, ok := h.surfaces[sessionID]
	h.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	logger := h.logger.With(zap.String("session.id", sessionID))
	bridge := NewBridge(conn, logger)
	s.mu.Lock()
	prev := s.bridge
	s.bridge = bridge
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	logger.Debug("Player attached")

	err := bridge.Serve()

	s.mu.Lock()
	if s.bridge == bridge {
		s.bridge = nil
	}
	s.mu.Unlock()
	logger.Debug("Player detached", zap.Error(err))
	return err
}
