package feed

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	infra "github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/notification"
	"go.uber.org/zap"
)

// messages waiting per subscriber before new ones are dropped
const outboundSize = 16

// Event kind of a feed message
type Event string

const (
	EventToast         Event = "toast"
	EventNotifications Event = "notifications"
)

// Message pushed to the UI
type Message struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Subscriber one connected UI
type Subscriber struct {
	ID       string
	Outbound chan Message
}

// Hub fans toasts and notification snapshots out to the connected UIs
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*Subscriber]struct{}
}

var _ domain.Toaster = &Hub{}

// NewHub .
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*Subscriber]struct{}),
	}
}

// Subscribe .
func (h *Hub) Subscribe(id string) *Subscriber {
	s := &Subscriber{ID: id, Outbound: make(chan Message, outboundSize)}
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Feed subscriber added", zap.String("feed.subscriber", id))
	return s
}

// Unsubscribe .
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	delete(h.clients, s)
	h.mu.Unlock()
	h.logger.Debug("Feed subscriber removed", zap.String("feed.subscriber", s.ID))
}

// Len number of subscribers
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast never blocks, a subscriber with a full buffer misses the message
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.clients {
		select {
		case s.Outbound <- msg:
		default:
			h.logger.Warn("Dropping feed message, outbound buffer full",
				zap.String("feed.subscriber", s.ID),
				zap.String("feed.event", string(msg.Event)),
			)
		}
	}
}

// Toast implement domain.Toaster
func (h *Hub) Toast(toast domain.Toast) {
	h.Broadcast(Message{Event: EventToast, Data: toast})
}

// Notifications push a store snapshot, registered as a store listener
func (h *Hub) Notifications(snap notification.Snapshot) {
	h.Broadcast(Message{Event: EventNotifications, Data: snap})
}

// Serve write the subscriber's messages to conn until ctx is done or the UI goes away.
// initial messages are sent first.
func (h *Hub) Serve(ctx context.Context, s *Subscriber, conn *websocket.Conn, initial ...Message) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// the UI never sends anything, reading keeps control frames flowing
	readErr := make(chan error, 1)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for _, msg := range initial {
		if err := infra.WriteJSON(conn, msg); err != nil {
			return err
		}
	}
	for {
		select {
		case msg := <-s.Outbound:
			if err := infra.WriteJSON(conn, msg); err != nil {
				return err
			}
		case <-ctx.Done():
			select {
			case err := <-readErr:
				return err
			default:
				return ctx.Err()
			}
		}
	}
}
