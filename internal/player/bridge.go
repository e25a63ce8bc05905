package player

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	infra "github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure"
	"go.uber.org/zap"
)

// ErrBridgeClosed the player page went away
var ErrBridgeClosed = errors.New("player bridge closed")

// query methods understood by the player page
const (
	methodCurrentTime = "getCurrentTime"
	methodDuration    = "getDuration"
)

// inbound either an event pushed by the player page or the reply to a request
type inbound struct {
	Event domain.PlayerEventName `json:"event,omitempty"`
	Data  struct {
		Seconds  float64 `json:"seconds"`
		Duration float64 `json:"duration"`
		Message  string  `json:"message"`
	} `json:"data"`
	ID    int64   `json:"id,omitempty"`
	Value float64 `json:"value"`
	Error string  `json:"error,omitempty"`
}

type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
}

type reply struct {
	value float64
	err   error
}

// Bridge player control over the websocket of an embedded player page
type Bridge struct {
	conn    *websocket.Conn
	logger  *zap.Logger
	writeMu sync.Mutex

	mu          sync.Mutex
	handlers    map[domain.PlayerEventName]map[int]func(domain.PlayerEvent)
	nextHandler int
	pending     map[int64]chan reply
	nextID      int64

	closed    chan struct{}
	closeOnce sync.Once
}

var _ domain.Player = &Bridge{}

// NewBridge .
func NewBridge(conn *websocket.Conn, logger *zap.Logger) *Bridge {
	return &Bridge{
		conn:     conn,
		logger:   logger,
		handlers: make(map[domain.PlayerEventName]map[int]func(domain.PlayerEvent)),
		pending:  make(map[int64]chan reply),
		closed:   make(chan struct{}),
	}
}

// On implement domain.Player
func (b *Bridge) On(event domain.PlayerEventName, handler func(domain.PlayerEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[event] == nil {
		b.handlers[event] = make(map[int]func(domain.PlayerEvent))
	}
	id := b.nextHandler
	b.nextHandler++
	b.handlers[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[event], id)
		})
	}
}

// CurrentTime implement domain.Player
func (b *Bridge) CurrentTime(ctx context.Context) (float64, error) {
	return b.call(ctx, methodCurrentTime)
}

// Duration implement domain.Player
func (b *Bridge) Duration(ctx context.Context) (float64, error) {
	return b.call(ctx, methodDuration)
}

func (b *Bridge) call(ctx context.Context, method string) (float64, error) {
	b.mu.Lock()
	select {
	case <-b.closed:
		b.mu.Unlock()
		return 0, ErrBridgeClosed
	default:
	}
	b.nextID++
	id := b.nextID
	ch := make(chan reply, 1)
	b.pending[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	b.writeMu.Lock()
	err := infra.WriteJSON(b.conn, &request{ID: id, Method: method})
	b.writeMu.Unlock()
	if err != nil {
		return 0, err
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-b.closed:
		return 0, ErrBridgeClosed
	}
}

// Serve reads the player page until the connection ends
func (b *Bridge) Serve() error {
	defer b.Close()
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return err
		}
		b.dispatch(data)
	}
}

func (b *Bridge) dispatch(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		b.logger.Debug("Malformed player message", zap.Error(err))
		return
	}

	if msg.Event == "" {
		b.mu.Lock()
		ch := b.pending[msg.ID]
		b.mu.Unlock()
		if ch == nil {
			b.logger.Debug("Unexpected player reply", zap.Int64("player.request_id", msg.ID))
			return
		}
		r := reply{value: msg.Value}
		if msg.Error != "" {
			r.err = errors.New(msg.Error)
		}
		ch <- r
		return
	}

	ev := domain.PlayerEvent{
		Name:     msg.Event,
		Seconds:  msg.Data.Seconds,
		Duration: msg.Data.Duration,
		Message:  msg.Data.Message,
	}
	b.mu.Lock()
	handlers := make([]func(domain.PlayerEvent), 0, len(b.handlers[ev.Name]))
	for _, h := range b.handlers[ev.Name] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Closed is closed once the bridge stopped serving
func (b *Bridge) Closed() <-chan struct{} {
	return b.closed
}

// Close .
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		close(b.closed)
		b.mu.Unlock()
		err = b.conn.Close()
	})
	return err
}
