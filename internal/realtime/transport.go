package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// State connection state of the realtime transport
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

// Transport publish/subscribe primitive the realtime client is built on.
// Reconnection and backoff belong to the transport.
type Transport interface {
	Subscribe(ctx context.Context, channel string) (Channel, error)
	Unsubscribe(channel string) error
	// OnStateChange registers the listener of connection state changes
	OnStateChange(listener func(State))
	Close() error
}

// Channel a subscribed channel, handlers of an event run in delivery order
type Channel interface {
	Name() string
	Bind(event string, handler func(data []byte))
	UnbindAll()
}

// envelope wire format of a published event
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Envelope encode an event the way the transports expect it on the wire
func Envelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&envelope{Event: event, Data: raw})
}

// boundChannel handler table shared by the transports
type boundChannel struct {
	name string

	mu       sync.RWMutex
	handlers map[string][]func([]byte)
}

func newBoundChannel(name string) *boundChannel {
	return &boundChannel{
		name:     name,
		handlers: make(map[string][]func([]byte)),
	}
}

func (c *boundChannel) Name() string {
	return c.name
}

func (c *boundChannel) Bind(event string, handler func(data []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

func (c *boundChannel) UnbindAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = make(map[string][]func([]byte))
}

// dispatch decodes an envelope and runs the bound handlers, reports whether anything was bound
func (c *boundChannel) dispatch(payload []byte) (bool, error) {
	var msg envelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		return false, err
	}
	// held while handlers run so nothing fires once UnbindAll returned
	c.mu.RLock()
	defer c.mu.RUnlock()
	handlers := c.handlers[msg.Event]
	for _, h := range handlers {
		h(msg.Data)
	}
	return len(handlers) > 0, nil
}

// stateNotifier keeps the state listener of a transport,
// a new listener is told the current state right away
type stateNotifier struct {
	mu       sync.Mutex
	listener func(State)
	last     State
}

func (n *stateNotifier) OnStateChange(listener func(State)) {
	n.mu.Lock()
	n.listener = listener
	last := n.last
	n.mu.Unlock()
	if listener != nil && last != "" {
		listener(last)
	}
}

func (n *stateNotifier) notify(state State) {
	n.mu.Lock()
	n.last = state
	listener := n.listener
	n.mu.Unlock()
	if listener != nil {
		listener(state)
	}
}
