package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/notification"
	"go.uber.org/zap"
)

// errMissingDocumentID a pushed notification cannot be deduplicated without its document ID
var errMissingDocumentID = errors.New("pushed notification has no documentId")

// Sink receives the notifications pushed on the user channel
type Sink interface {
	IngestPushed(entry *domain.NotificationEntry) bool
}

// pushed payload of a notification event
type pushed struct {
	ID         int                     `json:"id"`
	DocumentID string                  `json:"documentId"`
	Title      string                  `json:"title"`
	Content    string                  `json:"content"`
	Message    string                  `json:"message"`
	Type       domain.NotificationType `json:"type"`
	Priority   domain.Priority         `json:"priority"`
	CreatedAt  time.Time               `json:"createdAt"`
	ActionURL  string                  `json:"actionUrl"`
}

// Client keeps one user channel subscribed for the current identity
type Client struct {
	transport Transport
	sink      Sink
	toaster   domain.Toaster
	prefix    string
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	identity *domain.Identity
	channel  Channel

	stateMu sync.RWMutex
	state   State
}

// NewClient .
func NewClient(transport Transport, sink Sink, toaster domain.Toaster, prefix string, logger *zap.Logger) *Client {
	c := &Client{
		transport: transport,
		sink:      sink,
		toaster:   toaster,
		prefix:    prefix,
		logger:    logger,
		now:       time.Now,
		state:     StateDisconnected,
	}
	transport.OnStateChange(c.setState)
	return c
}

func (c *Client) setState(state State) {
	c.stateMu.Lock()
	prev := c.state
	c.state = state
	c.stateMu.Unlock()
	if prev != state {
		c.logger.Debug("Realtime state changed",
			zap.String("realtime.from", string(prev)),
			zap.String("realtime.to", string(state)),
		)
	}
}

// State latest known transport state
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected .
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// ChannelName channel of a user
func (c *Client) ChannelName(identity *domain.Identity) string {
	return c.prefix + identity.DocumentID
}

// SetIdentity subscribe the channel of identity, replacing the channel of any previous identity
func (c *Client) SetIdentity(ctx context.Context, identity *domain.Identity) error {
	if !identity.Known() {
		return domain.ErrNoIdentity
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil && c.identity.DocumentID == identity.DocumentID {
		c.identity = identity
		return nil
	}
	if err := c.teardownLocked(); err != nil {
		c.logger.Warn("Failed to leave previous realtime channel", zap.Error(err))
	}

	name := c.ChannelName(identity)
	ch, err := c.transport.Subscribe(ctx, name)
	if err != nil {
		return err
	}
	// the role is captured here, handlers must not take c.mu
	role := identity.Role
	for _, ev := range Catalogue {
		ch.Bind(string(ev.Name), c.handler(ev, role))
	}
	c.identity = identity
	c.channel = ch
	c.logger.Info("Realtime channel subscribed", zap.String("realtime.channel", name))
	return nil
}

// ClearIdentity leave the channel of the current identity
func (c *Client) ClearIdentity() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardownLocked()
}

// teardownLocked handlers are unbound before the channel is unsubscribed
func (c *Client) teardownLocked() error {
	if c.channel == nil {
		return nil
	}
	ch := c.channel
	c.channel = nil
	c.identity = nil

	ch.UnbindAll()
	err := c.transport.Unsubscribe(ch.Name())
	c.logger.Info("Realtime channel left", zap.String("realtime.channel", ch.Name()))
	return err
}

// Close leave the channel and close the transport
func (c *Client) Close() error {
	err := c.ClearIdentity()
	if cerr := c.transport.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Client) handler(ev Event, role domain.Role) func([]byte) {
	return func(data []byte) {
		entry, err := c.decode(ev, data)
		if err != nil {
			c.logger.Warn("Dropped realtime notification",
				zap.String("realtime.event", string(ev.Name)),
				zap.Error(err),
			)
			return
		}
		if !c.sink.IngestPushed(entry) {
			c.logger.Debug("Duplicate realtime notification",
				zap.String("notification.document_id", entry.DocumentID),
			)
		}

		// the payload's own type wins over the event it arrived on
		tone := ev.Tone
		if entry.Type != ev.Name {
			tone = ToneOf(entry.Type)
		}
		text := notification.RenderForAudience(entry, role)
		c.toaster.Toast(domain.Toast{
			Tone:      tone,
			Title:     text.Title,
			Content:   text.Content,
			ActionURL: entry.ActionURL,
		})
	}
}

func (c *Client) decode(ev Event, data []byte) (*domain.NotificationEntry, error) {
	var p pushed
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.DocumentID == "" {
		return nil, errMissingDocumentID
	}

	entry := &domain.NotificationEntry{
		ID:         p.ID,
		DocumentID: p.DocumentID,
		Title:      p.Title,
		Content:    p.Content,
		Type:       p.Type,
		Priority:   p.Priority,
		CreatedAt:  p.CreatedAt,
		ActionURL:  p.ActionURL,
	}
	if entry.Content == "" {
		entry.Content = p.Message
	}
	if entry.Type == "" {
		entry.Type = ev.Name
	}
	if entry.Priority == "" {
		entry.Priority = domain.PriorityMedium
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now()
	}
	return entry, nil
}
