package realtime

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSTransport realtime transport over NATS subjects
type NATSTransport struct {
	stateNotifier
	nc     *nats.Conn
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]*natsSubscription
}

type natsSubscription struct {
	channel *boundChannel
	sub     *nats.Subscription
}

var _ Transport = &NATSTransport{}

// DialNATS connect to the NATS server, reconnection is left to the NATS client
func DialNATS(url string, logger *zap.Logger) (*NATSTransport, error) {
	t := &NATSTransport{
		logger: logger.With(zap.String("realtime.driver", "nats")),
		subs:   make(map[string]*natsSubscription),
	}
	t.notify(StateConnecting)
	nc, err := nats.Connect(url,
		nats.Name("jsninja-sidecar"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(t.onDisconnect),
		nats.ReconnectHandler(t.onReconnect),
		nats.ClosedHandler(t.onClosed),
	)
	if err != nil {
		t.notify(StateError)
		return nil, err
	}
	t.nc = nc
	t.notify(StateConnected)
	return t, nil
}

func (t *NATSTransport) onDisconnect(_ *nats.Conn, err error) {
	if err != nil {
		t.logger.Warn("NATS connection lost", zap.Error(err))
		t.notify(StateError)
		return
	}
	t.notify(StateConnecting)
}

func (t *NATSTransport) onReconnect(nc *nats.Conn) {
	t.logger.Info("NATS reconnected", zap.String("nats.url", nc.ConnectedUrl()))
	t.notify(StateConnected)
}

func (t *NATSTransport) onClosed(*nats.Conn) {
	t.notify(StateDisconnected)
}

// deliver the message handler of a subscribed channel
func (t *NATSTransport) deliver(ch *boundChannel) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if _, err := ch.dispatch(msg.Data); err != nil {
			t.logger.Warn("Malformed realtime message",
				zap.String("realtime.channel", ch.Name()),
				zap.Error(err),
			)
		}
	}
}

// Subscribe implement Transport
func (t *NATSTransport) Subscribe(_ context.Context, channel string) (Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.subs[channel]; ok {
		return s.channel, nil
	}

	ch := newBoundChannel(channel)
	sub, err := t.nc.Subscribe(channel, t.deliver(ch))
	if err != nil {
		return nil, err
	}
	t.subs[channel] = &natsSubscription{channel: ch, sub: sub}
	return ch, nil
}

// Unsubscribe implement Transport
func (t *NATSTransport) Unsubscribe(channel string) error {
	t.mu.Lock()
	s, ok := t.subs[channel]
	delete(t.subs, channel)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	return s.sub.Unsubscribe()
}

// Close implement Transport, drains the subscriptions and closes the connection
func (t *NATSTransport) Close() error {
	t.mu.Lock()
	t.subs = make(map[string]*natsSubscription)
	t.mu.Unlock()
	if t.nc == nil {
		return nil
	}
	err := t.nc.Drain()
	if err != nil {
		t.nc.Close()
	}
	return err
}
