package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisTransport realtime transport over redis pub/sub, one receive loop per channel
type RedisTransport struct {
	stateNotifier
	rdb    *redis.Client
	logger *zap.Logger
	// retry schedule of a receive loop, the client reconnects on the next receive
	newBackOff func() backoff.BackOff

	mu   sync.Mutex
	subs map[string]*redisSubscription
}

type redisSubscription struct {
	channel *boundChannel
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ Transport = &RedisTransport{}

// NewRedisTransport .
func NewRedisTransport(rdb *redis.Client, logger *zap.Logger) *RedisTransport {
	t := &RedisTransport{
		rdb:        rdb,
		logger:     logger.With(zap.String("realtime.driver", "redis")),
		newBackOff: redisBackOff,
		subs:       make(map[string]*redisSubscription),
	}
	t.notify(StateDisconnected)
	return t
}

// Subscribe implement Transport
func (t *RedisTransport) Subscribe(ctx context.Context, channel string) (Channel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sub, ok := t.subs[channel]; ok {
		return sub.channel, nil
	}

	t.notify(StateConnecting)
	loopCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{
		channel: newBoundChannel(channel),
		pubsub:  t.rdb.Subscribe(ctx, channel),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	t.subs[channel] = sub
	go t.receive(loopCtx, sub)
	return sub.channel, nil
}

// redisBackOff retries forever, capped at 30s between attempts
func redisBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0
	return eb
}

func (t *RedisTransport) receive(ctx context.Context, sub *redisSubscription) {
	defer close(sub.done)
	logger := t.logger.With(zap.String("realtime.channel", sub.channel.Name()))
	bkoff := backoff.WithContext(t.newBackOff(), ctx)
	for {
		msg, err := sub.pubsub.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.notify(StateError)
			wait := bkoff.NextBackOff()
			if wait == backoff.Stop {
				logger.Error("Gave up receiving realtime messages", zap.Error(err))
				return
			}
			logger.Warn("Failed to receive realtime message", zap.Error(err), zap.Duration("retry.in", wait))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			t.notify(StateConnecting)
			continue
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" {
				bkoff.Reset()
				t.notify(StateConnected)
			}
		case *redis.Message:
			if _, err := sub.channel.dispatch([]byte(m.Payload)); err != nil {
				logger.Warn("Malformed realtime message", zap.Error(err))
			}
		}
	}
}

// Unsubscribe implement Transport
func (t *RedisTransport) Unsubscribe(channel string) error {
	t.mu.Lock()
	sub, ok := t.subs[channel]
	delete(t.subs, channel)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	sub.cancel()
	err := sub.pubsub.Close()
	<-sub.done
	t.notify(StateDisconnected)
	return err
}

// Close implement Transport, the redis client stays open for its owner
func (t *RedisTransport) Close() error {
	t.mu.Lock()
	names := make([]string, 0, len(t.subs))
	for name := range t.subs {
		names = append(names, name)
	}
	t.mu.Unlock()

	var firstErr error
	for _, name := range names {
		if err := t.Unsubscribe(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.notify(StateDisconnected)
	return firstErr
}
