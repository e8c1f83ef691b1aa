// Package redisadapter bridges the event bus to Redis pub/sub. It
// satisfies the bus's Adapter contract, so installing it routes both
// publish and subscribe paths through Redis channels.
//
// Delivery follows Redis pub/sub semantics: at-most-once, no
// persistence, no replay. Subscribers only see events published while
// they are connected.
package redisadapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/randalmurphal/eventkit/pkg/eventkit/event"
)

const defaultChannelPrefix = "events:"

// Adapter routes events through Redis pub/sub channels, one channel per
// event type. Events travel as JSON envelopes.
type Adapter struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Compile-time contract check.
var _ event.Adapter = (*Adapter)(nil)

// Option configures the adapter.
type Option func(*Adapter)

// WithChannelPrefix overrides the Redis channel prefix.
// Default: "events:"
func WithChannelPrefix(prefix string) Option {
	return func(a *Adapter) {
		a.prefix = prefix
	}
}

// WithLogger sets the logger for decode and handler failures, which
// happen on the delivery goroutine and cannot be returned to a caller.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates a Redis transport adapter on an existing client.
func New(client *redis.Client, opts ...Option) *Adapter {
	a := &Adapter{
		client: client,
		prefix: defaultChannelPrefix,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// channel maps an event type to its Redis channel name.
func (a *Adapter) channel(eventType string) string {
	return a.prefix + eventType
}

// Publish implements event.Adapter: the event is marshalled to its
// envelope form and published to the channel for its type.
func (a *Adapter) Publish(ctx context.Context, evt event.Event) error {
	payload, err := event.EncodeEnvelope(evt)
	if err != nil {
		return err
	}
	if err := a.client.Publish(ctx, a.channel(evt.Type()), payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", evt.Type(), err)
	}
	return nil
}

// Subscribe implements event.Adapter. It opens a Redis subscription on
// the event type's channel and dispatches decoded envelopes to the
// handler on a delivery goroutine. The returned function closes the
// subscription.
func (a *Adapter) Subscribe(eventType string, h event.Handler) (func(), error) {
	ps := a.client.Subscribe(context.Background(), a.channel(eventType))

	// Receive the subscription confirmation so a returned Subscribe
	// means the channel is live.
	if _, err := ps.Receive(context.Background()); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", eventType, err)
	}

	go a.deliver(ps, eventType, h)

	return func() { _ = ps.Close() }, nil
}

// deliver drains one subscription until it is closed.
func (a *Adapter) deliver(ps *redis.PubSub, eventType string, h event.Handler) {
	for msg := range ps.Channel() {
		evt, err := event.DecodeEnvelope([]byte(msg.Payload))
		if err != nil {
			a.logError("dropping undecodable event payload", eventType, err)
			continue
		}
		if err := h.Handle(context.Background(), evt); err != nil {
			a.logError("event handler failed", eventType, err)
		}
	}
}

func (a *Adapter) logError(msg, eventType string, err error) {
	if a.logger == nil {
		return
	}
	a.logger.Error(msg,
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
