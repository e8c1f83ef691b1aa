package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ChannelAdapterConfig configures a ChannelAdapter.
type ChannelAdapterConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 256
	BufferSize int

	// NonBlocking makes Publish non-blocking (drops events if a
	// subscription's buffer is full). Default: false (blocking)
	NonBlocking bool

	// OnDrop is called when an event is dropped (non-blocking mode).
	OnDrop func(evt Event, eventType string)

	// OnError is called when a handler returns an error.
	OnError func(evt Event, eventType string, err error)
}

// DefaultChannelAdapterConfig provides reasonable defaults.
var DefaultChannelAdapterConfig = ChannelAdapterConfig{
	BufferSize: 256,
}

// ChannelAdapter is an in-process asynchronous transport: each
// subscription owns a buffered channel drained by its own goroutine, so
// Publish decouples producers from handler execution. It satisfies
// Adapter and trades the bus's synchronous barrier for throughput.
type ChannelAdapter struct {
	cfg ChannelAdapterConfig

	mu   sync.RWMutex
	subs map[string]map[string]*channelSub // event type -> subscription ID -> subscription

	closed  atomic.Bool
	closeCh chan struct{}
}

// channelSub is one channel-backed subscription.
type channelSub struct {
	id      string
	events  chan Event
	done    chan struct{}
	handler Handler
}

// NewChannelAdapter creates a channel-based transport adapter.
func NewChannelAdapter(cfg ChannelAdapterConfig) *ChannelAdapter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultChannelAdapterConfig.BufferSize
	}
	return &ChannelAdapter{
		cfg:     cfg,
		subs:    make(map[string]map[string]*channelSub),
		closeCh: make(chan struct{}),
	}
}

var _ Adapter = (*ChannelAdapter)(nil)

// Publish implements Adapter. Delivery is asynchronous: the event is
// enqueued on every matching subscription's channel and handlers run on
// their own goroutines.
func (a *ChannelAdapter) Publish(ctx context.Context, evt Event) error {
	if a.closed.Load() {
		return &BusError{Op: "publish", EventType: evt.Type(), Message: "channel adapter is closed"}
	}

	a.mu.RLock()
	matching := make([]*channelSub, 0, len(a.subs[evt.Type()]))
	for _, sub := range a.subs[evt.Type()] {
		matching = append(matching, sub)
	}
	a.mu.RUnlock()

	for _, sub := range matching {
		if a.cfg.NonBlocking {
			select {
			case sub.events <- evt:
			default:
				if a.cfg.OnDrop != nil {
					a.cfg.OnDrop(evt, evt.Type())
				}
			}
			continue
		}

		select {
		case sub.events <- evt:
		case <-ctx.Done():
			return ctx.Err()
		case <-a.closeCh:
			return &BusError{Op: "publish", EventType: evt.Type(), Message: "channel adapter closed during publish"}
		}
	}

	return nil
}

// Subscribe implements Adapter.
func (a *ChannelAdapter) Subscribe(eventType string, h Handler) (func(), error) {
	if a.closed.Load() {
		return nil, &BusError{Op: "subscribe", EventType: eventType, Message: "channel adapter is closed"}
	}

	sub := &channelSub{
		id:      uuid.NewString(),
		events:  make(chan Event, a.cfg.BufferSize),
		done:    make(chan struct{}),
		handler: h,
	}

	a.mu.Lock()
	if a.subs[eventType] == nil {
		a.subs[eventType] = make(map[string]*channelSub)
	}
	a.subs[eventType][sub.id] = sub
	a.mu.Unlock()

	go a.process(sub, eventType)

	return func() { a.unsubscribe(eventType, sub) }, nil
}

// process drains one subscription's channel until it is unsubscribed or
// the adapter closes.
func (a *ChannelAdapter) process(sub *channelSub, eventType string) {
	for {
		select {
		case evt := <-sub.events:
			if err := sub.handler.Handle(context.Background(), evt); err != nil && a.cfg.OnError != nil {
				a.cfg.OnError(evt, eventType, err)
			}
		case <-sub.done:
			return
		case <-a.closeCh:
			return
		}
	}
}

func (a *ChannelAdapter) unsubscribe(eventType string, sub *channelSub) {
	a.mu.Lock()
	if subs, ok := a.subs[eventType]; ok {
		if _, live := subs[sub.id]; live {
			delete(subs, sub.id)
			close(sub.done)
		}
	}
	a.mu.Unlock()
}

// Close shuts down the adapter and stops all delivery goroutines.
// Events still buffered on subscription channels are discarded.
func (a *ChannelAdapter) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil // already closed
	}
	close(a.closeCh)
	return nil
}
