package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventkit/pkg/eventkit/observability"
)

// Handler processes a published event.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Subscription is the handle returned from registering a handler.
type Subscription interface {
	// Unsubscribe removes exactly this registration. Co-registered
	// handlers for the same type are unaffected.
	Unsubscribe()
}

// Adapter is a pluggable transport. When installed on a Bus it takes
// over routing for both the publish and subscribe paths; the in-memory
// registry is bypassed entirely. Any transport satisfying this shape is
// interchangeable — see ChannelAdapter and the redisadapter package.
type Adapter interface {
	// Publish delivers the event to the transport.
	Publish(ctx context.Context, evt Event) error

	// Subscribe registers a handler for an event type and returns the
	// function that removes the registration.
	Subscribe(eventType string, h Handler) (func(), error)
}

// BusConfig configures a Bus.
type BusConfig struct {
	// Logger receives structured dispatch logs. Nil disables logging.
	Logger *slog.Logger

	// Metrics records publish and flush measurements.
	// Default: observability.NoopBusMetrics.
	Metrics observability.BusMetrics

	// OnError is called for each handler failure during dispatch, with
	// the registration ID of the failing handler.
	OnError func(evt Event, registrationID string, err error)
}

// Bus routes events to handlers. It holds an ordered handler registry
// keyed by event type, a pending-event queue for batched publication,
// and an optional transport adapter.
//
// Publish is a synchronization barrier: it returns only after every
// handler for the event has completed, so two sequential Publish calls
// never interleave their handler executions.
type Bus struct {
	cfg BusConfig

	mu       sync.RWMutex
	handlers map[string][]*registration
	pending  []Event
	adapter  Adapter
}

// registration pairs a handler with its one-shot flag. The ID makes
// removal identity-based, so unsubscribing one handler never disturbs
// its neighbours.
type registration struct {
	id      string
	handler Handler
	once    bool
}

// NewBus creates an event bus with no adapter (pure in-memory fan-out).
func NewBus(cfg BusConfig) *Bus {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopBusMetrics{}
	}
	return &Bus{
		cfg:      cfg,
		handlers: make(map[string][]*registration),
	}
}

// On registers a handler for the event type resolved from source, which
// may be a Name, a Factory, or an Event. The handler is appended to the
// type's handler list, preserving registration order.
//
// When an adapter is installed the subscription is delegated entirely
// to the adapter; the in-memory registry is not touched.
func (b *Bus) On(source Typed, h Handler) (Subscription, error) {
	return b.subscribe(source, h, false)
}

// Once registers a handler that is removed after its first invocation,
// even if that invocation fails.
func (b *Bus) Once(source Typed, h Handler) (Subscription, error) {
	return b.subscribe(source, h, true)
}

func (b *Bus) subscribe(source Typed, h Handler, once bool) (Subscription, error) {
	if h == nil {
		return nil, &BusError{Op: "subscribe", Message: "handler is required"}
	}
	if source == nil || source.Type() == "" {
		return nil, &BusError{Op: "subscribe", Message: "event type cannot be resolved"}
	}
	eventType := source.Type()

	b.mu.RLock()
	adapter := b.adapter
	b.mu.RUnlock()

	if adapter != nil {
		unsubscribe, err := adapter.Subscribe(eventType, h)
		if err != nil {
			return nil, &BusError{
				Op:        "subscribe",
				EventType: eventType,
				Message:   "adapter subscribe failed",
				Err:       err,
			}
		}
		return &adapterSubscription{unsubscribe: unsubscribe}, nil
	}

	reg := &registration{id: uuid.NewString(), handler: h, once: once}
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], reg)
	b.mu.Unlock()

	return &busSubscription{bus: b, eventType: eventType, id: reg.id}, nil
}

// Publish dispatches the event. With an adapter installed it delegates
// to the adapter, wrapping any failure in a *BusError. Otherwise it
// takes a snapshot of the handler list for the event's type (so
// handlers that subscribe or unsubscribe during dispatch do not affect
// this dispatch), invokes every handler in registration order, and
// returns the joined errors of all failing handlers. Every handler in
// the snapshot runs, even after an earlier one fails. One-shot
// registrations present in the snapshot are removed afterwards whether
// or not their invocation succeeded.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if evt.Type() == "" {
		return &BusError{Op: "publish", Message: "event must carry a type"}
	}

	b.mu.RLock()
	adapter := b.adapter
	var snapshot []*registration
	if adapter == nil {
		snapshot = append(snapshot, b.handlers[evt.Type()]...)
	}
	b.mu.RUnlock()

	ctx, span := observability.StartPublishSpan(ctx, evt.Type())
	start := time.Now()

	if adapter != nil {
		err := adapter.Publish(ctx, evt)
		b.cfg.Metrics.RecordPublish(ctx, evt.Type(), 0, time.Since(start), err)
		observability.EndSpanWithError(span, err)
		if err != nil {
			return &BusError{
				Op:        "publish",
				EventType: evt.Type(),
				Message:   "adapter publish failed",
				Err:       err,
			}
		}
		observability.LogPublish(b.cfg.Logger, evt.Type(), 0, nil)
		return nil
	}

	var errs []error
	for _, reg := range snapshot {
		if err := b.invoke(ctx, reg, evt); err != nil {
			errs = append(errs, err)
			if b.cfg.OnError != nil {
				b.cfg.OnError(evt, reg.id, err)
			}
			observability.LogHandlerError(b.cfg.Logger, evt.Type(), reg.id, err)
		}
	}

	b.removeOnce(evt.Type(), snapshot)

	err := errors.Join(errs...)
	b.cfg.Metrics.RecordPublish(ctx, evt.Type(), len(snapshot), time.Since(start), err)
	observability.EndSpanWithError(span, err)
	observability.LogPublish(b.cfg.Logger, evt.Type(), len(snapshot), err)
	return err
}

// invoke runs one handler, converting a panic into an error so a
// misbehaving handler cannot take down the dispatch loop.
func (b *Bus) invoke(ctx context.Context, reg *registration, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BusError{
				Op:        "publish",
				EventType: evt.Type(),
				Message:   fmt.Sprintf("handler panic: %v", r),
			}
		}
	}()
	return reg.handler.Handle(ctx, evt)
}

// removeOnce drops every one-shot registration that was part of the
// dispatched snapshot from the live list.
func (b *Bus) removeOnce(eventType string, snapshot []*registration) {
	dispatched := make(map[string]bool, len(snapshot))
	for _, reg := range snapshot {
		if reg.once {
			dispatched[reg.id] = true
		}
	}
	if len(dispatched) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	live := b.handlers[eventType]
	kept := live[:0]
	for _, reg := range live {
		if !dispatched[reg.id] {
			kept = append(kept, reg)
		}
	}
	b.handlers[eventType] = kept
}

// PublishAll publishes each event strictly sequentially: a publish is
// fully settled, including all of its handlers, before the next begins.
// The first failing event halts publication of the rest of the batch.
func (b *Bus) PublishAll(ctx context.Context, events []Event) error {
	for i, evt := range events {
		if err := b.Publish(ctx, evt); err != nil {
			return fmt.Errorf("publish event %d of %d: %w", i+1, len(events), err)
		}
	}
	return nil
}

// AddPendingEvent appends an event to the pending queue. The queue is
// scoped to the bus, not to any single transaction; concurrent
// producers share it.
func (b *Bus) AddPendingEvent(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, evt)
}

// PendingEvents returns a copy of the pending queue in insertion order.
func (b *Bus) PendingEvents() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Event(nil), b.pending...)
}

// ClearPendingEvents atomically drains the pending queue and returns
// the drained events in insertion order.
func (b *Bus) ClearPendingEvents() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.pending
	b.pending = nil
	return drained
}

// PublishPendingEvents drains the queue and publishes the drained
// events in insertion order. Events added to the queue during the flush
// are not part of this flush.
func (b *Bus) PublishPendingEvents(ctx context.Context) error {
	drained := b.ClearPendingEvents()
	if len(drained) == 0 {
		return nil
	}

	ctx, span := observability.StartFlushSpan(ctx, len(drained))
	start := time.Now()
	err := b.PublishAll(ctx, drained)
	b.cfg.Metrics.RecordPendingFlush(ctx, len(drained), time.Since(start), err)
	observability.EndSpanWithError(span, err)
	observability.LogPendingFlush(b.cfg.Logger, len(drained), err)
	return err
}

// SetAdapter installs a transport adapter, replacing any previous one.
// From then on Publish and On delegate to the adapter. Registrations
// made against the in-memory registry before the swap are not migrated:
// adapter swap requires re-subscription. A warning is logged when such
// registrations exist.
func (b *Bus) SetAdapter(adapter Adapter) error {
	if adapter == nil {
		return &BusError{Op: "set_adapter", Message: "adapter is required"}
	}

	b.mu.Lock()
	orphaned := 0
	for _, regs := range b.handlers {
		orphaned += len(regs)
	}
	b.adapter = adapter
	b.mu.Unlock()

	observability.LogAdapterInstalled(b.cfg.Logger, orphaned)
	return nil
}

// Reset clears all handler registrations and the pending queue. The
// adapter reference is kept. Meant for test isolation and teardown.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string][]*registration)
	b.pending = nil
}

// busSubscription removes a registration from the in-memory registry.
type busSubscription struct {
	bus       *Bus
	eventType string
	id        string
}

// Unsubscribe implements Subscription. Removal is by registration
// identity, so it is safe regardless of list reordering elsewhere.
func (s *busSubscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	live := s.bus.handlers[s.eventType]
	for i, reg := range live {
		if reg.id == s.id {
			s.bus.handlers[s.eventType] = append(live[:i], live[i+1:]...)
			return
		}
	}
}

// adapterSubscription wraps whatever unsubscribe the adapter returned.
type adapterSubscription struct {
	once        sync.Once
	unsubscribe func()
}

// Unsubscribe implements Subscription.
func (s *adapterSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
}
