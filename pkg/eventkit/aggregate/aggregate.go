// Package aggregate provides the collaborator contract between domain
// aggregates, repositories, and the event bus: aggregates record the
// events they emit, and after a successful save the repository flushes
// the accumulated events through the bus and clears them.
package aggregate

import (
	"context"
	"sync"

	"github.com/randalmurphal/eventkit/pkg/eventkit/event"
)

// Recorder is what the bus-facing side of an aggregate looks like.
// Root implements it; custom aggregate types may too.
type Recorder interface {
	// DomainEvents returns the accumulated events in emission order.
	DomainEvents() []event.Event

	// ClearDomainEvents drains the accumulated events.
	ClearDomainEvents() []event.Event
}

// Root records domain events for an aggregate. Embed it in an
// aggregate type:
//
//	type Order struct {
//	    aggregate.Root
//	    ID string
//	}
type Root struct {
	mu     sync.Mutex
	events []event.Event
}

// Emit constructs an event through the factory and records it on the
// aggregate. Validation failures are returned without recording
// anything.
func (r *Root) Emit(f *event.Factory, data map[string]any) error {
	evt, err := f.Create(data)
	if err != nil {
		return err
	}
	r.RecordEvent(evt)
	return nil
}

// RecordEvent appends an already-constructed event.
func (r *Root) RecordEvent(evt event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// DomainEvents returns a copy of the accumulated events in emission
// order.
func (r *Root) DomainEvents() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// ClearDomainEvents drains the accumulated events and returns them.
func (r *Root) ClearDomainEvents() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	drained := r.events
	r.events = nil
	return drained
}

// Publisher is the repository-side helper: after a successful save,
// call PublishAndClear with the saved aggregate.
type Publisher struct {
	Bus *event.Bus
}

// PublishAndClear publishes the aggregate's accumulated events in
// emission order and clears them afterwards. If publication fails the
// events are left on the aggregate, so a caller can retry or inspect
// them.
func (p Publisher) PublishAndClear(ctx context.Context, rec Recorder) error {
	if err := p.Bus.PublishAll(ctx, rec.DomainEvents()); err != nil {
		return err
	}
	rec.ClearDomainEvents()
	return nil
}
