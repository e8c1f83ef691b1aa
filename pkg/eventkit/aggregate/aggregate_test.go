package aggregate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/eventkit/pkg/eventkit/aggregate"
	"github.com/randalmurphal/eventkit/pkg/eventkit/event"
)

var orderPlaced = event.MustFactory(event.FactoryConfig{
	Name: "OrderPlaced",
	Schema: event.NewSchema(map[string]event.Rule{
		"orderId": event.String().Required(),
	}),
})

type order struct {
	aggregate.Root
	id string
}

func (o *order) place() error {
	return o.Emit(orderPlaced, map[string]any{"orderId": o.id})
}

func TestRootRecordsInEmissionOrder(t *testing.T) {
	o := &order{id: "o1"}
	if err := o.place(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.RecordEvent(orderPlaced.MustCreate(map[string]any{"orderId": "o2"}))

	events := o.DomainEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if id, _ := events[0].Field("orderId"); id != "o1" {
		t.Errorf("expected o1 first, got %v", id)
	}
	if id, _ := events[1].Field("orderId"); id != "o2" {
		t.Errorf("expected o2 second, got %v", id)
	}
}

func TestRootEmitRejectsInvalidPayload(t *testing.T) {
	o := &order{}
	err := o.Emit(orderPlaced, map[string]any{"orderId": 42})

	var verr *event.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(o.DomainEvents()) != 0 {
		t.Error("expected nothing recorded on validation failure")
	}
}

func TestRootDomainEventsIsACopy(t *testing.T) {
	o := &order{id: "o1"}
	_ = o.place()

	events := o.DomainEvents()
	events[0] = event.Event{}

	if o.DomainEvents()[0].IsZero() {
		t.Error("aggregate mutated through DomainEvents copy")
	}
}

func TestRootClearDomainEvents(t *testing.T) {
	o := &order{id: "o1"}
	_ = o.place()

	drained := o.ClearDomainEvents()
	if len(drained) != 1 {
		t.Fatalf("expected 1 drained event, got %d", len(drained))
	}
	if len(o.DomainEvents()) != 0 {
		t.Error("expected aggregate empty after drain")
	}
}

func TestPublisherPublishAndClear(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	var seen []string
	_, _ = bus.On(orderPlaced, event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		id, _ := evt.Field("orderId")
		seen = append(seen, id.(string))
		return nil
	}))

	o := &order{id: "o1"}
	_ = o.place()
	o.RecordEvent(orderPlaced.MustCreate(map[string]any{"orderId": "o2"}))

	pub := aggregate.Publisher{Bus: bus}
	if err := pub.PublishAndClear(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 2 || seen[0] != "o1" || seen[1] != "o2" {
		t.Errorf("expected emission order preserved, got %v", seen)
	}
	if len(o.DomainEvents()) != 0 {
		t.Error("expected events cleared after successful publish")
	}
}

func TestPublisherKeepsEventsOnFailure(t *testing.T) {
	bus := event.NewBus(event.BusConfig{})
	_, _ = bus.On(orderPlaced, event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		return errors.New("projection down")
	}))

	o := &order{id: "o1"}
	_ = o.place()

	pub := aggregate.Publisher{Bus: bus}
	if err := pub.PublishAndClear(context.Background(), o); err == nil {
		t.Fatal("expected error")
	}
	if len(o.DomainEvents()) != 1 {
		t.Error("expected events retained after failed publish")
	}
}
