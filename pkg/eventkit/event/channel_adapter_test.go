package event_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randalmurphal/eventkit/pkg/eventkit/event"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestChannelAdapterDelivers(t *testing.T) {
	adapter := event.NewChannelAdapter(event.ChannelAdapterConfig{})
	defer adapter.Close()

	var count atomic.Int64
	unsubscribe, err := adapter.Subscribe("OrderPlaced", event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		count.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		if err := adapter.Publish(context.Background(), placed(t, "o1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	waitFor(t, func() bool { return count.Load() == 3 })
}

func TestChannelAdapterRoutesByType(t *testing.T) {
	adapter := event.NewChannelAdapter(event.ChannelAdapterConfig{})
	defer adapter.Close()

	var hits atomic.Int64
	_, _ = adapter.Subscribe("SomethingElse", event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		hits.Add(1)
		return nil
	}))

	if err := adapter.Publish(context.Background(), placed(t, "o1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if hits.Load() != 0 {
		t.Errorf("expected no delivery for other types, got %d", hits.Load())
	}
}

func TestChannelAdapterUnsubscribeStopsDelivery(t *testing.T) {
	adapter := event.NewChannelAdapter(event.ChannelAdapterConfig{})
	defer adapter.Close()

	var count atomic.Int64
	unsubscribe, _ := adapter.Subscribe("OrderPlaced", event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		count.Add(1)
		return nil
	}))

	_ = adapter.Publish(context.Background(), placed(t, "o1"))
	waitFor(t, func() bool { return count.Load() == 1 })

	unsubscribe()
	unsubscribe() // idempotent

	_ = adapter.Publish(context.Background(), placed(t, "o2"))
	time.Sleep(50 * time.Millisecond)
	if count.Load() != 1 {
		t.Errorf("expected no delivery after unsubscribe, got %d", count.Load())
	}
}

func TestChannelAdapterNonBlockingDrops(t *testing.T) {
	var dropped atomic.Int64
	release := make(chan struct{})
	adapter := event.NewChannelAdapter(event.ChannelAdapterConfig{
		BufferSize:  1,
		NonBlocking: true,
		OnDrop: func(evt event.Event, eventType string) {
			dropped.Add(1)
		},
	})
	defer adapter.Close()

	_, _ = adapter.Subscribe("OrderPlaced", event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		<-release
		return nil
	}))

	// First fills the handler, second fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		_ = adapter.Publish(context.Background(), placed(t, "o1"))
		time.Sleep(10 * time.Millisecond)
	}
	close(release)

	if dropped.Load() == 0 {
		t.Error("expected drops with a full buffer in non-blocking mode")
	}
}

func TestChannelAdapterOnError(t *testing.T) {
	errCh := make(chan error, 1)
	adapter := event.NewChannelAdapter(event.ChannelAdapterConfig{
		OnError: func(evt event.Event, eventType string, err error) {
			errCh <- err
		},
	})
	defer adapter.Close()

	sentinel := errors.New("handler failed")
	_, _ = adapter.Subscribe("OrderPlaced", event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		return sentinel
	}))

	_ = adapter.Publish(context.Background(), placed(t, "o1"))

	select {
	case err := <-errCh:
		if !errors.Is(err, sentinel) {
			t.Errorf("expected sentinel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected OnError callback")
	}
}

func TestChannelAdapterClose(t *testing.T) {
	adapter := event.NewChannelAdapter(event.ChannelAdapterConfig{})
	if err := adapter.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adapter.Close(); err != nil {
		t.Fatalf("expected idempotent close, got %v", err)
	}

	var busErr *event.BusError
	if err := adapter.Publish(context.Background(), placed(t, "o1")); !errors.As(err, &busErr) {
		t.Errorf("expected *BusError after close, got %v", err)
	}
	if _, err := adapter.Subscribe("OrderPlaced", event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		return nil
	})); !errors.As(err, &busErr) {
		t.Errorf("expected *BusError after close, got %v", err)
	}
}

func TestChannelAdapterWithBus(t *testing.T) {
	adapter := event.NewChannelAdapter(event.ChannelAdapterConfig{})
	defer adapter.Close()

	bus := event.NewBus(event.BusConfig{})
	if err := bus.SetAdapter(adapter); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count atomic.Int64
	if _, err := bus.On(orderPlaced, event.HandlerFunc(func(ctx context.Context, evt event.Event) error {
		count.Add(1)
		return nil
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := bus.Publish(context.Background(), placed(t, "o1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool { return count.Load() == 1 })
}
