package journal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventkit/pkg/eventkit/event"
	"github.com/randalmurphal/eventkit/pkg/eventkit/journal"
)

var orderPlaced = event.MustFactory(event.FactoryConfig{
	Name: "OrderPlaced",
	Schema: event.NewSchema(map[string]event.Rule{
		"orderId": event.String().Required(),
	}),
})

var orderShipped = event.MustFactory(event.FactoryConfig{
	Name: "OrderShipped",
	Schema: event.NewSchema(map[string]event.Rule{
		"orderId": event.String().Required(),
	}),
})

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAppendAndList(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.Append(orderPlaced.MustCreate(map[string]any{"orderId": "o1"})))
	require.NoError(t, store.Append(orderShipped.MustCreate(map[string]any{"orderId": "o1"})))
	require.NoError(t, store.Append(orderPlaced.MustCreate(map[string]any{"orderId": "o2"})))

	all, err := store.List("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "OrderPlaced", all[0].Type())
	assert.Equal(t, "OrderShipped", all[1].Type())
	assert.Equal(t, "OrderPlaced", all[2].Type())

	placed, err := store.List("OrderPlaced", 10)
	require.NoError(t, err)
	require.Len(t, placed, 2)
	id, _ := placed[1].Field("orderId")
	assert.Equal(t, "o2", id)

	limited, err := store.List("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStoreCount(t *testing.T) {
	store := openStore(t)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, store.Append(orderPlaced.MustCreate(map[string]any{"orderId": "o1"})))

	count, err = store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStoreAsBusHandler(t *testing.T) {
	store := openStore(t)
	bus := event.NewBus(event.BusConfig{})

	_, err := bus.On(orderPlaced, store)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), orderPlaced.MustCreate(map[string]any{"orderId": "o1"})))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStoreClosed(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // idempotent

	err := store.Append(orderPlaced.MustCreate(map[string]any{"orderId": "o1"}))
	assert.ErrorIs(t, err, journal.ErrStoreClosed)

	_, err = store.List("", 1)
	assert.ErrorIs(t, err, journal.ErrStoreClosed)

	_, err = store.Count()
	assert.ErrorIs(t, err, journal.ErrStoreClosed)
}
