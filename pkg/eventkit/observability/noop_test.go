package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopBusMetrics(t *testing.T) {
	var m BusMetrics = NoopBusMetrics{}
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordPublish(ctx, "OrderPlaced", 3, 10*time.Millisecond, nil)
		m.RecordPublish(ctx, "OrderPlaced", 0, 0, errors.New("failed"))
		m.RecordPendingFlush(ctx, 5, time.Second, nil)
		m.RecordPendingFlush(ctx, 0, 0, errors.New("failed"))
	})
}
