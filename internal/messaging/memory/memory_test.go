package memory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

func TestBroker_PublishAndConsume(t *testing.T) {
	broker := NewBroker(true)
	t.Cleanup(func() { broker.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	raw := json.RawMessage(`{"order_id":3}`)
	require.NoError(t, broker.PublishEvent(ctx, messaging.TopicOrderCreated, "order-3", raw))
	require.NoError(t, broker.PublishEvent(ctx, messaging.TopicOrderCreated, "order-4", map[string]int{"order_id": 4}))

	var (
		mu       sync.Mutex
		payloads []string
	)
	go broker.Consume(ctx, messaging.TopicOrderCreated, "test", func(ctx context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		payloads = append(payloads, string(payload))
		return nil
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(payloads) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"order_id":3}`, payloads[0])
	assert.JSONEq(t, `{"order_id":4}`, payloads[1])
}

func TestBroker_ConsumeStopsOnCancel(t *testing.T) {
	broker := NewBroker(false)
	t.Cleanup(func() { broker.Close() })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		broker.Consume(ctx, messaging.TopicOrderCancelled, "test", func(context.Context, []byte) error { return nil })
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
