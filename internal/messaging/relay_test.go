package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/sqldb"
)

type published struct {
	topic   string
	key     string
	payload []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	sent   []published
	failAt int
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		return errors.New("broker unavailable")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, published{topic: topic, key: key, payload: payload})
	return nil
}

func (f *fakePublisher) messages() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}

func createTestStore(t *testing.T) *sqldb.Store {
	t.Helper()
	s, err := sqldb.Open(context.Background(), sqldb.Config{
		Driver: sqldb.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "relay.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendOrderEvents(t *testing.T, s *sqldb.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Events().Append(ctx, "order-1", entity.StreamTypeOrder, []entity.Event{
		entity.OrderCreated{OrderID: 1, UserID: 9},
		entity.OrderStatusChanged{OrderID: 1, From: entity.OrderStatusConfirmed, To: entity.OrderStatusShipped},
	}))
	require.NoError(t, s.Events().Append(ctx, "order-1", entity.StreamTypeOrder, []entity.Event{
		entity.OrderCancelled{OrderID: 1, UserID: 9},
	}))
}

func TestTopicFor(t *testing.T) {
	topic, ok := TopicFor("OrderCancelled")
	assert.True(t, ok)
	assert.Equal(t, TopicOrderCancelled, topic)

	_, ok = TopicFor("CartAbandoned")
	assert.False(t, ok)
}

func TestRelay_PublishPending(t *testing.T) {
	s := createTestStore(t)
	appendOrderEvents(t, s)
	pub := &fakePublisher{}
	relay := NewRelay(s, pub, 10, time.Second)

	n, err := relay.PublishPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sent := pub.messages()
	require.Len(t, sent, 3)
	assert.Equal(t, TopicOrderCreated, sent[0].topic)
	assert.Equal(t, TopicOrderStatusChanged, sent[1].topic)
	assert.Equal(t, TopicOrderCancelled, sent[2].topic)
	for _, m := range sent {
		assert.Equal(t, "order-1", m.key)
	}

	var created entity.OrderCreated
	require.NoError(t, json.Unmarshal(sent[0].payload, &created))
	assert.EqualValues(t, 9, created.UserID)

	n, err = relay.PublishPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "published events are not sent twice")
}

func TestRelay_StopsAtFirstFailure(t *testing.T) {
	s := createTestStore(t)
	appendOrderEvents(t, s)
	pub := &fakePublisher{failAt: 2}
	relay := NewRelay(s, pub, 10, time.Second)

	n, err := relay.PublishPending(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	pending, err := s.Events().Unpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "OrderStatusChanged", pending[0].EventType)

	pub.failAt = 0
	n, err = relay.PublishPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, pub.messages(), 3)
}

func TestRelay_Run(t *testing.T) {
	s := createTestStore(t)
	pub := &fakePublisher{}
	relay := NewRelay(s, pub, 1, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	appendOrderEvents(t, s)
	assert.Eventually(t, func() bool { return len(pub.messages()) == 3 }, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
