package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// Relay forwards committed events from the event store to the broker.
// Delivery is at least once: an event is marked published only after the
// broker accepts it.
type Relay struct {
	store     repository.Store
	publisher Publisher
	batchSize int
	interval  time.Duration
}

func NewRelay(store repository.Store, publisher Publisher, batchSize int, interval time.Duration) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{store: store, publisher: publisher, batchSize: batchSize, interval: interval}
}

// PublishPending publishes one batch of unpublished events in commit order
// and returns how many were sent. It stops at the first publish failure so
// later events of the same stream are not sent ahead of it.
func (r *Relay) PublishPending(ctx context.Context) (int, error) {
	records, err := r.store.Events().Unpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range records {
		topic, ok := TopicFor(rec.EventType)
		if !ok {
			slog.Warn("Skipping event with no topic", "event_type", rec.EventType, "id", rec.ID)
		} else if err := r.publisher.PublishEvent(ctx, topic, rec.StreamID, rec.Payload); err != nil {
			return sent, fmt.Errorf("failed to relay event %s: %w", rec.ID, err)
		}

		if err := r.store.Events().MarkPublished(ctx, rec.ID, time.Now().UTC()); err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// Run drains the outbox once per interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("Event relay started", "interval", r.interval, "batch_size", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Event relay stopped")
			return
		case <-ticker.C:
			for {
				n, err := r.PublishPending(ctx)
				if err != nil {
					slog.Error("Event relay failed", "error", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}
