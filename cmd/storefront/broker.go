package main

import (
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/kafka"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/memory"
)

type broker interface {
	messaging.Publisher
	messaging.Subscriber
	Close() error
}

// newBroker picks Kafka when brokers are configured and the in-process
// broker otherwise.
func newBroker(cfg config.KafkaConfig) broker {
	if len(cfg.Brokers) == 0 {
		slog.Warn("No Kafka brokers configured, order events stay in process")
		return memory.NewBroker(false)
	}
	slog.Info("Publishing order events to Kafka", "brokers", cfg.Brokers)
	return kafka.NewBroker(cfg.Brokers)
}
