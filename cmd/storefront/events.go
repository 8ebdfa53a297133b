package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

func NewEventsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect and relay order events",
	}
	cmd.AddCommand(newEventsHistoryCommand(opts))
	cmd.AddCommand(newEventsRelayCommand(opts))
	cmd.AddCommand(newEventsTailCommand(opts))
	return cmd
}

func newEventsHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <order-id>",
		Short: "Print the recorded events of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			store, err := openStore(ctx, opts.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := service.NewOrderService(store).OrderHistory(ctx, orderID)
			if err != nil {
				return err
			}
			return printJSON(cmd, records)
		},
	}
}

// newEventsRelayCommand drains the outbox once. Without Kafka there is no
// one to deliver to, so it refuses to run rather than mark events published.
func newEventsRelayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Publish all pending order events to Kafka and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.cfg.Kafka.Brokers) == 0 {
				return errors.New("KAFKA_BROKERS is required to relay events")
			}
			ctx := commandContext(cmd)
			store, err := openStore(ctx, opts.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			b := newBroker(opts.cfg.Kafka)
			defer b.Close()

			relay := messaging.NewRelay(store, b, opts.cfg.Relay.BatchSize, opts.cfg.Relay.Interval)
			total := 0
			for {
				n, err := relay.PublishPending(ctx)
				total += n
				if err != nil {
					return err
				}
				if n == 0 {
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d events\n", total)
			return nil
		},
	}
}

func newEventsTailCommand(opts *RootOptions) *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "tail <topic>",
		Short: "Print messages from a Kafka topic until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(opts.cfg.Kafka.Brokers) == 0 {
				return errors.New("KAFKA_BROKERS is required to tail events")
			}
			ctx, cancel := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			b := newBroker(opts.cfg.Kafka)
			defer b.Close()

			out := cmd.OutOrStdout()
			slog.Info("Tailing topic", "topic", args[0], "group", groupID)
			b.Consume(ctx, args[0], groupID, func(ctx context.Context, payload []byte) error {
				_, err := fmt.Fprintln(out, string(payload))
				return err
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "storefront-tail", "consumer group ID")
	return cmd
}

func parseID(raw string) (int64, error) {
	var id int64
	if _, err := fmt.Sscan(raw, &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
