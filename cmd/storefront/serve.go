package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	delivery "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/identity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/redis"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/sqldb"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// app is the wired server: storage, broker, HTTP handler and background
// workers.
type app struct {
	store   *sqldb.Store
	broker  broker
	handler http.Handler
	relay   *messaging.Relay
	sweeper *service.Sweeper
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, closers: []func() error{store.Close}}

	var sessions identity.GuestSessions
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		sessions = redis.NewGuestSessions(client)
	} else {
		slog.Warn("No Redis configured, accepting any well-formed guest cookie")
	}

	a.broker = newBroker(cfg.Kafka)
	a.closers = append(a.closers, a.broker.Close)

	resolver := identity.NewResolver(identity.NewTokenIssuer(cfg.Auth.JWTSecret), store.Users(), sessions, cfg.Auth.GuestCookieTTL)
	carts := service.NewCartService(store)
	h := delivery.NewHandler(
		resolver,
		carts,
		service.NewOrderService(store),
		service.NewMigrationService(store),
		cfg.Retry,
		cfg.Auth.AdminAPIKey,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", a.handleHealth)

	a.handler = delivery.EnableCORS(mux)
	a.relay = messaging.NewRelay(store, a.broker, cfg.Relay.BatchSize, cfg.Relay.Interval)
	a.sweeper = service.NewSweeper(carts, cfg.Sweeper.Interval, cfg.Sweeper.MaxAge)
	return a, nil
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DB().PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("Failed to close resource", "err", err)
		}
	}
}

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the event relay and the guest cart sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			return serve(commandContext(cmd), opts.cfg)
		},
	}
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.relay.Run(ctx)
	go a.sweeper.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "err", err)
	}

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
