package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/sqldb"
)

func openStore(ctx context.Context, cfg config.DatabaseConfig) (*sqldb.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return sqldb.Open(ctx, sqldb.Config{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		LockTimeout:  cfg.LockTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
	})
}

// NewMigrateCommand creates the migrate command. Opening the store applies
// the schema, so this only opens and closes it.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(commandContext(cmd), opts.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo products and stock into an empty catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			store, err := openStore(ctx, opts.cfg.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := seedProducts(ctx, store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", n)
			return nil
		},
	}
}

type seedProduct struct {
	Name  string
	Price string
	Stock map[string]int
}

var demoProducts = []seedProduct{
	{Name: "Wireless Noise-Cancelling Headphones", Price: "349.99", Stock: map[string]int{"STD": 50}},
	{Name: "Mechanical Keyboard RGB", Price: "179.99", Stock: map[string]int{"STD": 120}},
	{Name: "Ultrawide Curved Monitor 34\"", Price: "699.99", Stock: map[string]int{"STD": 30}},
	{Name: "Ergonomic Office Chair", Price: "549.99", Stock: map[string]int{"M": 10, "L": 15}},
	{Name: "Smart LED Desk Lamp", Price: "89.99", Stock: map[string]int{"STD": 200}},
	{Name: "Premium Laptop Backpack", Price: "129.99", Stock: map[string]int{"S": 30, "M": 30, "L": 20}},
}

// seedProducts fills an empty catalog. It does nothing if any product exists.
func seedProducts(ctx context.Context, store *sqldb.Store) (int, error) {
	var count int
	if err := store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		slog.Info("Catalog not empty, skipping seed", "products", count)
		return 0, nil
	}

	err := store.RunInTx(ctx, func(tx repository.Store) error {
		for _, sp := range demoProducts {
			p := entity.Product{Name: sp.Name, Price: decimal.RequireFromString(sp.Price)}
			if err := tx.Products().Create(ctx, &p); err != nil {
				return err
			}
			for size, quantity := range sp.Stock {
				if _, err := tx.Inventory().Define(ctx, p.ID, size, quantity); err != nil {
					return fmt.Errorf("failed to seed product %s: %w", sp.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Seeded products", "count", len(demoProducts))
	return len(demoProducts), nil
}
