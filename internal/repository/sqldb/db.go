package sqldb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// Config selects and tunes the database.
type Config struct {
	Driver string
	DSN    string
	// LockTimeout bounds how long a transaction waits for a pooled
	// connection and for row locks (PostgreSQL lock_timeout, SQLite
	// busy_timeout).
	LockTimeout  time.Duration
	MaxOpenConns int
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements repository.Store on database/sql. The zero value is not
// usable; create one with Open.
type Store struct {
	db          *sql.DB
	q           querier
	driver      string
	lockTimeout time.Duration
	inTx        bool
}

var _ repository.Store = (*Store)(nil)

// Open connects, applies connection settings and migrates the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	switch cfg.Driver {
	case DriverSQLite:
		// SQLite has a single writer; one connection serialises
		// transactions instead of failing them with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db, cfg.LockTimeout); err != nil {
			db.Close()
			return nil, err
		}
	default:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	}

	if err := migrateDB(ctx, db, cfg.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated", "driver", cfg.Driver)
	return &Store{db: db, q: db, driver: cfg.Driver, lockTimeout: cfg.LockTimeout}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func migrateDB(ctx context.Context, db *sql.DB, driver string) error {
	schema := postgresSchema
	if driver == DriverSQLite {
		schema = sqliteSchema
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying pool, for health checks and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string {
	return s.driver
}

// RunInTx implements repository.Store.
func (s *Store) RunInTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return dbError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if s.driver == DriverPostgres {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return dbError("failed to set lock timeout", err)
		}
	}

	txStore := &Store{db: s.db, q: tx, driver: s.driver, lockTimeout: s.lockTimeout, inTx: true}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dbError("failed to commit transaction", err)
	}
	return nil
}

// conn takes a connection from the pool, waiting at most lockTimeout. With
// SQLite the pool holds one connection, so this is where a second writer
// queues behind an open transaction.
func (s *Store) conn(ctx context.Context) (*sql.Conn, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	conn, err := s.db.Conn(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to acquire connection: %w", ctx.Err())
		}
		return nil, dbError("failed to acquire connection", err)
	}
	return conn, nil
}

func (s *Store) Inventory() repository.InventoryRepository { return &inventoryRepository{s: s} }
func (s *Store) Carts() repository.CartRepository          { return &cartRepository{s: s} }
func (s *Store) Orders() repository.OrderRepository        { return &orderRepository{s: s} }
func (s *Store) Products() repository.ProductRepository    { return &productRepository{s: s} }
func (s *Store) Users() repository.UserRepository          { return &userRepository{s: s} }
func (s *Store) Events() repository.EventStore             { return &eventStore{s: s} }

// forUpdate is the row-locking suffix for SELECTs inside a transaction.
// SQLite locks the whole database for the writer instead.
func (s *Store) forUpdate() string {
	if s.inTx && s.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// now is the timestamp written by the repositories, truncated to the
// precision both databases keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
