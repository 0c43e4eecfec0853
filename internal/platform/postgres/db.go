package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/phrazzld/biotrack-api/internal/store"
)

// DB wraps the database connection with the single-writer discipline: all
// write transactions take writeMu for their duration, so two concurrent
// firings of the same schedule cannot both pass the stale-trigger check
// against the same prior state. Reads bypass the mutex and rely on
// statement-level atomicity.
type DB struct {
	sql     *sql.DB
	writeMu sync.Mutex
}

// Open establishes a connection, configures the pool, and verifies
// connectivity with a ping.
func Open(ctx context.Context, url string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return &DB{sql: db}, nil
}

// NewDB wraps an existing connection. Used by tests.
func NewDB(db *sql.DB) *DB {
	return &DB{sql: db}
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

// InWriteTx runs fn in a transaction while holding the writer mutex.
func (d *DB) InWriteTx(ctx context.Context, fn store.TxFn) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return store.RunInTransaction(ctx, d.sql, fn)
}

// RunInWriteTx implements store.TxRunner: fn receives the entity stores
// bound to a single write transaction.
func (d *DB) RunInWriteTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error {
	return d.InWriteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		s := d.Stores()
		bound := store.Stores{
			People:     s.People.WithTx(tx),
			Datapoints: s.Datapoints.WithTx(tx),
			Schedules:  s.Schedules.WithTx(tx),
		}
		return fn(ctx, bound)
	})
}

// Stores returns the entity stores backed by this database.
func (d *DB) Stores() store.Stores {
	return store.Stores{
		People:     NewPersonStore(d),
		Datapoints: NewDatapointStore(d),
		Schedules:  NewScheduleStore(d),
	}
}
