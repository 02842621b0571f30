package postgres

import (
	"context"
	"database/sql"

	"github.com/safar/go-cart-store/internal/database"
	"github.com/safar/go-cart-store/internal/store"
)

// Store is the Postgres store.Store. Write transactions run at READ COMMITTED
// with cart rows locked FOR UPDATE and version-checked saves; conflicts and
// deadlocks are retried by database.WithRetry.
type Store struct {
	db   *sql.DB
	opts database.TxOptions
}

func New(db *sql.DB, maxRetries int) *Store {
	opts := database.DefaultTxOptions()
	opts.MaxRetries = maxRetries
	return &Store{db: db, opts: opts}
}

func (s *Store) InTx(ctx context.Context, fn func(store.Repository) error) error {
	return database.WithRetry(ctx, s.db, s.opts, func(tx *sql.Tx) error {
		return fn(&repo{q: tx, lock: true})
	})
}

func (s *Store) View(ctx context.Context, fn func(store.Repository) error) error {
	return database.WithTransaction(ctx, s.db, database.ReadOnlyTxOptions(), func(tx *sql.Tx) error {
		return fn(&repo{q: tx})
	})
}

type repo struct {
	q    database.Querier
	lock bool
}

func (r *repo) forUpdate() string {
	if r.lock {
		return " FOR UPDATE"
	}
	return ""
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Repository = (*repo)(nil)
)
