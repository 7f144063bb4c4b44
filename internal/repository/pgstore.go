package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sbr_farm/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres Store. Row locks come from SELECT ... FOR UPDATE, so
// two transactions touching the same user serialize on that row.
type PGStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPGStore(db *pgxpool.Pool, timeout time.Duration) *PGStore {
	return &PGStore{db: db, timeout: timeout}
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PGStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return storeErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

// storeErr passes domain errors through and marks everything else transient.
func storeErr(err error) error {
	if domain.IsKnown(err) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStore, err)
}

type pgTx struct {
	tx pgx.Tx
}

// rowErr maps a missing row to domain.ErrNotFound.
func rowErr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
