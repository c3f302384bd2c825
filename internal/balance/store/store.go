// Package store is the Postgres-backed balance repository.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, org string) (float64, error) {
	var quantity float64

	err := s.db.QueryRowContext(ctx,
		`SELECT quantity FROM balances WHERE org = $1`, org).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading balance: %w", err)
	}

	return quantity, nil
}

func (s *Store) ApplyOnce(ctx context.Context, transitionID uuid.UUID, org string, delta float64) (bool, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning balance tx: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `
		INSERT INTO balance_effects (transition_id, org)
		VALUES ($1, $2)
		ON CONFLICT (transition_id, org) DO NOTHING`,
		transitionID, org)
	if err != nil {
		return false, fmt.Errorf("marking balance effect: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err := dbTx.ExecContext(ctx, `
		INSERT INTO balances (org, quantity, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (org) DO UPDATE SET quantity = balances.quantity + EXCLUDED.quantity, updated_at = NOW()`,
		org, delta); err != nil {
		return false, fmt.Errorf("applying balance delta: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("committing balance tx: %w", err)
	}

	return true, nil
}
