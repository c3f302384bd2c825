// Package store is the Postgres-backed vault used by the query façade.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
	"github.com/nferraro/gridswap/internal/vault"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record writes the transition's effects in one database transaction.
// Idempotent: a transition id that was already recorded is skipped.
func (s *Store) Record(ctx context.Context, st *contract.SignedTransition) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning record tx: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`INSERT INTO vault_transitions (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, st.ID)
	if err != nil {
		return fmt.Errorf("recording transition id: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for _, out := range st.Transition.Outputs {
		payload, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("encoding output state: %w", err)
		}

		switch v := out.(type) {
		case *state.Proposal:
			_, err = dbTx.ExecContext(ctx, `
				INSERT INTO vault_proposals (id, issuer, counterpart, ts, payload)
				VALUES ($1, $2, $3, $4, $5)`,
				v.ID.ID, v.Issuer.Name, v.Counterpart.Name, v.Timestamp, payload)
		case *state.Transaction:
			_, err = dbTx.ExecContext(ctx, `
				INSERT INTO vault_transactions (id, buyer, seller, ts, total_price, payload)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				v.ID.ID, v.Buyer.Name, v.Seller.Name, v.Timestamp, v.TotalPrice, payload)
		}

		if err != nil {
			return fmt.Errorf("recording output state: %w", err)
		}
	}

	for _, in := range st.Transition.Inputs {
		if _, err := dbTx.ExecContext(ctx,
			`UPDATE vault_proposals SET consumed = TRUE WHERE id = $1`, in.Linear().ID); err != nil {
			return fmt.Errorf("consuming input state: %w", err)
		}

		if _, err := dbTx.ExecContext(ctx,
			`UPDATE vault_transactions SET consumed = TRUE WHERE id = $1`, in.Linear().ID); err != nil {
			return fmt.Errorf("consuming input state: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing record tx: %w", err)
	}

	return nil
}

func statusClause(status vault.Status) string {
	switch status {
	case vault.StatusConsumed:
		return " AND consumed = TRUE"
	case vault.StatusAll:
		return ""
	default:
		return " AND consumed = FALSE"
	}
}

func (s *Store) Proposals(ctx context.Context, f vault.Filter) ([]*vault.ProposalRecord, error) {
	query := `SELECT payload, consumed, recorded_at FROM vault_proposals WHERE TRUE`

	var args []any

	argIdx := 1

	query += statusClause(f.Status)

	if f.ID != nil {
		query += fmt.Sprintf(" AND id = $%d", argIdx)

		args = append(args, *f.ID)
		argIdx++
	}

	if f.Issuer != "" {
		query += fmt.Sprintf(" AND issuer = $%d", argIdx)

		args = append(args, f.Issuer)
		argIdx++
	}

	if f.Counterpart != "" {
		query += fmt.Sprintf(" AND counterpart = $%d", argIdx)

		args = append(args, f.Counterpart)
		argIdx++
	}

	if f.From != nil {
		query += fmt.Sprintf(" AND ts >= $%d", argIdx)

		args = append(args, *f.From)
		argIdx++
	}

	if f.To != nil {
		query += fmt.Sprintf(" AND ts <= $%d", argIdx)

		args = append(args, *f.To)
		argIdx++
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	query += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT %d OFFSET %d", vault.PageSize, (page-1)*vault.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	defer rows.Close()

	var recs []*vault.ProposalRecord

	for rows.Next() {
		var (
			payload []byte
			rec     vault.ProposalRecord
		)

		if err := rows.Scan(&payload, &rec.Consumed, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning proposal: %w", err)
		}

		var p state.Proposal
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decoding proposal payload: %w", err)
		}

		rec.Proposal = &p
		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating proposal rows: %w", err)
	}

	return recs, nil
}

func (s *Store) Transactions(ctx context.Context, f vault.Filter) ([]*vault.TransactionRecord, error) {
	query := `SELECT payload, consumed, recorded_at FROM vault_transactions WHERE TRUE`

	var args []any

	argIdx := 1

	query += statusClause(f.Status)

	if f.ID != nil {
		query += fmt.Sprintf(" AND id = $%d", argIdx)

		args = append(args, *f.ID)
		argIdx++
	}

	if f.Buyer != "" {
		query += fmt.Sprintf(" AND buyer = $%d", argIdx)

		args = append(args, f.Buyer)
		argIdx++
	}

	if f.Seller != "" {
		query += fmt.Sprintf(" AND seller = $%d", argIdx)

		args = append(args, f.Seller)
		argIdx++
	}

	if f.From != nil {
		query += fmt.Sprintf(" AND ts >= $%d", argIdx)

		args = append(args, *f.From)
		argIdx++
	}

	if f.To != nil {
		query += fmt.Sprintf(" AND ts <= $%d", argIdx)

		args = append(args, *f.To)
		argIdx++
	}

	page := f.Page
	if page < 1 {
		page = 1
	}

	query += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT %d OFFSET %d", vault.PageSize, (page-1)*vault.PageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var recs []*vault.TransactionRecord

	for rows.Next() {
		var (
			payload []byte
			rec     vault.TransactionRecord
		)

		if err := rows.Scan(&payload, &rec.Consumed, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		var t state.Transaction
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, fmt.Errorf("decoding transaction payload: %w", err)
		}

		rec.Transaction = &t
		recs = append(recs, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return recs, nil
}

func (s *Store) SumTotalPrice(ctx context.Context, f vault.SumFilter) (float64, error) {
	query := `SELECT COALESCE(SUM(total_price), 0) FROM vault_transactions WHERE TRUE`

	var args []any

	argIdx := 1

	query += statusClause(f.Status)

	if f.Buyer != "" {
		query += fmt.Sprintf(" AND buyer = $%d", argIdx)

		args = append(args, f.Buyer)
		argIdx++
	}

	if f.Seller != "" {
		query += fmt.Sprintf(" AND seller = $%d", argIdx)

		args = append(args, f.Seller)
		argIdx++
	}

	var sum float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("summing total price: %w", err)
	}

	return sum, nil
}
