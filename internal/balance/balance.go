// Package balance tracks each organization's running energy quantity.
// Updates happen only as the post-commit step of an issue transition and
// are idempotent per (transition, organization), so a retried applier never
// double-counts. The ledger is deliberately NOT covered by the notary's
// conflict detection: two concurrent issues can both pass CheckSufficient
// before either delta lands.
package balance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=balance.go -destination=repository_mock.go -package=balance
type Repository interface {
	// Get returns the organization's quantity, zero if it has no entry yet.
	Get(ctx context.Context, org string) (float64, error)
	// ApplyOnce adds delta to the organization's quantity unless the
	// (transitionID, org) effect was already applied. It reports whether
	// the delta was applied.
	ApplyOnce(ctx context.Context, transitionID uuid.UUID, org string, delta float64) (bool, error)
}

type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) Read(ctx context.Context, org string) (float64, error) {
	return l.repo.Get(ctx, org)
}

func (l *Ledger) CheckSufficient(ctx context.Context, org string, amount float64) (bool, error) {
	q, err := l.repo.Get(ctx, org)
	if err != nil {
		return false, fmt.Errorf("reading balance for %s: %w", org, err)
	}

	return q >= amount, nil
}

func (l *Ledger) Apply(ctx context.Context, transitionID uuid.UUID, org string, delta float64) error {
	if _, err := l.repo.ApplyOnce(ctx, transitionID, org, delta); err != nil {
		return fmt.Errorf("applying balance delta for %s: %w", org, err)
	}

	return nil
}
