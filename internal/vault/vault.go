// Package vault stores committed states and answers the query primitives
// the façade and the workflows need: status filters, field equality,
// timestamp ranges, recency-descending pages and a totalPrice sum.
package vault

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
)

// Status selects which side of the consumed mark a query sees.
type Status string

const (
	StatusUnconsumed Status = "unconsumed"
	StatusConsumed   Status = "consumed"
	StatusAll        Status = "all"
)

// ParseStatus maps a query-parameter value to a Status, defaulting to
// unconsumed like the original façade did.
func ParseStatus(s string) Status {
	switch s {
	case string(StatusConsumed):
		return StatusConsumed
	case string(StatusAll):
		return StatusAll
	default:
		return StatusUnconsumed
	}
}

// PageSize is the fixed page size for paginated queries.
const PageSize = 200

// Filter narrows a state query. Zero values mean "no constraint"; Page
// values below 1 are treated as page 1.
type Filter struct {
	Status      Status
	ID          *uuid.UUID
	Issuer      string // organization name equality, proposals only
	Counterpart string // organization name equality, proposals only
	Buyer       string // organization name equality, transactions only
	Seller      string // organization name equality, transactions only
	From        *time.Time
	To          *time.Time
	Page        int
}

// SumFilter selects the transactions whose totalPrice is aggregated.
// At most one of Buyer/Seller is set; with neither, every transaction
// matches.
type SumFilter struct {
	Status Status
	Buyer  string
	Seller string
}

// ProposalRecord is a committed proposal plus its vault bookkeeping.
type ProposalRecord struct {
	Proposal   *state.Proposal `json:"proposal"`
	Consumed   bool            `json:"consumed"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// TransactionRecord is a committed transaction plus its vault bookkeeping.
type TransactionRecord struct {
	Transaction *state.Transaction `json:"transaction"`
	Consumed    bool               `json:"consumed"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

// Store is the persistence contract. Record is idempotent by transition id:
// replaying an already recorded transition is a no-op.
type Store interface {
	Record(ctx context.Context, st *contract.SignedTransition) error
	Proposals(ctx context.Context, f Filter) ([]*ProposalRecord, error)
	Transactions(ctx context.Context, f Filter) ([]*TransactionRecord, error)
	SumTotalPrice(ctx context.Context, f SumFilter) (float64, error)
}

func matchStatus(status Status, consumed bool) bool {
	switch status {
	case StatusConsumed:
		return consumed
	case StatusAll:
		return true
	default:
		return !consumed
	}
}

func inRange(ts time.Time, from, to *time.Time) bool {
	if from != nil && ts.Before(*from) {
		return false
	}

	if to != nil && ts.After(*to) {
		return false
	}

	return true
}

func pageBounds(page, total int) (int, int) {
	if page < 1 {
		page = 1
	}

	lo := (page - 1) * PageSize
	if lo > total {
		lo = total
	}

	hi := lo + PageSize
	if hi > total {
		hi = total
	}

	return lo, hi
}
