package vault

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
)

// Memory is an in-process Store used by the protocol runtime and tests.
type Memory struct {
	mu           sync.RWMutex
	proposals    []*ProposalRecord
	transactions []*TransactionRecord
	consumed     map[uuid.UUID]bool
	recorded     map[uuid.UUID]struct{} // transition ids already applied
	clock        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		consumed: make(map[uuid.UUID]bool),
		recorded: make(map[uuid.UUID]struct{}),
		clock:    time.Now,
	}
}

func (m *Memory) Record(_ context.Context, st *contract.SignedTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recorded[st.ID]; ok {
		return nil
	}

	now := m.clock()

	for _, out := range st.Transition.Outputs {
		switch s := out.(type) {
		case *state.Proposal:
			m.proposals = append(m.proposals, &ProposalRecord{Proposal: s, RecordedAt: now})
		case *state.Transaction:
			m.transactions = append(m.transactions, &TransactionRecord{Transaction: s, RecordedAt: now})
		}
	}

	for _, in := range st.Transition.Inputs {
		m.consumed[in.Linear().ID] = true

		for _, rec := range m.proposals {
			if rec.Proposal.ID.ID == in.Linear().ID {
				rec.Consumed = true
			}
		}

		for _, rec := range m.transactions {
			if rec.Transaction.ID.ID == in.Linear().ID {
				rec.Consumed = true
			}
		}
	}

	m.recorded[st.ID] = struct{}{}

	return nil
}

func (m *Memory) Proposals(_ context.Context, f Filter) ([]*ProposalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*ProposalRecord

	// Most recently recorded first.
	for i := len(m.proposals) - 1; i >= 0; i-- {
		rec := m.proposals[i]

		if !matchStatus(f.Status, rec.Consumed) {
			continue
		}

		if f.ID != nil && rec.Proposal.ID.ID != *f.ID {
			continue
		}

		if f.Issuer != "" && rec.Proposal.Issuer.Name != f.Issuer {
			continue
		}

		if f.Counterpart != "" && rec.Proposal.Counterpart.Name != f.Counterpart {
			continue
		}

		if !inRange(rec.Proposal.Timestamp, f.From, f.To) {
			continue
		}

		matched = append(matched, rec)
	}

	lo, hi := pageBounds(f.Page, len(matched))

	return matched[lo:hi], nil
}

func (m *Memory) Transactions(_ context.Context, f Filter) ([]*TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*TransactionRecord

	for i := len(m.transactions) - 1; i >= 0; i-- {
		rec := m.transactions[i]

		if !matchStatus(f.Status, rec.Consumed) {
			continue
		}

		if f.ID != nil && rec.Transaction.ID.ID != *f.ID {
			continue
		}

		if f.Buyer != "" && rec.Transaction.Buyer.Name != f.Buyer {
			continue
		}

		if f.Seller != "" && rec.Transaction.Seller.Name != f.Seller {
			continue
		}

		if !inRange(rec.Transaction.Timestamp, f.From, f.To) {
			continue
		}

		matched = append(matched, rec)
	}

	lo, hi := pageBounds(f.Page, len(matched))

	return matched[lo:hi], nil
}

func (m *Memory) SumTotalPrice(_ context.Context, f SumFilter) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum float64

	for _, rec := range m.transactions {
		if !matchStatus(f.Status, rec.Consumed) {
			continue
		}

		if f.Buyer != "" && rec.Transaction.Buyer.Name != f.Buyer {
			continue
		}

		if f.Seller != "" && rec.Transaction.Seller.Name != f.Seller {
			continue
		}

		sum += rec.Transaction.TotalPrice
	}

	return sum, nil
}
