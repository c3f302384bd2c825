// Package notary defines the arbitration service contract: a fully-signed
// transition either commits with an attestation or conflicts because one of
// its inputs was already spent. The first submission consuming a given input
// wins; every later one is rejected regardless of arrival order.
package notary

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/identity"
)

// ConflictError reports a double-spend: the input was consumed by a
// previously committed transition. InputID is zero when the conflict is a
// re-submission of an already committed inputless transition.
type ConflictError struct {
	InputID uuid.UUID
}

func (e *ConflictError) Error() string {
	if e.InputID == uuid.Nil {
		return "transition already committed"
	}

	return fmt.Sprintf("input %s already consumed", e.InputID)
}

// Service is the arbitration contract. Submit returns the notary's
// attestation over the transition, or a *ConflictError.
type Service interface {
	Submit(ctx context.Context, st *contract.SignedTransition) ([]byte, error)
}

// InMemory is a single-process notary used by the in-process network and by
// tests. It keeps the spent-input index under one mutex, which is exactly
// the ordering guarantee the contract asks for.
type InMemory struct {
	id *identity.Identity

	mu    sync.Mutex
	spent map[uuid.UUID]uuid.UUID // consumed state id -> committing transition id
	seen  map[uuid.UUID]struct{}  // committed transition ids
}

func NewInMemory(id *identity.Identity) *InMemory {
	return &InMemory{
		id:    id,
		spent: make(map[uuid.UUID]uuid.UUID),
		seen:  make(map[uuid.UUID]struct{}),
	}
}

func (n *InMemory) Submit(_ context.Context, st *contract.SignedTransition) ([]byte, error) {
	if err := st.FullySigned(); err != nil {
		return nil, fmt.Errorf("refusing unsigned transition: %w", err)
	}

	payload, err := st.Transition.SigningBytes()
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.seen[st.ID]; ok {
		return nil, &ConflictError{}
	}

	for _, in := range st.Transition.Inputs {
		if _, ok := n.spent[in.Linear().ID]; ok {
			return nil, &ConflictError{InputID: in.Linear().ID}
		}
	}

	for _, in := range st.Transition.Inputs {
		n.spent[in.Linear().ID] = st.ID
	}

	n.seen[st.ID] = struct{}{}

	return n.id.Sign(payload), nil
}
