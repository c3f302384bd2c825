package balance

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type effectKey struct {
	transitionID uuid.UUID
	org          string
}

// MemoryRepository is an in-process Repository for the protocol runtime
// and tests.
type MemoryRepository struct {
	mu       sync.Mutex
	balances map[string]float64
	applied  map[effectKey]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		balances: make(map[string]float64),
		applied:  make(map[effectKey]struct{}),
	}
}

func (r *MemoryRepository) Get(_ context.Context, org string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.balances[org], nil
}

func (r *MemoryRepository) ApplyOnce(_ context.Context, transitionID uuid.UUID, org string, delta float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := effectKey{transitionID: transitionID, org: org}
	if _, ok := r.applied[key]; ok {
		return false, nil
	}

	r.applied[key] = struct{}{}
	r.balances[org] += delta

	return true, nil
}

// Set seeds an organization's balance. Test helper.
func (r *MemoryRepository) Set(org string, quantity float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.balances[org] = quantity
}
