package vault_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
	"github.com/nferraro/gridswap/internal/vault"
)

func newParty(t *testing.T, name string) state.Party {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return state.Party{Name: name, Key: pub}
}

func newProposal(issuer, counterpart, regulator state.Party, ts time.Time) *state.Proposal {
	return &state.Proposal{
		Issuer:       issuer,
		Counterpart:  counterpart,
		Regulator:    regulator,
		Timestamp:    ts,
		Energy:       100,
		PricePerUnit: 2,
		Validity:     ts.Add(24 * time.Hour),
		Type:         state.TypeAcquisition,
		ID:           state.NewLinearID(""),
	}
}

// record commits a transition producing the given outputs and consuming the
// given inputs.
func record(t *testing.T, m *vault.Memory, inputs, outputs []state.State) *contract.SignedTransition {
	t.Helper()

	st := contract.NewSignedTransition(&contract.Transition{Inputs: inputs, Outputs: outputs})
	require.NoError(t, m.Record(context.Background(), st))

	return st
}

func TestMemory_RecordIdempotent(t *testing.T) {
	m := vault.NewMemory()
	issuer := newParty(t, "ElectraGrid")
	counterpart := newParty(t, "GreenVolt")
	regulator := newParty(t, "Sman")

	p := newProposal(issuer, counterpart, regulator, time.Now())
	st := record(t, m, nil, []state.State{p})

	// Replaying the identical transition must not duplicate the proposal.
	require.NoError(t, m.Record(context.Background(), st))

	recs, err := m.Proposals(context.Background(), vault.Filter{Status: vault.StatusAll})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestMemory_ConsumedMark(t *testing.T) {
	m := vault.NewMemory()
	issuer := newParty(t, "ElectraGrid")
	counterpart := newParty(t, "GreenVolt")
	regulator := newParty(t, "Sman")

	p := newProposal(issuer, counterpart, regulator, time.Now())
	record(t, m, nil, []state.State{p})
	record(t, m, []state.State{p}, nil)

	unconsumed, err := m.Proposals(context.Background(), vault.Filter{Status: vault.StatusUnconsumed})
	require.NoError(t, err)
	assert.Empty(t, unconsumed)

	consumed, err := m.Proposals(context.Background(), vault.Filter{Status: vault.StatusConsumed})
	require.NoError(t, err)
	require.Len(t, consumed, 1)
	assert.True(t, consumed[0].Consumed)
}

func TestMemory_ProposalFilters(t *testing.T) {
	m := vault.NewMemory()
	issuer := newParty(t, "ElectraGrid")
	counterpart := newParty(t, "GreenVolt")
	other := newParty(t, "VoltHub")
	regulator := newParty(t, "Sman")

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	p1 := newProposal(issuer, counterpart, regulator, base)
	p2 := newProposal(counterpart, issuer, regulator, base.Add(time.Hour))
	p3 := newProposal(issuer, other, regulator, base.Add(2*time.Hour))

	record(t, m, nil, []state.State{p1})
	record(t, m, nil, []state.State{p2})
	record(t, m, nil, []state.State{p3})

	byIssuer, err := m.Proposals(context.Background(), vault.Filter{Issuer: "ElectraGrid"})
	require.NoError(t, err)
	assert.Len(t, byIssuer, 2)

	byCounterpart, err := m.Proposals(context.Background(), vault.Filter{Counterpart: "GreenVolt"})
	require.NoError(t, err)
	require.Len(t, byCounterpart, 1)
	assert.Equal(t, p1.ID, byCounterpart[0].Proposal.ID)

	id := p2.ID.ID

	byID, err := m.Proposals(context.Background(), vault.Filter{ID: &id})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, p2.ID, byID[0].Proposal.ID)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)

	byRange, err := m.Proposals(context.Background(), vault.Filter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, byRange, 1)
	assert.Equal(t, p2.ID, byRange[0].Proposal.ID)
}

func TestMemory_RecencyOrderAndPaging(t *testing.T) {
	m := vault.NewMemory()
	issuer := newParty(t, "ElectraGrid")
	counterpart := newParty(t, "GreenVolt")
	regulator := newParty(t, "Sman")

	total := vault.PageSize + 5

	var last *state.Proposal

	for i := 0; i < total; i++ {
		p := newProposal(issuer, counterpart, regulator, time.Now())
		p.ID = state.NewLinearID(fmt.Sprintf("deal-%d", i))
		record(t, m, nil, []state.State{p})
		last = p
	}

	page1, err := m.Proposals(context.Background(), vault.Filter{Page: 1})
	require.NoError(t, err)
	require.Len(t, page1, vault.PageSize)
	assert.Equal(t, last.ID, page1[0].Proposal.ID, "most recently recorded comes first")

	page2, err := m.Proposals(context.Background(), vault.Filter{Page: 2})
	require.NoError(t, err)
	assert.Len(t, page2, 5)

	page3, err := m.Proposals(context.Background(), vault.Filter{Page: 3})
	require.NoError(t, err)
	assert.Empty(t, page3)
}

func TestMemory_SumTotalPrice(t *testing.T) {
	m := vault.NewMemory()
	buyer := newParty(t, "ElectraGrid")
	seller := newParty(t, "GreenVolt")
	regulator := newParty(t, "Sman")

	mk := func(b, s state.Party, total float64) *state.Transaction {
		return &state.Transaction{
			Buyer:        b,
			Seller:       s,
			Regulator:    regulator,
			Timestamp:    time.Now(),
			Energy:       10,
			PricePerUnit: total / 10,
			TotalPrice:   total,
			ID:           state.NewLinearID(""),
		}
	}

	record(t, m, nil, []state.State{mk(buyer, seller, 100)})
	record(t, m, nil, []state.State{mk(buyer, seller, 50)})
	record(t, m, nil, []state.State{mk(seller, buyer, 30)})

	bought, err := m.SumTotalPrice(context.Background(), vault.SumFilter{Status: vault.StatusAll, Buyer: "ElectraGrid"})
	require.NoError(t, err)
	assert.Equal(t, 150.0, bought)

	sold, err := m.SumTotalPrice(context.Background(), vault.SumFilter{Status: vault.StatusAll, Seller: "ElectraGrid"})
	require.NoError(t, err)
	assert.Equal(t, 30.0, sold)

	all, err := m.SumTotalPrice(context.Background(), vault.SumFilter{Status: vault.StatusAll})
	require.NoError(t, err)
	assert.Equal(t, 180.0, all)
}
