package contract_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
)

func newParty(t *testing.T, name string) state.Party {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return state.Party{Name: name, Key: pub}
}

type fixture struct {
	issuer      state.Party
	counterpart state.Party
	regulator   state.Party
	now         time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	return fixture{
		issuer:      newParty(t, "ElectraGrid"),
		counterpart: newParty(t, "GreenVolt"),
		regulator:   newParty(t, "Sman"),
		now:         time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f fixture) proposal() *state.Proposal {
	return &state.Proposal{
		Issuer:       f.issuer,
		Counterpart:  f.counterpart,
		Regulator:    f.regulator,
		Timestamp:    f.now.Add(-time.Hour),
		Energy:       100,
		PricePerUnit: 2.5,
		Validity:     f.now.Add(24 * time.Hour),
		Type:         state.TypeAcquisition,
		ID:           state.NewLinearID("deal-1"),
	}
}

func (f fixture) transaction() *state.Transaction {
	return &state.Transaction{
		Buyer:        f.issuer,
		Seller:       f.counterpart,
		Regulator:    f.regulator,
		Timestamp:    f.now.Add(-time.Hour),
		Energy:       100,
		PricePerUnit: 2.5,
		TotalPrice:   250,
		ID:           state.NewLinearID("deal-1"),
	}
}

func signers(parties ...state.Party) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, len(parties))
	for i, p := range parties {
		keys[i] = p.Key
	}

	return keys
}

func TestVerify_NoCommand(t *testing.T) {
	f := newFixture(t)

	err := contract.Verify(&contract.Transition{}, f.now)

	var verr *contract.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "transition carries no command", verr.Rule)
}

func TestVerify_UnrecognisedCommand(t *testing.T) {
	f := newFixture(t)

	tr := &contract.Transition{
		Commands: []contract.Command{{Kind: "proposal/teleport"}},
	}

	var verr *contract.ValidationError
	require.ErrorAs(t, contract.Verify(tr, f.now), &verr)
}

func TestVerify_ProposalCreate(t *testing.T) {
	type testCase struct {
		name     string
		mutate   func(f fixture, tr *contract.Transition)
		wantRule string
	}

	tests := []testCase{
		{
			name:   "Valid",
			mutate: func(fixture, *contract.Transition) {},
		},
		{
			name: "ConsumesInput",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Inputs = []state.State{f.proposal()}
			},
			wantRule: "no inputs may be consumed when creating a proposal",
		},
		{
			name: "NoOutput",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs = nil
			},
			wantRule: "exactly one proposal must be created",
		},
		{
			name: "WrongOutputType",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs = []state.State{f.transaction()}
			},
			wantRule: "output must be a proposal",
		},
		{
			name: "SelfProposal",
			mutate: func(f fixture, tr *contract.Transition) {
				p := tr.Outputs[0].(*state.Proposal)
				p.Counterpart = p.Issuer
			},
			wantRule: "issuer and counterpart cannot be the same",
		},
		{
			name: "ZeroEnergy",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs[0].(*state.Proposal).Energy = 0
			},
			wantRule: "energy must be greater than 0",
		},
		{
			name: "NegativePrice",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs[0].(*state.Proposal).PricePerUnit = -1
			},
			wantRule: "price per unit must be greater than 0",
		},
		{
			name: "ValidityBeforeTimestamp",
			mutate: func(f fixture, tr *contract.Transition) {
				p := tr.Outputs[0].(*state.Proposal)
				p.Validity = p.Timestamp.Add(-time.Minute)
			},
			wantRule: "validity must be after the proposal timestamp",
		},
		{
			name: "UnknownType",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs[0].(*state.Proposal).Type = "barter"
			},
			wantRule: "proposal type must be acquisition or sale",
		},
		{
			name: "MissingSigner",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Commands[0].Signers = signers(f.issuer, f.counterpart)
			},
			wantRule: "all participants must be signers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			tr := &contract.Transition{
				Outputs: []state.State{f.proposal()},
				Commands: []contract.Command{{
					Kind:    contract.ProposalCreate,
					Signers: signers(f.issuer, f.counterpart, f.regulator),
				}},
			}

			tt.mutate(f, tr)

			err := contract.Verify(tr, f.now)

			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}

			var verr *contract.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantRule, verr.Rule)
		})
	}
}

func TestVerify_ProposalEnd(t *testing.T) {
	type testCase struct {
		name     string
		mutate   func(f fixture, tr *contract.Transition)
		wantRule string
	}

	tests := []testCase{
		{
			name:   "Valid",
			mutate: func(fixture, *contract.Transition) {},
		},
		{
			name: "NoInput",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Inputs = nil
			},
			wantRule: "exactly one proposal must be consumed when ending it",
		},
		{
			name: "ProducesOutput",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs = []state.State{f.proposal()}
			},
			wantRule: "no state may be created when ending a proposal",
		},
		{
			name: "WrongInputType",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Inputs = []state.State{f.transaction()}
			},
			wantRule: "input must be a proposal",
		},
		{
			name: "MissingSigner",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Commands[0].Signers = signers(f.issuer)
			},
			wantRule: "all participants must be signers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			tr := &contract.Transition{
				Inputs: []state.State{f.proposal()},
				Commands: []contract.Command{{
					Kind:    contract.ProposalEnd,
					Signers: signers(f.issuer, f.counterpart, f.regulator),
				}},
			}

			tt.mutate(f, tr)

			err := contract.Verify(tr, f.now)

			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}

			var verr *contract.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantRule, verr.Rule)
		})
	}
}

func TestVerify_TransactionCreate(t *testing.T) {
	type testCase struct {
		name     string
		mutate   func(f fixture, tr *contract.Transition)
		wantRule string
	}

	tests := []testCase{
		{
			name:   "Valid",
			mutate: func(fixture, *contract.Transition) {},
		},
		{
			name: "ConsumesInput",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Inputs = []state.State{f.proposal()}
			},
			wantRule: "no inputs may be consumed when creating a transaction",
		},
		{
			name: "SelfTrade",
			mutate: func(f fixture, tr *contract.Transition) {
				tx := tr.Outputs[0].(*state.Transaction)
				tx.Seller = tx.Buyer
			},
			wantRule: "buyer and seller cannot be the same",
		},
		{
			name: "FutureTimestamp",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs[0].(*state.Transaction).Timestamp = f.now.Add(time.Hour)
			},
			wantRule: "transaction timestamp cannot be in the future",
		},
		{
			name: "ZeroEnergy",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Outputs[0].(*state.Transaction).Energy = 0
			},
			wantRule: "energy must be greater than 0",
		},
		{
			name: "MissingSigner",
			mutate: func(f fixture, tr *contract.Transition) {
				tr.Commands[0].Signers = nil
			},
			wantRule: "all participants must be signers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			tr := &contract.Transition{
				Outputs: []state.State{f.transaction()},
				Commands: []contract.Command{{
					Kind:    contract.TransactionCreate,
					Signers: signers(f.issuer, f.counterpart, f.regulator),
				}},
			}

			tt.mutate(f, tr)

			err := contract.Verify(tr, f.now)

			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}

			var verr *contract.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantRule, verr.Rule)
		})
	}
}

func TestVerify_TransactionIssue(t *testing.T) {
	type testCase struct {
		name     string
		mutate   func(f fixture, p *state.Proposal, tx *state.Transaction)
		wantRule string
	}

	tests := []testCase{
		{
			name:   "Valid",
			mutate: func(fixture, *state.Proposal, *state.Transaction) {},
		},
		{
			name: "PartySwap",
			mutate: func(f fixture, p *state.Proposal, tx *state.Transaction) {
				other := newParty(t, "Stranger")
				tx.Buyer = other
			},
			wantRule: "proposal parties must match the transaction buyer and seller",
		},
		{
			name: "Expired",
			mutate: func(f fixture, p *state.Proposal, tx *state.Transaction) {
				tx.Timestamp = p.Validity.Add(time.Minute)
			},
			wantRule: "transaction timestamp must be before the proposal validity",
		},
		{
			name: "EnergyMismatch",
			mutate: func(f fixture, p *state.Proposal, tx *state.Transaction) {
				tx.Energy = p.Energy + 1
			},
			wantRule: "energy must equal the proposed energy",
		},
		{
			name: "PriceMismatch",
			mutate: func(f fixture, p *state.Proposal, tx *state.Transaction) {
				tx.PricePerUnit = p.PricePerUnit * 2
			},
			wantRule: "price per unit must equal the proposed price per unit",
		},
		{
			name: "DanglingBackReference",
			mutate: func(f fixture, p *state.Proposal, tx *state.Transaction) {
				tx.ProposalID = state.NewLinearID("").String()
			},
			wantRule: "transaction must reference the consumed proposal id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			p := f.proposal()
			tx := f.transaction()
			tx.ProposalID = p.ID.String()

			tt.mutate(f, p, tx)

			tr := &contract.Transition{
				Inputs:  []state.State{p},
				Outputs: []state.State{tx},
				Commands: []contract.Command{{
					Kind:    contract.TransactionIssue,
					Signers: signers(tx.Buyer, tx.Seller, tx.Regulator),
				}},
			}

			err := contract.Verify(tr, f.now)

			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}

			var verr *contract.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantRule, verr.Rule)
		})
	}
}
