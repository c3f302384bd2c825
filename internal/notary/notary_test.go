package notary_test

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/identity"
	"github.com/nferraro/gridswap/internal/notary"
	"github.com/nferraro/gridswap/internal/state"
)

type parties struct {
	issuer      *identity.Identity
	counterpart *identity.Identity
	regulator   *identity.Identity
}

func newParties(t *testing.T) parties {
	t.Helper()

	issuer, err := identity.New("ElectraGrid")
	require.NoError(t, err)
	counterpart, err := identity.New("GreenVolt")
	require.NoError(t, err)
	regulator, err := identity.New("Sman")
	require.NoError(t, err)

	return parties{issuer: issuer, counterpart: counterpart, regulator: regulator}
}

func (p parties) proposal() *state.Proposal {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	return &state.Proposal{
		Issuer:       p.issuer.Party(),
		Counterpart:  p.counterpart.Party(),
		Regulator:    p.regulator.Party(),
		Timestamp:    now,
		Energy:       100,
		PricePerUnit: 2,
		Validity:     now.Add(time.Hour),
		Type:         state.TypeAcquisition,
		ID:           state.NewLinearID(""),
	}
}

// fullySigned builds a transition signed by all three parties.
func (p parties) fullySigned(t *testing.T, tr *contract.Transition) *contract.SignedTransition {
	t.Helper()

	payload, err := tr.SigningBytes()
	require.NoError(t, err)

	st := contract.NewSignedTransition(tr)
	for _, id := range []*identity.Identity{p.issuer, p.counterpart, p.regulator} {
		st.Signatures = append(st.Signatures, contract.Signature{
			Party: id.Party(),
			Sig:   id.Sign(payload),
		})
	}

	return st
}

func (p parties) endTransition(prop *state.Proposal) *contract.Transition {
	return &contract.Transition{
		Inputs: []state.State{prop},
		Commands: []contract.Command{{
			Kind: contract.ProposalEnd,
			Signers: []ed25519.PublicKey{
				p.issuer.Party().Key,
				p.counterpart.Party().Key,
				p.regulator.Party().Key,
			},
		}},
	}
}

func newNotary(t *testing.T) *notary.InMemory {
	t.Helper()

	id, err := identity.New("Notary")
	require.NoError(t, err)

	return notary.NewInMemory(id)
}

func TestSubmit_RejectsPartiallySigned(t *testing.T) {
	p := newParties(t)
	n := newNotary(t)

	tr := p.endTransition(p.proposal())

	payload, err := tr.SigningBytes()
	require.NoError(t, err)

	st := contract.NewSignedTransition(tr)
	st.Signatures = []contract.Signature{{Party: p.issuer.Party(), Sig: p.issuer.Sign(payload)}}

	_, err = n.Submit(context.Background(), st)
	assert.Error(t, err)
}

func TestSubmit_AttestsFirstSubmission(t *testing.T) {
	p := newParties(t)
	n := newNotary(t)

	st := p.fullySigned(t, p.endTransition(p.proposal()))

	attestation, err := n.Submit(context.Background(), st)
	require.NoError(t, err)
	assert.NotEmpty(t, attestation)
}

func TestSubmit_ConflictsOnSpentInput(t *testing.T) {
	p := newParties(t)
	n := newNotary(t)

	prop := p.proposal()

	first := p.fullySigned(t, p.endTransition(prop))
	_, err := n.Submit(context.Background(), first)
	require.NoError(t, err)

	// A different transition consuming the same proposal must lose.
	second := p.fullySigned(t, p.endTransition(prop))

	_, err = n.Submit(context.Background(), second)

	var conflict *notary.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, prop.ID.ID, conflict.InputID)
}

func TestSubmit_ReplayConflicts(t *testing.T) {
	p := newParties(t)
	n := newNotary(t)

	st := p.fullySigned(t, p.endTransition(p.proposal()))

	_, err := n.Submit(context.Background(), st)
	require.NoError(t, err)

	// Re-submitting the identical transition is never a second success.
	_, err = n.Submit(context.Background(), st)

	var conflict *notary.ConflictError
	require.ErrorAs(t, err, &conflict)
}
