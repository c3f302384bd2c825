package contract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/identity"
	"github.com/nferraro/gridswap/internal/state"
)

func TestSignedTransition_FullySigned(t *testing.T) {
	issuer, err := identity.New("ElectraGrid")
	require.NoError(t, err)
	counterpart, err := identity.New("GreenVolt")
	require.NoError(t, err)
	regulator, err := identity.New("Sman")
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	p := &state.Proposal{
		Issuer:       issuer.Party(),
		Counterpart:  counterpart.Party(),
		Regulator:    regulator.Party(),
		Timestamp:    now,
		Energy:       50,
		PricePerUnit: 3,
		Validity:     now.Add(time.Hour),
		Type:         state.TypeSale,
		ID:           state.NewLinearID(""),
	}

	tr := &contract.Transition{
		Outputs: []state.State{p},
		Commands: []contract.Command{{
			Kind:    contract.ProposalCreate,
			Signers: signers(p.Issuer, p.Counterpart, p.Regulator),
		}},
	}

	payload, err := tr.SigningBytes()
	require.NoError(t, err)

	st := contract.NewSignedTransition(tr)
	st.Signatures = []contract.Signature{
		{Party: issuer.Party(), Sig: issuer.Sign(payload)},
	}

	require.NoError(t, st.VerifySignatures())
	assert.Error(t, st.FullySigned(), "one signature out of three must not count as fully signed")

	st.Signatures = append(st.Signatures,
		contract.Signature{Party: counterpart.Party(), Sig: counterpart.Sign(payload)},
		contract.Signature{Party: regulator.Party(), Sig: regulator.Sign(payload)},
	)

	assert.NoError(t, st.FullySigned())
	assert.True(t, st.SignedBy(counterpart.Party()))
}

func TestSignedTransition_TamperedPayload(t *testing.T) {
	issuer, err := identity.New("ElectraGrid")
	require.NoError(t, err)
	counterpart, err := identity.New("GreenVolt")
	require.NoError(t, err)
	regulator, err := identity.New("Sman")
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	p := &state.Proposal{
		Issuer:       issuer.Party(),
		Counterpart:  counterpart.Party(),
		Regulator:    regulator.Party(),
		Timestamp:    now,
		Energy:       50,
		PricePerUnit: 3,
		Validity:     now.Add(time.Hour),
		Type:         state.TypeSale,
		ID:           state.NewLinearID(""),
	}

	tr := &contract.Transition{
		Outputs: []state.State{p},
		Commands: []contract.Command{{
			Kind:    contract.ProposalCreate,
			Signers: signers(p.Issuer, p.Counterpart, p.Regulator),
		}},
	}

	payload, err := tr.SigningBytes()
	require.NoError(t, err)

	st := contract.NewSignedTransition(tr)
	st.Signatures = []contract.Signature{
		{Party: issuer.Party(), Sig: issuer.Sign(payload)},
	}

	// Changing the terms after signing must invalidate the signature.
	p.Energy = 500

	assert.Error(t, st.VerifySignatures())
}

func TestTransition_JSONRoundTrip(t *testing.T) {
	f := newFixture(t)

	p := f.proposal()
	tx := f.transaction()
	tx.ProposalID = p.ID.String()

	tr := &contract.Transition{
		Inputs:  []state.State{p},
		Outputs: []state.State{tx},
		Commands: []contract.Command{{
			Kind:    contract.TransactionIssue,
			Signers: signers(tx.Buyer, tx.Seller, tx.Regulator),
		}},
	}

	data, err := tr.MarshalJSON()
	require.NoError(t, err)

	var decoded contract.Transition
	require.NoError(t, decoded.UnmarshalJSON(data))

	require.Len(t, decoded.Inputs, 1)
	require.Len(t, decoded.Outputs, 1)

	gotP, ok := decoded.Inputs[0].(*state.Proposal)
	require.True(t, ok)
	assert.Equal(t, p.ID, gotP.ID)

	gotTx, ok := decoded.Outputs[0].(*state.Transaction)
	require.True(t, ok)
	assert.Equal(t, tx.ProposalID, gotTx.ProposalID)
	assert.Equal(t, contract.TransactionIssue, decoded.Commands[0].Kind)
}
