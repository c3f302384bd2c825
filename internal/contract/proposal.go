package contract

import (
	"github.com/nferraro/gridswap/internal/state"
)

func verifyProposalCreate(t *Transition, cmd Command) error {
	if len(t.Inputs) != 0 {
		return reject("no inputs may be consumed when creating a proposal")
	}

	if len(t.Outputs) != 1 {
		return reject("exactly one proposal must be created")
	}

	proposal, ok := t.Outputs[0].(*state.Proposal)
	if !ok {
		return reject("output must be a proposal")
	}

	if proposal.Issuer.Equal(proposal.Counterpart) {
		return reject("issuer and counterpart cannot be the same")
	}

	if proposal.Energy <= 0 {
		return reject("energy must be greater than 0")
	}

	if proposal.PricePerUnit <= 0 {
		return reject("price per unit must be greater than 0")
	}

	if !proposal.Validity.After(proposal.Timestamp) {
		return reject("validity must be after the proposal timestamp")
	}

	if proposal.Type != state.TypeAcquisition && proposal.Type != state.TypeSale {
		return reject("proposal type must be acquisition or sale")
	}

	if !signedByAll(cmd, proposal.Participants()) {
		return reject("all participants must be signers")
	}

	return nil
}

func verifyProposalEnd(t *Transition, cmd Command) error {
	if len(t.Inputs) != 1 {
		return reject("exactly one proposal must be consumed when ending it")
	}

	if len(t.Outputs) != 0 {
		return reject("no state may be created when ending a proposal")
	}

	proposal, ok := t.Inputs[0].(*state.Proposal)
	if !ok {
		return reject("input must be a proposal")
	}

	if !signedByAll(cmd, proposal.Participants()) {
		return reject("all participants must be signers")
	}

	return nil
}
