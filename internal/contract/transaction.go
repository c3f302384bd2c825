package contract

import (
	"time"

	"github.com/nferraro/gridswap/internal/state"
)

func verifyTransactionCreate(t *Transition, cmd Command, now time.Time) error {
	if len(t.Inputs) != 0 {
		return reject("no inputs may be consumed when creating a transaction")
	}

	if len(t.Outputs) != 1 {
		return reject("exactly one transaction must be created")
	}

	tx, ok := t.Outputs[0].(*state.Transaction)
	if !ok {
		return reject("output must be a transaction")
	}

	if tx.Buyer.Equal(tx.Seller) {
		return reject("buyer and seller cannot be the same")
	}

	if !tx.Timestamp.Before(now) {
		return reject("transaction timestamp cannot be in the future")
	}

	if tx.Energy <= 0 {
		return reject("energy must be greater than 0")
	}

	if tx.PricePerUnit <= 0 {
		return reject("price per unit must be greater than 0")
	}

	if !signedByAll(cmd, tx.Participants()) {
		return reject("all participants must be signers")
	}

	return nil
}

func verifyTransactionIssue(t *Transition, cmd Command) error {
	if len(t.Inputs) != 1 {
		return reject("exactly one proposal must be consumed when issuing")
	}

	proposal, ok := t.Inputs[0].(*state.Proposal)
	if !ok {
		return reject("input must be a proposal")
	}

	if len(t.Outputs) != 1 {
		return reject("exactly one transaction must be created")
	}

	tx, ok := t.Outputs[0].(*state.Transaction)
	if !ok {
		return reject("output must be a transaction")
	}

	if tx.Buyer.Equal(tx.Seller) {
		return reject("buyer and seller cannot be the same")
	}

	if tx.Energy <= 0 {
		return reject("energy must be greater than 0")
	}

	if tx.PricePerUnit <= 0 {
		return reject("price per unit must be greater than 0")
	}

	if !signedByAll(cmd, tx.Participants()) {
		return reject("all participants must be signers")
	}

	sameParties := (proposal.Issuer.Equal(tx.Seller) && proposal.Counterpart.Equal(tx.Buyer)) ||
		(proposal.Issuer.Equal(tx.Buyer) && proposal.Counterpart.Equal(tx.Seller))
	if !sameParties {
		return reject("proposal parties must match the transaction buyer and seller")
	}

	if !tx.Timestamp.Before(proposal.Validity) {
		return reject("transaction timestamp must be before the proposal validity")
	}

	if proposal.Energy != tx.Energy {
		return reject("energy must equal the proposed energy")
	}

	if proposal.PricePerUnit != tx.PricePerUnit {
		return reject("price per unit must equal the proposed price per unit")
	}

	// Runtime assertion standing in for relational integrity: the
	// back-reference is just a string compared at issue time.
	if proposal.ID.String() != tx.ProposalID {
		return reject("transaction must reference the consumed proposal id")
	}

	return nil
}
