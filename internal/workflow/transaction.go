package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
)

// TradeTerms are the caller-supplied terms of a directly created trade
// record, one not derived from an open proposal.
type TradeTerms struct {
	Buyer        string
	Seller       string
	Timestamp    time.Time
	Energy       float64
	PricePerUnit float64
	ExternalID   string
}

// CreateTransaction records a trade directly. The initiator must be the
// buyer, the seller, or the regulator. Direct records carry no balance
// effects; only issuing against a proposal moves energy.
func (n *Node) CreateTransaction(ctx context.Context, terms TradeTerms) (*Instance, error) {
	inst := newInstance()

	buyer, err := n.Directory.Lookup(terms.Buyer)
	if err != nil {
		return inst, inst.abort(&ResolutionError{Reason: err.Error()})
	}

	seller, err := n.Directory.Lookup(terms.Seller)
	if err != nil {
		return inst, inst.abort(&ResolutionError{Reason: err.Error()})
	}

	regulator, err := n.Directory.Lookup(n.RegulatorName)
	if err != nil {
		return inst, inst.abort(&ResolutionError{Reason: err.Error()})
	}

	tx := &state.Transaction{
		Buyer:        buyer,
		Seller:       seller,
		Regulator:    regulator,
		Timestamp:    terms.Timestamp,
		Energy:       terms.Energy,
		PricePerUnit: terms.PricePerUnit,
		TotalPrice:   terms.Energy * terms.PricePerUnit,
		ID:           state.NewLinearID(terms.ExternalID),
	}

	roles := roleSet{
		RoleBuyer:     tx.Buyer,
		RoleSeller:    tx.Seller,
		RoleRegulator: tx.Regulator,
	}

	own, ok := roles.resolve(n.Identity.Party())
	if !ok {
		return inst, inst.abort(&AuthorizationError{
			Reason: fmt.Sprintf("%s is neither a side of the trade nor the regulator", n.Identity.Name()),
		})
	}

	t := &contract.Transition{
		Outputs: []state.State{tx},
		Commands: []contract.Command{{
			Kind:    contract.TransactionCreate,
			Signers: participantKeys(tx.Participants()),
		}},
	}

	pkg, err := n.buildAndSign(inst, t)
	if err != nil {
		return inst, err
	}

	if err := n.finalize(ctx, inst, pkg, roles.targets(tradeRoutes, own)); err != nil {
		return inst, err
	}

	return inst, nil
}

// IssueTransaction settles an open proposal into a trade record. Only the
// proposal's counterpart may issue. For an acquisition the counterpart
// supplies the energy, so its balance must cover the proposal before the
// transition is even built.
func (n *Node) IssueTransaction(ctx context.Context, proposalID string) (*Instance, error) {
	inst := newInstance()

	p, err := n.resolveUnconsumedProposal(ctx, proposalID)
	if err != nil {
		return inst, inst.abort(err)
	}

	me := n.Identity.Party()
	if !p.Counterpart.Equal(me) {
		return inst, inst.abort(&AuthorizationError{
			Reason: fmt.Sprintf("only %s may issue against proposal %s", p.Counterpart.Name, proposalID),
		})
	}

	if p.Type == state.TypeAcquisition {
		ok, err := n.Balances.CheckSufficient(ctx, me.Name, p.Energy)
		if err != nil {
			return inst, inst.abort(err)
		}

		if !ok {
			return inst, inst.abort(&AuthorizationError{
				Reason: fmt.Sprintf("%s holds less than %.2f energy", me.Name, p.Energy),
			})
		}
	}

	var buyer, seller state.Party

	switch p.Type {
	case state.TypeAcquisition:
		buyer, seller = p.Issuer, p.Counterpart
	case state.TypeSale:
		buyer, seller = p.Counterpart, p.Issuer
	}

	tx := &state.Transaction{
		Buyer:        buyer,
		Seller:       seller,
		Regulator:    p.Regulator,
		Timestamp:    p.Timestamp,
		Energy:       p.Energy,
		PricePerUnit: p.PricePerUnit,
		TotalPrice:   p.Energy * p.PricePerUnit,
		ProposalID:   p.ID.String(),
		ID:           state.NewLinearID(p.ID.ExternalID),
	}

	t := &contract.Transition{
		Inputs:  []state.State{p},
		Outputs: []state.State{tx},
		Commands: []contract.Command{{
			Kind:    contract.TransactionIssue,
			Signers: participantKeys(tx.Participants()),
		}},
	}

	pkg, err := n.buildAndSign(inst, t)
	if err != nil {
		return inst, err
	}

	roles := roleSet{
		RoleBuyer:     tx.Buyer,
		RoleSeller:    tx.Seller,
		RoleRegulator: tx.Regulator,
	}

	own, _ := roles.resolve(me)

	if err := n.finalize(ctx, inst, pkg, roles.targets(tradeRoutes, own)); err != nil {
		return inst, err
	}

	n.applyBalanceEffects(ctx, inst.Record, p)

	return inst, nil
}

// applyBalanceEffects runs the initiator-only post-commit balance update.
// The transition is already final, so failures here are logged for a later
// re-apply rather than rolled back; ApplyOnce keys on (transition, org) so
// the retry cannot double-count.
func (n *Node) applyBalanceEffects(ctx context.Context, rec *contract.SignedTransition, p *state.Proposal) {
	log := n.logger().With("transition", rec.ID)
	me := n.Identity.Name()

	switch p.Type {
	case state.TypeAcquisition:
		if err := n.Balances.Apply(ctx, rec.ID, me, -p.Energy); err != nil {
			log.Error("balance debit not applied", "org", me, "error", err)
		}

		if err := n.Balances.Apply(ctx, rec.ID, p.Issuer.Name, p.Energy); err != nil {
			log.Error("balance credit not applied", "org", p.Issuer.Name, "error", err)
		}
	case state.TypeSale:
		if err := n.Balances.Apply(ctx, rec.ID, me, p.Energy); err != nil {
			log.Error("balance credit not applied", "org", me, "error", err)
		}
	}
}
