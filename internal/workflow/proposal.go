package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/state"
)

// ProposalTerms are the caller-supplied terms of a new proposal. The
// issuer is always the initiating node; the regulator is always the
// network's fixed intermediary.
type ProposalTerms struct {
	Counterpart  string
	Energy       float64
	PricePerUnit float64
	Validity     time.Time
	Type         state.ProposalType
	ExternalID   string
}

// CreateProposal issues a new open proposal toward the named counterpart
// and finalizes it across counterpart and regulator.
func (n *Node) CreateProposal(ctx context.Context, terms ProposalTerms) (*Instance, error) {
	inst := newInstance()

	counterpart, err := n.Directory.Lookup(terms.Counterpart)
	if err != nil {
		return inst, inst.abort(&ResolutionError{Reason: err.Error()})
	}

	regulator, err := n.Directory.Lookup(n.RegulatorName)
	if err != nil {
		return inst, inst.abort(&ResolutionError{Reason: err.Error()})
	}

	p := &state.Proposal{
		Issuer:       n.Identity.Party(),
		Counterpart:  counterpart,
		Regulator:    regulator,
		Timestamp:    n.now(),
		Energy:       terms.Energy,
		PricePerUnit: terms.PricePerUnit,
		Validity:     terms.Validity,
		Type:         terms.Type,
		ID:           state.NewLinearID(terms.ExternalID),
	}

	t := &contract.Transition{
		Outputs: []state.State{p},
		Commands: []contract.Command{{
			Kind:    contract.ProposalCreate,
			Signers: participantKeys(p.Participants()),
		}},
	}

	pkg, err := n.buildAndSign(inst, t)
	if err != nil {
		return inst, err
	}

	roles := roleSet{
		RoleIssuer:      p.Issuer,
		RoleCounterpart: p.Counterpart,
		RoleRegulator:   p.Regulator,
	}

	if err := n.finalize(ctx, inst, pkg, roles.targets(proposalRoutes, RoleIssuer)); err != nil {
		return inst, err
	}

	return inst, nil
}

// EndProposal withdraws an open proposal. Either side of the proposal, or
// the regulator, may end it; nobody else.
func (n *Node) EndProposal(ctx context.Context, proposalID string) (*Instance, error) {
	inst := newInstance()

	p, err := n.resolveUnconsumedProposal(ctx, proposalID)
	if err != nil {
		return inst, inst.abort(err)
	}

	roles := roleSet{
		RoleIssuer:      p.Issuer,
		RoleCounterpart: p.Counterpart,
		RoleRegulator:   p.Regulator,
	}

	own, ok := roles.resolve(n.Identity.Party())
	if !ok {
		return inst, inst.abort(&AuthorizationError{
			Reason: fmt.Sprintf("%s is not a participant of proposal %s", n.Identity.Name(), proposalID),
		})
	}

	t := &contract.Transition{
		Inputs: []state.State{p},
		Commands: []contract.Command{{
			Kind:    contract.ProposalEnd,
			Signers: participantKeys(p.Participants()),
		}},
	}

	pkg, err := n.buildAndSign(inst, t)
	if err != nil {
		return inst, err
	}

	if err := n.finalize(ctx, inst, pkg, roles.targets(proposalRoutes, own)); err != nil {
		return inst, err
	}

	return inst, nil
}
