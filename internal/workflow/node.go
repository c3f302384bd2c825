// Package workflow runs the multi-party state-transition protocol: build a
// candidate transition, validate it locally, sign it, collect every other
// participant's signature over independent sessions, submit the package to
// the notary, and record the attested result everywhere. All of it is
// driven by an explicit per-node context object; nothing is ambient.
package workflow

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nferraro/gridswap/internal/balance"
	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/identity"
	"github.com/nferraro/gridswap/internal/notary"
	"github.com/nferraro/gridswap/internal/state"
	"github.com/nferraro/gridswap/internal/vault"
)

// Role tags a party's position within a transition's participant set.
// The initiator resolves its own role once on workflow entry and routes to
// the remaining roles through a static table.
type Role string

const (
	RoleIssuer      Role = "issuer"
	RoleCounterpart Role = "counterpart"
	RoleBuyer       Role = "buyer"
	RoleSeller      Role = "seller"
	RoleRegulator   Role = "regulator"
)

var proposalRoutes = map[Role][]Role{
	RoleIssuer:      {RoleCounterpart, RoleRegulator},
	RoleCounterpart: {RoleIssuer, RoleRegulator},
	RoleRegulator:   {RoleIssuer, RoleCounterpart},
}

var tradeRoutes = map[Role][]Role{
	RoleBuyer:     {RoleSeller, RoleRegulator},
	RoleSeller:    {RoleBuyer, RoleRegulator},
	RoleRegulator: {RoleBuyer, RoleSeller},
}

// roleSet maps each role of one transition to its party.
type roleSet map[Role]state.Party

// resolve returns the role the given party plays in this set.
func (rs roleSet) resolve(p state.Party) (Role, bool) {
	for role, party := range rs {
		if party.Equal(p) {
			return role, true
		}
	}

	return "", false
}

// targets lists the parties behind the routed roles.
func (rs roleSet) targets(routes map[Role][]Role, own Role) []state.Party {
	others := routes[own]
	parties := make([]state.Party, len(others))

	for i, role := range others {
		parties[i] = rs[role]
	}

	return parties
}

// Node is the explicit workflow context for one organization: its identity,
// its view of the network, and the services a workflow touches.
type Node struct {
	Identity  *identity.Identity
	Directory *identity.Registry
	Vault     vault.Store
	Balances  *balance.Ledger
	Notary    notary.Service
	Network   Network
	// RegulatorName is the organization acting as fixed intermediary on
	// every trade.
	RegulatorName string
	Clock         func() time.Time
	Log           *slog.Logger
}

func (n *Node) now() time.Time {
	if n.Clock != nil {
		return n.Clock()
	}

	return time.Now()
}

func (n *Node) logger() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}

	return slog.Default()
}

func participantKeys(parties []state.Party) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, len(parties))
	for i, p := range parties {
		keys[i] = p.Key
	}

	return keys
}

// buildAndSign runs the local stages: contract validation against the local
// copy (fail fast, never a substitute for the counterparties' own checks)
// and the initiator's signature.
func (n *Node) buildAndSign(inst *Instance, t *contract.Transition) (*contract.SignedTransition, error) {
	log := n.logger().With("instance", inst.ID)

	if err := contract.Verify(t, n.now()); err != nil {
		return nil, inst.abort(err)
	}

	inst.Status = StatusLocallyValidated
	log.Debug("transition locally validated")

	payload, err := t.SigningBytes()
	if err != nil {
		return nil, inst.abort(err)
	}

	pkg := contract.NewSignedTransition(t)
	pkg.Signatures = []contract.Signature{{
		Party: n.Identity.Party(),
		Sig:   n.Identity.Sign(payload),
	}}

	inst.Status = StatusSigned
	log.Debug("transition signed")

	return pkg, nil
}

// finalize collects the remaining signatures over one session per target,
// submits the fully-signed package to the notary, and distributes the
// attested record. Collection runs concurrently; the notary submission is
// the single atomic point of truth.
func (n *Node) finalize(ctx context.Context, inst *Instance, pkg *contract.SignedTransition, targets []state.Party) error {
	log := n.logger().With("instance", inst.ID)

	sessions := make([]Session, len(targets))

	for i, target := range targets {
		s, err := n.Network.Open(ctx, target)
		if err != nil {
			return inst.abort(&ResolutionError{Reason: err.Error()})
		}

		sessions[i] = s
	}

	inst.Status = StatusCollecting
	log.Debug("collecting signatures", "targets", len(targets))

	sigs := make([]contract.Signature, len(sessions))

	g, gctx := errgroup.WithContext(ctx)

	for i, s := range sessions {
		g.Go(func() error {
			sig, err := s.RequestSignature(gctx, pkg)
			if err != nil {
				return err
			}

			sigs[i] = sig

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return inst.abort(stageError(err, StatusCollecting))
	}

	pkg.Signatures = append(pkg.Signatures, sigs...)

	inst.Status = StatusNotarizing
	log.Debug("submitting to notary")

	attestation, err := n.Notary.Submit(ctx, pkg)
	if err != nil {
		return inst.abort(stageError(err, StatusNotarizing))
	}

	pkg.Attestation = attestation

	if err := n.Vault.Record(ctx, pkg); err != nil {
		// The notary already committed; surface the recording failure
		// without pretending the transition can be rolled back.
		return inst.abort(stageError(err, StatusNotarizing))
	}

	for i, s := range sessions {
		if err := s.DistributeFinality(ctx, pkg); err != nil {
			log.Warn("failed to distribute finality", "target", targets[i].Name, "error", err)
		}
	}

	inst.Status = StatusFinalized
	inst.Record = pkg
	log.Info("transition finalized", "transition", pkg.ID)

	return nil
}

// stageError maps context expiry to the timeout taxonomy; anything else
// passes through untouched.
func stageError(err error, stage Status) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TimeoutError{Stage: stage, UnknownOutcome: stage == StatusNotarizing}
	}

	return err
}

// resolveUnconsumedProposal resolves exactly one unconsumed proposal by id.
// Zero or several matches is a resolution failure, never a validator
// rejection.
func (n *Node) resolveUnconsumedProposal(ctx context.Context, proposalID string) (*state.Proposal, error) {
	id, err := uuid.Parse(proposalID)
	if err != nil {
		return nil, &ResolutionError{Reason: fmt.Sprintf("invalid proposal id %q", proposalID)}
	}

	recs, err := n.Vault.Proposals(ctx, vault.Filter{Status: vault.StatusUnconsumed, ID: &id})
	if err != nil {
		return nil, err
	}

	if len(recs) != 1 {
		return nil, &ResolutionError{
			Reason: fmt.Sprintf("found %d unconsumed proposals with id %s", len(recs), proposalID),
		}
	}

	return recs[0].Proposal, nil
}
