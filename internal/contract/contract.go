// Package contract implements the business-rule validator every participant
// runs against a candidate ledger transition before signing it. Validation
// is a closed function of the transition alone: it never consults balances,
// persisted history or any other external state.
package contract

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nferraro/gridswap/internal/state"
)

// CommandKind names the rule set a transition must satisfy.
type CommandKind string

const (
	ProposalCreate    CommandKind = "proposal/create"
	ProposalEnd       CommandKind = "proposal/end"
	TransactionCreate CommandKind = "transaction/create"
	TransactionIssue  CommandKind = "transaction/issue"
)

// Command couples a rule set with the keys that must sign the transition.
type Command struct {
	Kind    CommandKind         `json:"kind"`
	Signers []ed25519.PublicKey `json:"signers"`
}

// Transition is a candidate ledger update: the states it consumes, the
// states it produces, and the commands governing it.
type Transition struct {
	Inputs   []state.State
	Outputs  []state.State
	Commands []Command
}

type wireTransition struct {
	Inputs   []state.Envelope `json:"inputs"`
	Outputs  []state.Envelope `json:"outputs"`
	Commands []Command        `json:"commands"`
}

func (t *Transition) MarshalJSON() ([]byte, error) {
	wire := wireTransition{
		Inputs:   make([]state.Envelope, len(t.Inputs)),
		Outputs:  make([]state.Envelope, len(t.Outputs)),
		Commands: t.Commands,
	}

	for i, s := range t.Inputs {
		env, err := state.Wrap(s)
		if err != nil {
			return nil, err
		}

		wire.Inputs[i] = env
	}

	for i, s := range t.Outputs {
		env, err := state.Wrap(s)
		if err != nil {
			return nil, err
		}

		wire.Outputs[i] = env
	}

	return json.Marshal(wire)
}

func (t *Transition) UnmarshalJSON(data []byte) error {
	var wire wireTransition
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	t.Inputs = make([]state.State, len(wire.Inputs))
	t.Outputs = make([]state.State, len(wire.Outputs))
	t.Commands = wire.Commands

	for i, env := range wire.Inputs {
		s, err := env.Unwrap()
		if err != nil {
			return err
		}

		t.Inputs[i] = s
	}

	for i, env := range wire.Outputs {
		s, err := env.Unwrap()
		if err != nil {
			return err
		}

		t.Outputs[i] = s
	}

	return nil
}

// SigningBytes is the payload every participant signs: the transition with
// no signatures attached.
func (t *Transition) SigningBytes() ([]byte, error) {
	b, err := t.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("serializing transition for signing: %w", err)
	}

	return b, nil
}

// ValidationError reports the first predicate a candidate transition failed.
type ValidationError struct {
	Rule string
}

func (e *ValidationError) Error() string { return e.Rule }

func reject(rule string) error { return &ValidationError{Rule: rule} }

// Verify checks every command in the transition against its rule set.
// All commands must accept or the whole transition is rejected.
func Verify(t *Transition, now time.Time) error {
	if len(t.Commands) == 0 {
		return reject("transition carries no command")
	}

	for _, cmd := range t.Commands {
		var err error

		switch cmd.Kind {
		case ProposalCreate:
			err = verifyProposalCreate(t, cmd)
		case ProposalEnd:
			err = verifyProposalEnd(t, cmd)
		case TransactionCreate:
			err = verifyTransactionCreate(t, cmd, now)
		case TransactionIssue:
			err = verifyTransactionIssue(t, cmd)
		default:
			err = reject(fmt.Sprintf("unrecognised command %q", cmd.Kind))
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// signedByAll reports whether every participant's key appears in the
// command's signer list.
func signedByAll(cmd Command, participants []state.Party) bool {
	keys := make(map[string]struct{}, len(cmd.Signers))
	for _, k := range cmd.Signers {
		keys[string(k)] = struct{}{}
	}

	for _, p := range participants {
		if _, ok := keys[string(p.Key)]; !ok {
			return false
		}
	}

	return true
}
