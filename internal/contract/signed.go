package contract

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/identity"
	"github.com/nferraro/gridswap/internal/state"
)

// Signature is one participant's signature over a transition's signing bytes.
type Signature struct {
	Party state.Party `json:"party"`
	Sig   []byte      `json:"sig"`
}

// SignedTransition is a candidate transition together with the signatures
// collected so far and, once notarized, the notary's attestation.
type SignedTransition struct {
	ID          uuid.UUID   `json:"id"`
	Transition  *Transition `json:"transition"`
	Signatures  []Signature `json:"signatures"`
	Attestation []byte      `json:"attestation,omitempty"`
}

func NewSignedTransition(t *Transition) *SignedTransition {
	return &SignedTransition{ID: uuid.New(), Transition: t}
}

func (st *SignedTransition) SignedBy(p state.Party) bool {
	for _, sig := range st.Signatures {
		if sig.Party.Equal(p) {
			return true
		}
	}

	return false
}

// VerifySignatures checks every attached signature against the transition's
// signing bytes.
func (st *SignedTransition) VerifySignatures() error {
	payload, err := st.Transition.SigningBytes()
	if err != nil {
		return err
	}

	for _, sig := range st.Signatures {
		if !identity.Verify(sig.Party, payload, sig.Sig) {
			return fmt.Errorf("invalid signature from %s", sig.Party.Name)
		}
	}

	return nil
}

// FullySigned reports whether every key required by the transition's
// commands has a matching signature.
func (st *SignedTransition) FullySigned() error {
	if err := st.VerifySignatures(); err != nil {
		return err
	}

	signed := make(map[string]struct{}, len(st.Signatures))
	for _, sig := range st.Signatures {
		signed[string(sig.Party.Key)] = struct{}{}
	}

	for _, cmd := range st.Transition.Commands {
		for _, key := range cmd.Signers {
			if _, ok := signed[string(key)]; !ok {
				return fmt.Errorf("missing a required signature for command %s", cmd.Kind)
			}
		}
	}

	return nil
}
