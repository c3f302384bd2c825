package state

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Party identifies an organization on the trading network by name and
// signing key. Two parties are the same iff their keys match.
type Party struct {
	Name string            `json:"name"`
	Key  ed25519.PublicKey `json:"key"`
}

func (p Party) Equal(other Party) bool {
	return bytes.Equal(p.Key, other.Key)
}

// LinearID identifies one version of a linear state. The UUID is assigned
// once at creation and never reused. ExternalID is a caller-chosen label
// carried alongside it and is not required to be unique.
type LinearID struct {
	ExternalID string    `json:"external_id,omitempty"`
	ID         uuid.UUID `json:"id"`
}

func NewLinearID(externalID string) LinearID {
	return LinearID{ExternalID: externalID, ID: uuid.New()}
}

func (l LinearID) String() string {
	return l.ID.String()
}

// ProposalType distinguishes the two directions a proposal can take.
type ProposalType string

const (
	TypeAcquisition ProposalType = "acquisition"
	TypeSale        ProposalType = "sale"
)

// Proposal is an offer to trade a fixed energy quantity at a fixed price,
// open until Validity. It is consumed exactly once, either by withdrawal
// or by issuing a Transaction against it.
type Proposal struct {
	Issuer       Party        `json:"issuer"`
	Counterpart  Party        `json:"counterpart"`
	Regulator    Party        `json:"regulator"`
	Timestamp    time.Time    `json:"timestamp"`
	Energy       float64      `json:"energy"`
	PricePerUnit float64      `json:"price_per_unit"`
	Validity     time.Time    `json:"validity"`
	Type         ProposalType `json:"type"`
	ID           LinearID     `json:"linear_id"`
}

func (p *Proposal) Linear() LinearID { return p.ID }

func (p *Proposal) Participants() []Party {
	return []Party{p.Issuer, p.Counterpart, p.Regulator}
}

// Transaction is a settled trade record, optionally derived from a Proposal.
// Once created it is never consumed.
type Transaction struct {
	Buyer        Party     `json:"buyer"`
	Seller       Party     `json:"seller"`
	Regulator    Party     `json:"regulator"`
	Timestamp    time.Time `json:"timestamp"`
	Energy       float64   `json:"energy"`
	PricePerUnit float64   `json:"price_per_unit"`
	TotalPrice   float64   `json:"total_price"`
	// ProposalID is the string form of the consumed Proposal's id, empty
	// when the transaction was created directly.
	ProposalID string   `json:"proposal_id,omitempty"`
	ID         LinearID `json:"linear_id"`
}

func (t *Transaction) Linear() LinearID { return t.ID }

func (t *Transaction) Participants() []Party {
	return []Party{t.Buyer, t.Seller, t.Regulator}
}

// State is one version of a linear, jointly-owned ledger entity.
type State interface {
	Linear() LinearID
	Participants() []Party
}

const (
	KindProposal    = "proposal"
	KindTransaction = "transaction"
)

// Envelope carries a State across the wire with enough typing to decode it.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func Wrap(s State) (Envelope, error) {
	var kind string

	switch s.(type) {
	case *Proposal:
		kind = KindProposal
	case *Transaction:
		kind = KindTransaction
	default:
		return Envelope{}, fmt.Errorf("unknown state type %T", s)
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s state: %w", kind, err)
	}

	return Envelope{Kind: kind, Payload: payload}, nil
}

func (e Envelope) Unwrap() (State, error) {
	switch e.Kind {
	case KindProposal:
		var p Proposal
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("decoding proposal state: %w", err)
		}

		return &p, nil
	case KindTransaction:
		var t Transaction
		if err := json.Unmarshal(e.Payload, &t); err != nil {
			return nil, fmt.Errorf("decoding transaction state: %w", err)
		}

		return &t, nil
	default:
		return nil, fmt.Errorf("unknown state kind %q", e.Kind)
	}
}
