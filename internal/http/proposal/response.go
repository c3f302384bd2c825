package proposal

import (
	"time"

	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/state"
	"github.com/nferraro/gridswap/internal/vault"
)

type proposalResponse struct {
	ID           uuid.UUID          `json:"id"`
	ExternalID   string             `json:"external_id,omitempty"`
	Issuer       string             `json:"issuer"`
	Counterpart  string             `json:"counterpart"`
	Regulator    string             `json:"regulator"`
	Timestamp    time.Time          `json:"timestamp"`
	Energy       float64            `json:"energy"`
	PricePerUnit float64            `json:"price_per_unit"`
	Validity     time.Time          `json:"validity"`
	Type         state.ProposalType `json:"type"`
	Consumed     bool               `json:"consumed"`
	RecordedAt   time.Time          `json:"recorded_at"`
}

func toResponse(rec *vault.ProposalRecord) proposalResponse {
	p := rec.Proposal

	return proposalResponse{
		ID:           p.ID.ID,
		ExternalID:   p.ID.ExternalID,
		Issuer:       p.Issuer.Name,
		Counterpart:  p.Counterpart.Name,
		Regulator:    p.Regulator.Name,
		Timestamp:    p.Timestamp,
		Energy:       p.Energy,
		PricePerUnit: p.PricePerUnit,
		Validity:     p.Validity,
		Type:         p.Type,
		Consumed:     rec.Consumed,
		RecordedAt:   rec.RecordedAt,
	}
}

func toResponseList(recs []*vault.ProposalRecord) []proposalResponse {
	resp := make([]proposalResponse, len(recs))
	for i, rec := range recs {
		resp[i] = toResponse(rec)
	}

	return resp
}
