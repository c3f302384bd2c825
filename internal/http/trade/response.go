package trade

import (
	"time"

	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/vault"
)

type tradeResponse struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"external_id,omitempty"`
	Buyer        string    `json:"buyer"`
	Seller       string    `json:"seller"`
	Regulator    string    `json:"regulator"`
	Timestamp    time.Time `json:"timestamp"`
	Energy       float64   `json:"energy"`
	PricePerUnit float64   `json:"price_per_unit"`
	TotalPrice   float64   `json:"total_price"`
	ProposalID   string    `json:"proposal_id,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func toResponse(rec *vault.TransactionRecord) tradeResponse {
	tx := rec.Transaction

	return tradeResponse{
		ID:           tx.ID.ID,
		ExternalID:   tx.ID.ExternalID,
		Buyer:        tx.Buyer.Name,
		Seller:       tx.Seller.Name,
		Regulator:    tx.Regulator.Name,
		Timestamp:    tx.Timestamp,
		Energy:       tx.Energy,
		PricePerUnit: tx.PricePerUnit,
		TotalPrice:   tx.TotalPrice,
		ProposalID:   tx.ProposalID,
		RecordedAt:   rec.RecordedAt,
	}
}

func toResponseList(recs []*vault.TransactionRecord) []tradeResponse {
	resp := make([]tradeResponse, len(recs))
	for i, rec := range recs {
		resp[i] = toResponse(rec)
	}

	return resp
}
