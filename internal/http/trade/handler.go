package trade

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/http/respond"
	"github.com/nferraro/gridswap/internal/vault"
	"github.com/nferraro/gridswap/internal/workflow"
)

type Handler struct {
	node  *workflow.Node
	vault vault.Store
}

func NewHandler(node *workflow.Node, v vault.Store) *Handler {
	return &Handler{node: node, vault: v}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/aggregate", h.aggregate)
	r.Post("/", h.create)
}

func parseFilter(r *http.Request) (vault.Filter, error) {
	q := r.URL.Query()

	f := vault.Filter{
		Status: vault.ParseStatus(q.Get("status")),
		Buyer:  q.Get("buyer"),
		Seller: q.Get("seller"),
	}

	if s := q.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil {
			return f, fmt.Errorf("invalid page %q", s)
		}

		f.Page = page
	}

	if s := q.Get("id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, fmt.Errorf("invalid id %q", s)
		}

		f.ID = &id
	}

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, fmt.Errorf("invalid from %q", s)
		}

		f.From = &t
	}

	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, fmt.Errorf("invalid to %q", s)
		}

		f.To = &t
	}

	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.vault.Transactions(r.Context(), f)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(recs))
}

type aggregateResponse struct {
	TotalSold   float64 `json:"total_sold"`
	TotalBought float64 `json:"total_bought"`
}

// aggregate sums totalPrice over this organization's trades. The regulator
// stands on every trade, so for it both sums run over the whole ledger.
func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) {
	me := h.node.Identity.Name()

	sold := vault.SumFilter{Status: vault.StatusAll, Seller: me}
	bought := vault.SumFilter{Status: vault.StatusAll, Buyer: me}

	if me == h.node.RegulatorName {
		sold = vault.SumFilter{Status: vault.StatusAll}
		bought = vault.SumFilter{Status: vault.StatusAll}
	}

	totalSold, err := h.vault.SumTotalPrice(r.Context(), sold)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	totalBought, err := h.vault.SumTotalPrice(r.Context(), bought)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, aggregateResponse{
		TotalSold:   totalSold,
		TotalBought: totalBought,
	})
}

type createTradeRequest struct {
	Buyer        string    `json:"buyer"`
	Seller       string    `json:"seller"`
	Timestamp    time.Time `json:"timestamp"`
	Energy       float64   `json:"energy"`
	PricePerUnit float64   `json:"price_per_unit"`
	ExternalID   string    `json:"external_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := h.node.CreateTransaction(r.Context(), workflow.TradeTerms{
		Buyer:        req.Buyer,
		Seller:       req.Seller,
		Timestamp:    req.Timestamp,
		Energy:       req.Energy,
		PricePerUnit: req.PricePerUnit,
		ExternalID:   req.ExternalID,
	})
	if err != nil {
		respond.WorkflowError(w, err)
		return
	}

	respond.Success(w, http.StatusCreated,
		fmt.Sprintf("Transaction committed to ledger in transition %s.", inst.Record.ID))
}
