package proposal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nferraro/gridswap/internal/http/respond"
	"github.com/nferraro/gridswap/internal/state"
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
	r.Get("/mine", h.listMine)
	r.Get("/received", h.listReceived)
	r.Post("/", h.create)
	r.Post("/issue", h.issue)
	r.Delete("/{id}", h.end)
}

// parseFilter reads the shared query parameters of the proposal listings.
func parseFilter(r *http.Request) (vault.Filter, error) {
	q := r.URL.Query()

	f := vault.Filter{
		Status:      vault.ParseStatus(q.Get("status")),
		Issuer:      q.Get("issuer"),
		Counterpart: q.Get("counterpart"),
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

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, f vault.Filter) {
	recs, err := h.vault.Proposals(r.Context(), f)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(recs))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondList(w, r, f)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	f.Issuer = h.node.Identity.Name()
	h.respondList(w, r, f)
}

func (h *Handler) listReceived(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	f.Counterpart = h.node.Identity.Name()
	h.respondList(w, r, f)
}

type createProposalRequest struct {
	Counterpart  string             `json:"counterpart"`
	Energy       float64            `json:"energy"`
	PricePerUnit float64            `json:"price_per_unit"`
	Validity     time.Time          `json:"validity"`
	Type         state.ProposalType `json:"type"`
	ExternalID   string             `json:"external_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := h.node.CreateProposal(r.Context(), workflow.ProposalTerms{
		Counterpart:  req.Counterpart,
		Energy:       req.Energy,
		PricePerUnit: req.PricePerUnit,
		Validity:     req.Validity,
		Type:         req.Type,
		ExternalID:   req.ExternalID,
	})
	if err != nil {
		respond.WorkflowError(w, err)
		return
	}

	respond.Success(w, http.StatusCreated,
		fmt.Sprintf("Proposal committed to ledger in transition %s.", inst.Record.ID))
}

type issueRequest struct {
	ProposalID string `json:"proposal_id"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := h.node.IssueTransaction(r.Context(), req.ProposalID)
	if err != nil {
		respond.WorkflowError(w, err)
		return
	}

	respond.Success(w, http.StatusCreated,
		fmt.Sprintf("Transaction issued from proposal %s in transition %s.", req.ProposalID, inst.Record.ID))
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inst, err := h.node.EndProposal(r.Context(), id)
	if err != nil {
		respond.WorkflowError(w, err)
		return
	}

	respond.Success(w, http.StatusOK,
		fmt.Sprintf("Proposal %s ended in transition %s.", id, inst.Record.ID))
}
