// Package node serves the identity and ledger endpoints of one node: who it
// is, who its peers are, operator login, and the organization's energy
// balance.
package node

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nferraro/gridswap/internal/http/auth"
	"github.com/nferraro/gridswap/internal/http/respond"
	"github.com/nferraro/gridswap/internal/workflow"
)

type Handler struct {
	node     *workflow.Node
	auth     *auth.Service
	password string
}

func NewHandler(n *workflow.Node, a *auth.Service, password string) *Handler {
	return &Handler{node: n, auth: a, password: password}
}

// PublicRoutes are reachable without a token.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Post("/login", h.login)
}

// Routes are the token-guarded endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/peers", h.peers)
	r.Get("/balance", h.balance)
}

type meResponse struct {
	Org string `json:"org"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, meResponse{Org: h.node.Identity.Name()})
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.auth.Issue(time.Now())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, loginResponse{Token: token})
}

type peerResponse struct {
	Org string `json:"org"`
}

func (h *Handler) peers(w http.ResponseWriter, r *http.Request) {
	parties := h.node.Directory.Peers(h.node.Identity.Name())

	resp := make([]peerResponse, len(parties))
	for i, p := range parties {
		resp[i] = peerResponse{Org: p.Name}
	}

	respond.JSON(w, http.StatusOK, resp)
}

type balanceResponse struct {
	Org      string  `json:"org"`
	Quantity float64 `json:"quantity"`
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	org := h.node.Identity.Name()

	q, err := h.node.Balances.Read(r.Context(), org)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, balanceResponse{Org: org, Quantity: q})
}
