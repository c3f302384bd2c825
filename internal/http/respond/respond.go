// Package respond writes the API's uniform response envelope. Mutations and
// failures answer with {outcome, message}; queries answer with their domain
// payload directly.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nferraro/gridswap/internal/contract"
	"github.com/nferraro/gridswap/internal/notary"
	"github.com/nferraro/gridswap/internal/workflow"
)

const (
	OutcomeSuccess = "SUCCESS"
	OutcomeError   = "ERROR"
)

type Envelope struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func Success(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Outcome: OutcomeSuccess, Message: message})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Outcome: OutcomeError, Message: message})
}

// WorkflowError maps the protocol error taxonomy to HTTP statuses. Caller
// mistakes answer 4xx; anything unclassified is a 500.
func WorkflowError(w http.ResponseWriter, err error) {
	var (
		validation *contract.ValidationError
		resolution *workflow.ResolutionError
		authz      *workflow.AuthorizationError
		rejection  *workflow.RemoteRejectionError
		conflict   *notary.ConflictError
		timeout    *workflow.TimeoutError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &resolution):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authz):
		Error(w, http.StatusForbidden, err.Error())
	case errors.As(err, &rejection), errors.As(err, &conflict):
		Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &timeout):
		Error(w, http.StatusGatewayTimeout, err.Error())
	default:
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
