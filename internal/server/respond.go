package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rickgao/baserate-arb/internal/ledger"
	"github.com/rickgao/baserate-arb/internal/probability"
	"github.com/rickgao/baserate-arb/internal/research"
	"github.com/rickgao/baserate-arb/internal/scheduler"
)

// errBadRequest marks malformed input.
var errBadRequest = errors.New("bad request")

const maxBodySize = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	respondJSON(w, status, errorResponse{Error: http.StatusText(status), Details: err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, ledger.ErrInvalidOrder),
		errors.Is(err, ledger.ErrInvalidOutcome):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrMarketNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduler.ErrCycleInProgress),
		errors.Is(err, ledger.ErrDuplicatePosition):
		return http.StatusConflict
	case errors.Is(err, scheduler.ErrCollaboratorUnavailable),
		errors.Is(err, scheduler.ErrNoResearcher),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, research.ErrResearchFailed),
		errors.Is(err, probability.ErrInvalidBaseRate):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst unchanged
// when optional is set.
func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: decode body: %w", errBadRequest, err)
	}
	return nil
}
