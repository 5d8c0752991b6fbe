package handler

// RESPONSE HELPERS:
// Every handler answers through these, so the views always get the same
// shapes back:
//
//	success:  writeJSON(w, http.StatusOK, viewModel)
//	failure:  {"error": "conflict", "message": "Este jogo já está na sua lista."}
//
// Store operations return a store.Result instead of an error; writeResult
// turns its classified Err into the status code and its Message into the body.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/store"
)

// maxBodyBytes caps request bodies; the largest legitimate one is a review.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "conflict"
	Message string `json:"message"` // user-facing text
}

// writeJSON sends data with the given status. Headers and status must be set
// before the body is written; Encode writes the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are gone already; all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps an error onto an HTTP status and error kind.
//
// The order matters: a BackendError with code 23505 is also ErrBackend, and
// must be reported as the conflict it is.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case rejectedInput(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrBackend):
		return http.StatusBadGateway, "backend_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// rejectedInput reports a backend refusing the request itself, like wrong
// credentials (400) or a weak password (422).
func rejectedInput(err error) bool {
	var be *apperror.BackendError
	if !errors.As(err, &be) {
		return false
	}
	return be.Status == http.StatusBadRequest || be.Status == http.StatusUnprocessableEntity
}

// writeError maps err to a status and sends it. Typed errors carry a message
// meant for users; anything else gets a generic one so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	msg := "Ocorreu um erro interno."
	var appErr *apperror.AppError
	var backendErr *apperror.BackendError
	if errors.As(err, &appErr) || errors.As(err, &backendErr) {
		msg = apperror.Message(err)
	}
	writeJSON(w, status, ErrorResponse{Error: kind, Message: msg})
}

// writeResult answers a store operation. A successful or canceled result is
// sent as is with 200; a failure keeps the store's message and takes its
// status from Result.Err.
func writeResult(w http.ResponseWriter, r store.Result) {
	if r.OK || r.Canceled {
		writeJSON(w, http.StatusOK, r)
		return
	}
	status, kind := classify(r.Err)
	writeJSON(w, status, ErrorResponse{Error: kind, Message: r.Message})
}

// decodeJSON reads the request body into dst. Unknown fields are rejected so
// typos in patch payloads do not silently update nothing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Corpo da requisição inválido.",
		})
		return false
	}
	return true
}
