package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/identity"
	"github.com/playperu/beastgames/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse is returned when a profile submission is
// incomplete.
type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
}

// writeServiceError maps domain errors to HTTP statuses. Anything it does
// not recognise is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *beastgames.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: verr.Error(), Missing: verr.Missing})
	case errors.Is(err, beastgames.ErrInvalidGame):
		writeError(w, http.StatusBadRequest, "invalid game")
	case errors.Is(err, identity.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, beastgames.ErrNoAccess):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, identity.ErrFederatedDisabled):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, beastgames.ErrProfileRequired):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, beastgames.ErrAlreadySelected),
		errors.Is(err, beastgames.ErrProtectedProfile),
		errors.Is(err, identity.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
