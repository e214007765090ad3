package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/registration"
	"github.com/playperu/beastgames/internal/store"
)

// ProfileResponse wraps a profile with its derived selection state.
type ProfileResponse struct {
	Profile beastgames.Profile        `json:"profile"`
	State   beastgames.SelectionState `json:"state"`
}

// profileErr reports the caller's missing profile as ErrProfileRequired.
func profileErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return beastgames.ErrProfileRequired
	}
	return err
}

func newProfileResponse(p beastgames.Profile) ProfileResponse {
	return ProfileResponse{Profile: p, State: p.State()}
}

// handleGetProfile also records activity; a profile view counts as a
// heartbeat.
func handleGetProfile(logger *slog.Logger, profiles *registration.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := sessionFrom(r).User.ID

		p, err := profiles.Get(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, profileErr(err))
			return
		}
		if err := profiles.Seen(r.Context(), p); err != nil {
			logger.Debug("recording profile view failed", "user_id", userID, "error", err)
		}

		writeJSON(w, http.StatusOK, newProfileResponse(p))
	}
}

func handlePutProfile(logger *slog.Logger, profiles *registration.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub beastgames.Submission
		if err := readJSON(w, r, &sub); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		p, err := profiles.Complete(r.Context(), identityFrom(r), sub)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileResponse(p))
	}
}

func handleHeartbeat(logger *slog.Logger, profiles *registration.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := profiles.Touch(r.Context(), sessionFrom(r).User.ID); err != nil {
			writeServiceError(w, logger, profileErr(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
