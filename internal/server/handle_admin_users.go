package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/registration"
)

// AccessRequest is the request body for PUT /api/admin/users/{id}/access/{game}.
type AccessRequest struct {
	Allowed bool `json:"allowed"`
}

// AccessResponse reports an access flag after a change.
type AccessResponse struct {
	UserID  string          `json:"userId"`
	Game    beastgames.Game `json:"game"`
	Allowed bool            `json:"allowed"`
}

// BatchResponse reports how many profiles a batch operation updated.
type BatchResponse struct {
	Updated int `json:"updated"`
}

func handleAdminListUsers(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := console.Overview(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func handleAdminStats(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := console.Overview(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, o.Stats)
	}
}

func handleAdminToggleAccess(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		game, err := beastgames.ParseGame(chi.URLParam(r, "game"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		allowed, err := console.ToggleAccess(r.Context(), userID, game)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, AccessResponse{UserID: userID, Game: game, Allowed: allowed})
	}
}

func handleAdminSetAccess(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		game, err := beastgames.ParseGame(chi.URLParam(r, "game"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		var req AccessRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := console.SetAccess(r.Context(), userID, game, req.Allowed); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, AccessResponse{UserID: userID, Game: game, Allowed: req.Allowed})
	}
}

func handleAdminResetGame(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := console.ResetGame(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAdminResetUser(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := console.ResetUser(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAdminDeleteUser(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := console.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleAdminGrantAll(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := console.GrantAll(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, BatchResponse{Updated: n})
	}
}

func handleAdminRevokeAll(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := console.RevokeAll(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, BatchResponse{Updated: n})
	}
}

func handleAdminExport(logger *slog.Logger, console *registration.Console) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := console.Users(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+console.ExportFilename()+`"`)
		w.WriteHeader(http.StatusOK)
		if err := console.Export(w, profiles); err != nil {
			logger.Error("writing export failed", "error", err)
		}
	}
}
