package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/registration"
)

// GameOption is one game as offered to the user.
type GameOption struct {
	Game    beastgames.Game `json:"game"`
	Allowed bool            `json:"allowed"`
}

// GamesResponse is the game-selection view of the caller's profile.
type GamesResponse struct {
	Games          []GameOption              `json:"games"`
	CurrentGame    *beastgames.Game          `json:"currentGame,omitempty"`
	GameSelectedAt string                    `json:"gameSelectedAt,omitempty"`
	State          beastgames.SelectionState `json:"state"`
}

// SelectGameRequest is the request body for POST /api/games/select.
type SelectGameRequest struct {
	Game string `json:"game"`
}

func newGamesResponse(p beastgames.Profile) GamesResponse {
	resp := GamesResponse{
		Games:          make([]GameOption, 0, len(beastgames.Games)),
		CurrentGame:    p.CurrentGame,
		GameSelectedAt: p.GameSelectedAt,
		State:          p.State(),
	}
	for _, g := range beastgames.Games {
		resp.Games = append(resp.Games, GameOption{Game: g, Allowed: p.GameAccess.Allows(g)})
	}
	return resp
}

func handleGetGames(logger *slog.Logger, profiles *registration.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := profiles.Get(r.Context(), sessionFrom(r).User.ID)
		if err != nil {
			writeServiceError(w, logger, profileErr(err))
			return
		}
		writeJSON(w, http.StatusOK, newGamesResponse(p))
	}
}

func handleSelectGame(logger *slog.Logger, selector *registration.Selector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectGameRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		game, err := beastgames.ParseGame(req.Game)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		p, err := selector.Select(r.Context(), sessionFrom(r).User.ID, game)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newGamesResponse(p))
	}
}
