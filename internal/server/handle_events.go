package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/beastgames/internal/registration"
)

// handleProfileEvents streams the caller's own profile as Server-Sent
// Events. Each "profile" event carries the full document, or null while
// no profile exists.
func handleProfileEvents(logger *slog.Logger, profiles *registration.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		userID := sessionFrom(r).User.ID
		sub, err := profiles.Watch(r.Context(), userID)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		defer sub.Cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case snapshot, ok := <-sub.C:
				if !ok {
					if err := sub.Err(); err != nil {
						logger.Error("profile subscription failed", "user_id", userID, "error", err)
					}
					return
				}
				var payload any
				if len(snapshot) > 0 {
					payload = newProfileResponse(snapshot[0])
				}
				data, err := json.Marshal(payload)
				if err != nil {
					logger.Error("encoding profile event failed", "error", err)
					return
				}
				fmt.Fprintf(w, "event: profile\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
