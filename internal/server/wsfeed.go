package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/beastgames/internal/registration"
)

// handleAdminLive streams a fresh registration.Overview over a WebSocket
// every time any profile changes. Client messages are ignored. Browsers
// may only connect from the server's own origin or one matching origins.
func handleAdminLive(logger *slog.Logger, console *registration.Console, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := console.Watch(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		defer sub.Cancel()

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		// CloseRead discards incoming frames and cancels ctx once the peer
		// goes away.
		ctx := conn.CloseRead(r.Context())

		for {
			select {
			case <-ctx.Done():
				return
			case snapshot, ok := <-sub.C:
				if !ok {
					if err := sub.Err(); err != nil {
						logger.Error("admin subscription failed", "error", err)
						conn.Close(websocket.StatusInternalError, "subscription failed")
					}
					return
				}
				o := registration.BuildOverview(snapshot, console.Now())
				writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := wsjson.Write(writeCtx, conn, o)
				cancel()
				if err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
