package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/beastgames/internal/handler/health"
)

func addRoutes(r chi.Router, deps Deps) {
	logger := deps.Logger

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Beast Games API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Health).Routes())

	// Auth: public.
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", handleSignUp(logger, deps.Identity, deps.Resolver, deps.CookieSecure))
		r.Post("/login", handleLogin(logger, deps.Identity, deps.Resolver, deps.CookieSecure))
		r.Post("/federated", handleFederated(logger, deps.Identity, deps.Resolver, deps.CookieSecure))
		r.Post("/logout", handleLogout(logger, deps.Identity))
		r.Get("/session", handleSession(logger, deps.Identity, deps.Resolver, deps.Profiles))
	})

	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware(deps.Identity))

		r.Get("/api/profile", handleGetProfile(logger, deps.Profiles))
		r.Put("/api/profile", handlePutProfile(logger, deps.Profiles))
		r.Post("/api/profile/heartbeat", handleHeartbeat(logger, deps.Profiles))
		r.Get("/api/profile/events", handleProfileEvents(logger, deps.Profiles))

		r.Get("/api/games", handleGetGames(logger, deps.Profiles))
		r.Post("/api/games/select", handleSelectGame(logger, deps.Selector))

		// Admin: session plus admin role.
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(adminMiddleware(deps.Resolver))

			r.Get("/users", handleAdminListUsers(logger, deps.Console))
			r.Get("/users/live", handleAdminLive(logger, deps.Console, deps.AllowedOrigins))
			r.Get("/stats", handleAdminStats(logger, deps.Console))
			r.Post("/users/{id}/access/{game}/toggle", handleAdminToggleAccess(logger, deps.Console))
			r.Put("/users/{id}/access/{game}", handleAdminSetAccess(logger, deps.Console))
			r.Post("/users/{id}/reset-game", handleAdminResetGame(logger, deps.Console))
			r.Post("/users/{id}/reset", handleAdminResetUser(logger, deps.Console))
			r.Delete("/users/{id}", handleAdminDeleteUser(logger, deps.Console))
			r.Post("/access/grant-all", handleAdminGrantAll(logger, deps.Console))
			r.Post("/access/revoke-all", handleAdminRevokeAll(logger, deps.Console))
			r.Get("/export.csv", handleAdminExport(logger, deps.Console))
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
