package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/identity"
	"github.com/playperu/beastgames/internal/registration"
)

type ctxKey int

const (
	ctxKeySession ctxKey = iota
)

const sessionCookieName = "session"

// sessionToken reads the session cookie, falling back to a Bearer header
// for non-browser clients.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token
}

func sessionMiddleware(ident *identity.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := ident.Session(r.Context(), sessionToken(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeySession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// adminMiddleware must run after sessionMiddleware.
func adminMiddleware(resolver *registration.AdminResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver.Role(r.Context(), identityFrom(r)) != beastgames.RoleAdmin {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionFrom(r *http.Request) identity.Session {
	return r.Context().Value(ctxKeySession).(identity.Session)
}

func identityFrom(r *http.Request) registration.Identity {
	return identityOf(sessionFrom(r).User)
}

func identityOf(u identity.User) registration.Identity {
	return registration.Identity{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}
