package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/identity"
	"github.com/playperu/beastgames/internal/registration"
	"github.com/playperu/beastgames/internal/store"
)

// Next-step hints returned to clients after authentication.
const (
	nextLogin        = "login"
	nextProfile      = "profile"
	nextGames        = "games"
	nextConfirmation = "confirmation"
	nextAdmin        = "admin"
)

// SignUpRequest is the request body for POST /api/auth/signup.
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FederatedRequest is the request body for POST /api/auth/federated.
type FederatedRequest struct {
	IDToken string `json:"idToken"`
}

// SessionResponse describes the caller's session and where the client
// should send them next.
type SessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	Token         string          `json:"token,omitempty"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
	User          *identity.User  `json:"user,omitempty"`
	Role          beastgames.Role `json:"role,omitempty"`
	Next          string          `json:"next"`
	// Degraded is set when the role could only be decided from the admin
	// allow-list because the profile store was unavailable.
	Degraded bool `json:"degraded,omitempty"`
}

func nextStep(role beastgames.Role, p *beastgames.Profile) string {
	switch {
	case role == beastgames.RoleAdmin:
		return nextAdmin
	case p == nil:
		return nextProfile
	case p.CurrentGame != nil:
		return nextConfirmation
	default:
		return nextGames
	}
}

// completeSignIn runs admin resolution for a fresh session, sets the
// session cookie and writes the response.
func completeSignIn(w http.ResponseWriter, r *http.Request, resolver *registration.AdminResolver, secure bool, sess identity.Session) {
	res := resolver.Resolve(r.Context(), identityOf(sess.User))

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		Token:         sess.Token,
		ExpiresAt:     &sess.ExpiresAt,
		User:          &sess.User,
		Role:          res.Role,
		Next:          nextStep(res.Role, res.Profile),
		Degraded:      res.Degraded,
	})
}

func handleSignUp(logger *slog.Logger, ident *identity.Service, resolver *registration.AdminResolver, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess, err := ident.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		logger.Info("user signed up", "user_id", sess.User.ID)
		completeSignIn(w, r, resolver, secure, sess)
	}
}

func handleLogin(logger *slog.Logger, ident *identity.Service, resolver *registration.AdminResolver, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess, err := ident.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		completeSignIn(w, r, resolver, secure, sess)
	}
}

func handleFederated(logger *slog.Logger, ident *identity.Service, resolver *registration.AdminResolver, secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FederatedRequest
		if err := readJSON(w, r, &req); err != nil || req.IDToken == "" {
			writeError(w, http.StatusBadRequest, "idToken is required")
			return
		}
		sess, err := ident.SignInFederated(r.Context(), req.IDToken)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				logger.Warn("federated sign-in rejected", "error", err)
			}
			writeServiceError(w, logger, err)
			return
		}
		completeSignIn(w, r, resolver, secure, sess)
	}
}

func handleLogout(logger *slog.Logger, ident *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := sessionToken(r); token != "" {
			if err := ident.SignOut(r.Context(), token); err != nil {
				logger.Error("sign out failed", "error", err)
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleSession never fails on a missing session; it tells the client to
// go to login instead.
func handleSession(logger *slog.Logger, ident *identity.Service, resolver *registration.AdminResolver, profiles *registration.Profiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ident.Session(r.Context(), sessionToken(r))
		if errors.Is(err, identity.ErrInvalidSession) {
			writeJSON(w, http.StatusOK, SessionResponse{Next: nextLogin})
			return
		}
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		id := identityOf(sess.User)
		role := resolver.Role(r.Context(), id)

		var profile *beastgames.Profile
		p, err := profiles.Get(r.Context(), sess.User.ID)
		switch {
		case err == nil:
			profile = &p
		case !errors.Is(err, store.ErrNotFound):
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, SessionResponse{
			Authenticated: true,
			ExpiresAt:     &sess.ExpiresAt,
			User:          &sess.User,
			Role:          role,
			Next:          nextStep(role, profile),
		})
	}
}
