package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// FederatedClaims is the payload of an ID token issued by the external
// identity provider.
type FederatedClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SignInFederated verifies idToken and signs in the account it names,
// creating the account on first use. Accounts are keyed by issuer and
// subject, so a changed email keeps the same user id.
func (s *Service) SignInFederated(ctx context.Context, idToken string) (Session, error) {
	if !s.FederatedEnabled() {
		return Session{}, ErrFederatedDisabled
	}
	claims, err := s.verifyIDToken(idToken)
	if err != nil {
		return Session{}, err
	}

	email := normalizeEmail(claims.Email)
	name := strings.TrimSpace(claims.Name)
	issuer := s.cfg.Federated.Issuer

	acct, err := s.findAccount(ctx, issuer, claims.Subject)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		acct = accountData{
			UserID:      uuid.NewString(),
			Email:       email,
			DisplayName: name,
			CreatedAt:   s.now().UTC().Format(time.RFC3339Nano),
		}
		if err := s.insertAccount(ctx, issuer, claims.Subject, acct); err != nil {
			if !isUniqueViolation(err) {
				return Session{}, fmt.Errorf("creating federated account: %w", err)
			}
			// Lost a race with a concurrent first sign-in; use the winner.
			if acct, err = s.findAccount(ctx, issuer, claims.Subject); err != nil {
				return Session{}, err
			}
		}
	case err != nil:
		return Session{}, err
	case acct.Email != email || acct.DisplayName != name:
		acct.Email, acct.DisplayName = email, name
		if err := s.updateAccount(ctx, issuer, claims.Subject, acct); err != nil {
			return Session{}, err
		}
	}

	return s.openSession(ctx, User{ID: acct.UserID, Email: acct.Email, DisplayName: acct.DisplayName})
}

func (s *Service) verifyIDToken(idToken string) (FederatedClaims, error) {
	var claims FederatedClaims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(*jwt.Token) (any, error) {
		return s.cfg.Federated.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Federated.Issuer),
		jwt.WithAudience(s.cfg.Federated.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return FederatedClaims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return FederatedClaims{}, fmt.Errorf("%w: sub is required", ErrInvalidToken)
	}
	if normalizeEmail(claims.Email) == "" {
		return FederatedClaims{}, fmt.Errorf("%w: email is required", ErrInvalidToken)
	}
	return claims, nil
}

func (s *Service) updateAccount(ctx context.Context, provider, subject string, acct accountData) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE accounts SET data = jsonb(?) WHERE provider = ? AND subject = ?`,
		string(data), provider, subject,
	)
	return err
}
