// Package identity signs users in and tracks their sessions. Accounts are
// either email/password or federated through a signed ID token, and every
// account maps to one user id.
package identity

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid identity token")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrFederatedDisabled  = errors.New("federated sign-in is not configured")
)

const (
	MinPasswordLength = 6

	providerPassword = "password"
)

// User is the identity attached to a session.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FederatedConfig verifies HS256 ID tokens. Federated sign-in is off while
// Secret is empty.
type FederatedConfig struct {
	Issuer   string
	Audience string
	Secret   []byte
}

type Config struct {
	SessionTTL time.Duration
	Federated  FederatedConfig
}

// Service persists accounts and sessions in the accounts and sessions
// tables created by the migrations package.
type Service struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

func NewService(db *sql.DB, cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return &Service{db: db, cfg: cfg, now: time.Now}
}

// FederatedEnabled reports whether SignInFederated can succeed.
func (s *Service) FederatedEnabled() bool {
	return len(s.cfg.Federated.Secret) > 0
}

type accountData struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

type sessionData struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers an email/password account under a new user id and
// opens a session for it.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return Session{}, ErrWeakPassword
	}

	if _, err := s.findAccount(ctx, providerPassword, email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hashing password: %w", err)
	}

	acct := accountData{
		UserID:       uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.insertAccount(ctx, providerPassword, email, acct); err != nil {
		if isUniqueViolation(err) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, err
	}
	return s.openSession(ctx, User{ID: acct.UserID, Email: acct.Email, DisplayName: acct.DisplayName})
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	acct, err := s.findAccount(ctx, providerPassword, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.openSession(ctx, User{ID: acct.UserID, Email: acct.Email, DisplayName: acct.DisplayName})
}

// SignOut ends the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, token)
	return err
}

// Session resolves a token to its session. Expired sessions are removed.
func (s *Service) Session(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidSession
	}

	var userID, expiresAt, data string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at, json(data) FROM sessions WHERE id = ?`, token,
	).Scan(&userID, &expiresAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidSession
	}
	if err != nil {
		return Session{}, err
	}

	expires, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("parsing session expiry: %w", err)
	}
	if !s.now().Before(expires) {
		if err := s.SignOut(ctx, token); err != nil {
			return Session{}, err
		}
		return Session{}, ErrInvalidSession
	}

	var sd sessionData
	if err := json.Unmarshal([]byte(data), &sd); err != nil {
		return Session{}, fmt.Errorf("decoding session: %w", err)
	}
	return Session{
		Token:     token,
		User:      User{ID: userID, Email: sd.Email, DisplayName: sd.DisplayName},
		ExpiresAt: expires,
	}, nil
}

func (s *Service) openSession(ctx context.Context, u User) (Session, error) {
	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	now := s.now().UTC()
	expires := now.Add(s.cfg.SessionTTL)

	data, err := json.Marshal(sessionData{
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Session{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, data) VALUES (?, ?, ?, jsonb(?))`,
		token, u.ID, expires.Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	return Session{Token: token, User: u, ExpiresAt: expires}, nil
}

func (s *Service) findAccount(ctx context.Context, provider, subject string) (accountData, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM accounts WHERE provider = ? AND subject = ?`, provider, subject,
	).Scan(&data)
	if err != nil {
		return accountData{}, err
	}
	var acct accountData
	if err := json.Unmarshal([]byte(data), &acct); err != nil {
		return accountData{}, fmt.Errorf("decoding account: %w", err)
	}
	return acct, nil
}

func (s *Service) insertAccount(ctx context.Context, provider, subject string, acct accountData) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, provider, subject, data) VALUES (?, ?, ?, jsonb(?))`,
		uuid.NewString(), provider, subject, string(data),
	)
	return err
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
