package registration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/store"
)

// Resolution is the outcome of admin resolution for one sign-in.
type Resolution struct {
	Role beastgames.Role
	// Profile is the stored profile after resolution, nil when the user
	// has none yet or the store could not be read.
	Profile *beastgames.Profile
	// Degraded is set when the store failed and the role was decided from
	// the allow-list alone.
	Degraded bool
}

// AdminResolver decides a signed-in user's role and provisions profiles for
// allow-listed administrators.
type AdminResolver struct {
	store  store.Store
	admins map[string]struct{}
	logger *slog.Logger
	now    func() time.Time
}

// NewAdminResolver trims and lower-cases the configured emails, the form
// identity stores them in.
func NewAdminResolver(st store.Store, adminEmails []string, logger *slog.Logger) *AdminResolver {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AdminResolver{store: st, admins: admins, logger: logger, now: time.Now}
}

// IsAllowListed matches email exactly against the normalised list.
func (r *AdminResolver) IsAllowListed(email string) bool {
	_, ok := r.admins[email]
	return ok
}

// Resolve runs once per sign-in. Allow-listed users get an admin profile,
// created or promoted as needed; everyone else keeps their stored role.
// It never fails: store errors downgrade to an allow-list decision.
func (r *AdminResolver) Resolve(ctx context.Context, id Identity) Resolution {
	ctx, span := tracer.Start(ctx, "AdminResolver.Resolve", userAttr(id.UserID))
	defer span.End()

	listed := r.IsAllowListed(id.Email)
	fallback := Resolution{Role: beastgames.RoleUser, Degraded: true}
	if listed {
		fallback.Role = beastgames.RoleAdmin
	}

	p, err := r.store.Get(ctx, id.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if !listed {
			return Resolution{Role: beastgames.RoleUser}
		}
		created := beastgames.NewAdminProfile(id.UserID, id.Email, id.DisplayName, r.now())
		if err := r.store.Set(ctx, created); err != nil {
			recordErr(span, err)
			r.logger.Error("provisioning admin profile failed", "user_id", id.UserID, "error", err)
			return fallback
		}
		r.logger.Info("admin profile provisioned", "user_id", id.UserID, "email", id.Email)
		return Resolution{Role: beastgames.RoleAdmin, Profile: &created}
	case err != nil:
		recordErr(span, err)
		r.logger.Error("reading profile for admin resolution failed", "user_id", id.UserID, "error", err)
		return fallback
	}

	if !listed || p.IsAdmin() {
		return Resolution{Role: p.Role, Profile: &p}
	}

	promoted := beastgames.PromoteToAdmin(p, r.now())
	if err := r.store.Set(ctx, promoted); err != nil {
		recordErr(span, err)
		r.logger.Error("promoting profile to admin failed", "user_id", id.UserID, "error", err)
		return fallback
	}
	r.logger.Info("profile promoted to admin", "user_id", id.UserID, "email", id.Email)
	return Resolution{Role: beastgames.RoleAdmin, Profile: &promoted}
}

// Role applies the same precedence as Resolve without writing.
func (r *AdminResolver) Role(ctx context.Context, id Identity) beastgames.Role {
	if r.IsAllowListed(id.Email) {
		return beastgames.RoleAdmin
	}
	p, err := r.store.Get(ctx, id.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("reading role failed", "user_id", id.UserID, "error", err)
		}
		return beastgames.RoleUser
	}
	return p.Role
}
