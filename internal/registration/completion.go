package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/store"
)

// Profiles is the user's own view of their profile document.
type Profiles struct {
	store    store.Store
	resolver *AdminResolver
	logger   *slog.Logger
	now      func() time.Time
}

func NewProfiles(st store.Store, resolver *AdminResolver, logger *slog.Logger) *Profiles {
	return &Profiles{store: st, resolver: resolver, logger: logger, now: time.Now}
}

// Complete validates sub and writes the merged profile for id. An invalid
// submission returns a *beastgames.ValidationError without touching the
// store.
func (s *Profiles) Complete(ctx context.Context, id Identity, sub beastgames.Submission) (beastgames.Profile, error) {
	ctx, span := tracer.Start(ctx, "Profiles.Complete", userAttr(id.UserID))
	defer span.End()

	sub = sub.Normalize()
	if sub.Email == "" {
		sub.Email = id.Email
	}
	if err := sub.Validate(); err != nil {
		return beastgames.Profile{}, err
	}

	var existing *beastgames.Profile
	p, err := s.store.Get(ctx, id.UserID)
	switch {
	case err == nil:
		existing = &p
	case !errors.Is(err, store.ErrNotFound):
		recordErr(span, err)
		return beastgames.Profile{}, fmt.Errorf("reading profile: %w", err)
	}

	role := beastgames.RoleUser
	if existing != nil {
		role = existing.Role
	}
	if s.resolver.IsAllowListed(id.Email) {
		role = beastgames.RoleAdmin
	}

	merged := beastgames.MergeProfile(id.UserID, existing, sub, role, s.now())
	if err := s.store.Set(ctx, merged); err != nil {
		recordErr(span, err)
		s.logger.Error("saving profile failed", "user_id", id.UserID, "error", err)
		return beastgames.Profile{}, fmt.Errorf("saving profile: %w", err)
	}
	s.logger.Info("profile completed", "user_id", id.UserID, "new", existing == nil)
	return merged, nil
}

// Get returns store.ErrNotFound when the user has not completed a profile.
func (s *Profiles) Get(ctx context.Context, userID string) (beastgames.Profile, error) {
	return s.store.Get(ctx, userID)
}

// Touch records activity by setting lastActive to now.
func (s *Profiles) Touch(ctx context.Context, userID string) error {
	err := s.store.Update(ctx, userID, store.Patch{
		store.Set(beastgames.FieldLastActive, beastgames.FormatTime(s.now())),
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("updating last active failed", "user_id", userID, "error", err)
	}
	return err
}

// seenInterval is how stale lastActive must be before a profile view
// rewrites it. It is well inside beastgames.ActiveWindow.
const seenInterval = time.Minute

// Seen records a profile view. Views within seenInterval of the stored
// lastActive are not written, so reads do not wake every subscriber.
func (s *Profiles) Seen(ctx context.Context, p beastgames.Profile) error {
	if t, ok := beastgames.ParseTime(p.LastActive); ok && s.now().Sub(t) < seenInterval {
		return nil
	}
	return s.Touch(ctx, p.ID)
}

// Watch streams the user's own document. Snapshots are empty while no
// profile exists.
func (s *Profiles) Watch(ctx context.Context, userID string) (*store.Subscription, error) {
	return s.store.Subscribe(ctx, store.ByID(userID))
}
