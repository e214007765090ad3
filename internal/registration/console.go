package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/store"
)

// Console carries out administrator actions on user profiles. Admin
// profiles are never modified by it.
type Console struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

func NewConsole(st store.Store, logger *slog.Logger) *Console {
	return &Console{store: st, logger: logger, now: time.Now, loc: time.Local}
}

// UserRow is one profile as shown in the admin listing.
type UserRow struct {
	beastgames.Profile
	Online bool                      `json:"online"`
	State  beastgames.SelectionState `json:"state"`
}

type Overview struct {
	Users []UserRow            `json:"users"`
	Stats beastgames.GameStats `json:"stats"`
	// WithAccess counts profiles with at least one game unlocked.
	WithAccess int `json:"withAccess"`
	// WithoutAccess counts non-admin profiles with no game unlocked.
	WithoutAccess int `json:"withoutAccess"`
}

// BuildOverview derives the admin listing from a snapshot of profiles.
func BuildOverview(profiles []beastgames.Profile, now time.Time) Overview {
	o := Overview{
		Users: make([]UserRow, 0, len(profiles)),
		Stats: beastgames.ComputeStats(profiles, now),
	}
	for _, p := range profiles {
		o.Users = append(o.Users, UserRow{
			Profile: p,
			Online:  beastgames.IsOnline(p, now),
			State:   p.State(),
		})
		switch {
		case p.GameAccess.Any():
			o.WithAccess++
		case !p.IsAdmin():
			o.WithoutAccess++
		}
	}
	return o
}

// Overview reads every profile and builds the listing.
func (c *Console) Overview(ctx context.Context) (Overview, error) {
	profiles, err := c.store.Query(ctx, store.All())
	if err != nil {
		return Overview{}, fmt.Errorf("listing profiles: %w", err)
	}
	return BuildOverview(profiles, c.now()), nil
}

// Users returns every profile, admins included.
func (c *Console) Users(ctx context.Context) ([]beastgames.Profile, error) {
	return c.store.Query(ctx, store.All())
}

// Watch streams the whole collection.
func (c *Console) Watch(ctx context.Context) (*store.Subscription, error) {
	return c.store.Subscribe(ctx, store.All())
}

// Now is the clock used for overviews.
func (c *Console) Now() time.Time {
	return c.now()
}

// target loads a profile that console point operations may modify.
func (c *Console) target(ctx context.Context, userID string) (beastgames.Profile, error) {
	p, err := c.store.Get(ctx, userID)
	if err != nil {
		return beastgames.Profile{}, err
	}
	if p.IsAdmin() {
		return beastgames.Profile{}, beastgames.ErrProtectedProfile
	}
	return p, nil
}

func (c *Console) update(ctx context.Context, op, userID string, patch store.Patch) error {
	if _, err := c.target(ctx, userID); err != nil {
		return err
	}
	return c.write(ctx, op, userID, patch)
}

// write stamps updatedAt and applies patch.
func (c *Console) write(ctx context.Context, op, userID string, patch store.Patch) error {
	ctx, span := tracer.Start(ctx, "Console."+op, userAttr(userID))
	defer span.End()

	patch = append(patch, store.Set(beastgames.FieldUpdatedAt, beastgames.FormatTime(c.now())))
	if err := c.store.Update(ctx, userID, patch); err != nil {
		recordErr(span, err)
		c.logger.Error("admin update failed", "op", op, "user_id", userID, "error", err)
		return err
	}
	c.logger.Info("admin update", "op", op, "user_id", userID)
	return nil
}

// ToggleAccess flips one access flag and returns its new value.
func (c *Console) ToggleAccess(ctx context.Context, userID string, game beastgames.Game) (bool, error) {
	if !game.Valid() {
		return false, fmt.Errorf("%w: %q", beastgames.ErrInvalidGame, game)
	}
	p, err := c.target(ctx, userID)
	if err != nil {
		return false, err
	}
	allowed := !p.GameAccess.Allows(game)
	if err := c.write(ctx, "ToggleAccess", userID, store.Patch{
		store.Set(beastgames.AccessField(game), allowed),
	}); err != nil {
		return false, err
	}
	return allowed, nil
}

func (c *Console) SetAccess(ctx context.Context, userID string, game beastgames.Game, allowed bool) error {
	if !game.Valid() {
		return fmt.Errorf("%w: %q", beastgames.ErrInvalidGame, game)
	}
	return c.update(ctx, "SetAccess", userID, store.Patch{
		store.Set(beastgames.AccessField(game), allowed),
	})
}

// ResetGame clears the current selection so the user may choose again.
// Access flags are kept.
func (c *Console) ResetGame(ctx context.Context, userID string) error {
	return c.update(ctx, "ResetGame", userID, store.Patch{
		store.Remove(beastgames.FieldCurrentGame),
		store.Remove(beastgames.FieldGameSelectedAt),
	})
}

// ResetUser revokes all access and clears the selection.
func (c *Console) ResetUser(ctx context.Context, userID string) error {
	return c.update(ctx, "ResetUser", userID, store.Patch{
		store.Set(beastgames.FieldGameAccess, beastgames.UniformAccess(false)),
		store.Remove(beastgames.FieldCurrentGame),
		store.Remove(beastgames.FieldGameSelectedAt),
	})
}

// DeleteUser removes the profile permanently. The identity account is
// left alone; the user is sent back to profile completion on next sign-in.
func (c *Console) DeleteUser(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Console.DeleteUser", userAttr(userID))
	defer span.End()

	if _, err := c.target(ctx, userID); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, userID); err != nil {
		recordErr(span, err)
		c.logger.Error("deleting profile failed", "user_id", userID, "error", err)
		return err
	}
	c.logger.Info("profile deleted", "user_id", userID)
	return nil
}

// GrantAll unlocks every game for every non-admin profile in one atomic
// batch and returns how many profiles were updated.
func (c *Console) GrantAll(ctx context.Context) (int, error) {
	return c.setAllAccess(ctx, "GrantAll", true)
}

// RevokeAll is the inverse of GrantAll. Current selections are kept.
func (c *Console) RevokeAll(ctx context.Context) (int, error) {
	return c.setAllAccess(ctx, "RevokeAll", false)
}

func (c *Console) setAllAccess(ctx context.Context, op string, allowed bool) (int, error) {
	ctx, span := tracer.Start(ctx, "Console."+op)
	defer span.End()

	profiles, err := c.store.Query(ctx, store.All())
	if err != nil {
		recordErr(span, err)
		return 0, fmt.Errorf("listing profiles: %w", err)
	}

	ts := beastgames.FormatTime(c.now())
	var updates []store.BatchUpdate
	for _, p := range profiles {
		if p.IsAdmin() {
			continue
		}
		updates = append(updates, store.BatchUpdate{ID: p.ID, Patch: store.Patch{
			store.Set(beastgames.FieldGameAccess, beastgames.UniformAccess(allowed)),
			store.Set(beastgames.FieldUpdatedAt, ts),
		}})
	}
	if len(updates) == 0 {
		return 0, nil
	}

	if err := c.store.Batch(ctx, updates); err != nil {
		recordErr(span, err)
		c.logger.Error("batch access update failed", "op", op, "users", len(updates), "error", err)
		if errors.Is(err, store.ErrNotFound) {
			// A profile was deleted between the listing and the batch.
			return 0, fmt.Errorf("%s: profiles changed concurrently: %w", op, err)
		}
		return 0, err
	}
	c.logger.Info("batch access update", "op", op, "users", len(updates))
	return len(updates), nil
}

// Export writes profiles as CSV, timestamps in the console's location.
func (c *Console) Export(w io.Writer, profiles []beastgames.Profile) error {
	return beastgames.WriteCSV(w, profiles, c.loc)
}

// ExportFilename names an export made now.
func (c *Console) ExportFilename() string {
	return beastgames.ExportFilename(c.now())
}
