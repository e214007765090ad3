package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/store"
)

// Selector locks a user into one game. A selection can only be undone by
// an admin reset.
type Selector struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group
}

func NewSelector(st store.Store, logger *slog.Logger) *Selector {
	return &Selector{store: st, logger: logger, now: time.Now}
}

// Select sets the user's current game. It fails with ErrInvalidGame,
// ErrProfileRequired, ErrAlreadySelected or ErrNoAccess, in that order of
// checking, and leaves the profile untouched on any of them.
//
// The check and the write are not atomic; concurrent selections from
// different sessions are last-write-wins.
func (s *Selector) Select(ctx context.Context, userID string, game beastgames.Game) (beastgames.Profile, error) {
	if !game.Valid() {
		return beastgames.Profile{}, fmt.Errorf("%w: %q", beastgames.ErrInvalidGame, game)
	}

	// The shared call outlives any single caller: one collapsed request
	// going away must not fail the others.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(userID+"/"+string(game), func() (any, error) {
		return s.selectGame(shared, userID, game)
	})
	select {
	case <-ctx.Done():
		return beastgames.Profile{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return beastgames.Profile{}, res.Err
		}
		return res.Val.(beastgames.Profile), nil
	}
}

func (s *Selector) selectGame(ctx context.Context, userID string, game beastgames.Game) (beastgames.Profile, error) {
	ctx, span := tracer.Start(ctx, "Selector.Select", userAttr(userID))
	defer span.End()

	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return beastgames.Profile{}, beastgames.ErrProfileRequired
	}
	if err != nil {
		recordErr(span, err)
		return beastgames.Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	if err := p.CanSelect(game); err != nil {
		return beastgames.Profile{}, err
	}

	ts := beastgames.FormatTime(s.now())
	err = s.store.Update(ctx, userID, store.Patch{
		store.Set(beastgames.FieldCurrentGame, game),
		store.Set(beastgames.FieldGameSelectedAt, ts),
		store.Set(beastgames.FieldLastActive, ts),
	})
	if errors.Is(err, store.ErrNotFound) {
		return beastgames.Profile{}, beastgames.ErrProfileRequired
	}
	if err != nil {
		recordErr(span, err)
		s.logger.Error("saving game selection failed", "user_id", userID, "game", game, "error", err)
		return beastgames.Profile{}, fmt.Errorf("saving selection: %w", err)
	}

	p.CurrentGame = beastgames.GamePtr(game)
	p.GameSelectedAt = ts
	p.LastActive = ts
	s.logger.Info("game selected", "user_id", userID, "game", game)
	return p, nil
}
