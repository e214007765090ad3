package registration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/store"
)

func newTestSelector(st store.Store) *Selector {
	s := NewSelector(st, discardLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestSelectSequence(t *testing.T) {
	st := newTestStore(t)
	seedUser(t, st, "u1", beastgames.GameAccess{Strength: true})
	sel := newTestSelector(st)
	ctx := context.Background()

	if _, err := sel.Select(ctx, "u1", beastgames.GameMind); !errors.Is(err, beastgames.ErrNoAccess) {
		t.Fatalf("select mind: err = %v, want ErrNoAccess", err)
	}
	if got := mustGet(t, st, "u1"); got.CurrentGame != nil {
		t.Fatal("rejected selection changed the profile")
	}

	p, err := sel.Select(ctx, "u1", beastgames.GameStrength)
	if err != nil {
		t.Fatalf("select strength: %v", err)
	}
	if p.State() != beastgames.StateLocked {
		t.Errorf("state = %s, want locked", p.State())
	}
	stored := mustGet(t, st, "u1")
	if stored.CurrentGame == nil || *stored.CurrentGame != beastgames.GameStrength {
		t.Fatalf("stored currentGame = %v", stored.CurrentGame)
	}
	ts := beastgames.FormatTime(fixedNow)
	if stored.GameSelectedAt != ts || stored.LastActive != ts {
		t.Errorf("timestamps = %s %s", stored.GameSelectedAt, stored.LastActive)
	}

	if _, err := sel.Select(ctx, "u1", beastgames.GameChance); !errors.Is(err, beastgames.ErrAlreadySelected) {
		t.Errorf("select chance: err = %v, want ErrAlreadySelected", err)
	}
	if _, err := sel.Select(ctx, "u1", beastgames.GameStrength); !errors.Is(err, beastgames.ErrAlreadySelected) {
		t.Errorf("reselect strength: err = %v, want ErrAlreadySelected", err)
	}
	if got := mustGet(t, st, "u1"); *got.CurrentGame != beastgames.GameStrength {
		t.Errorf("currentGame changed to %s", *got.CurrentGame)
	}
}

func TestSelectErrors(t *testing.T) {
	st := newTestStore(t)
	seedUser(t, st, "u1", beastgames.UniformAccess(true))
	sel := newTestSelector(st)
	ctx := context.Background()

	if _, err := sel.Select(ctx, "u1", beastgames.Game("speed")); !errors.Is(err, beastgames.ErrInvalidGame) {
		t.Errorf("invalid game: err = %v", err)
	}
	if _, err := sel.Select(ctx, "ghost", beastgames.GameMind); !errors.Is(err, beastgames.ErrProfileRequired) {
		t.Errorf("missing profile: err = %v", err)
	}
	if _, err := newTestSelector(failingStore{}).Select(ctx, "u1", beastgames.GameMind); !errors.Is(err, errStoreDown) {
		t.Errorf("store down: err = %v", err)
	}
}

func TestSelectAfterAdminReset(t *testing.T) {
	st := newTestStore(t)
	seedUser(t, st, "u1", beastgames.UniformAccess(true))
	sel := newTestSelector(st)
	console := newTestConsole(st)
	ctx := context.Background()

	if _, err := sel.Select(ctx, "u1", beastgames.GameMind); err != nil {
		t.Fatalf("first select: %v", err)
	}
	if err := console.ResetGame(ctx, "u1"); err != nil {
		t.Fatalf("ResetGame: %v", err)
	}
	if got := mustGet(t, st, "u1"); got.CurrentGame != nil || got.State() != beastgames.StateAccessGranted {
		t.Fatalf("after reset: %+v", got)
	}
	if _, err := sel.Select(ctx, "u1", beastgames.GameChance); err != nil {
		t.Fatalf("select after reset: %v", err)
	}
}

func TestSelectionSurvivesRevoke(t *testing.T) {
	st := newTestStore(t)
	seedUser(t, st, "u1", beastgames.GameAccess{Chance: true})
	ctx := context.Background()

	if _, err := newTestSelector(st).Select(ctx, "u1", beastgames.GameChance); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := newTestConsole(st).RevokeAll(ctx); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	got := mustGet(t, st, "u1")
	if got.CurrentGame == nil || *got.CurrentGame != beastgames.GameChance || got.GameAccess.Any() {
		t.Errorf("after revoke: %+v", got)
	}
	if got.State() != beastgames.StateLocked {
		t.Errorf("state = %s, want locked", got.State())
	}
}

func TestSelectConcurrentIdentical(t *testing.T) {
	st := newTestStore(t)
	seedUser(t, st, "u1", beastgames.GameAccess{Mind: true})
	sel := newTestSelector(st)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = sel.Select(context.Background(), "u1", beastgames.GameMind)
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, beastgames.ErrAlreadySelected):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok == 0 {
		t.Error("no selection succeeded")
	}
	if got := mustGet(t, st, "u1"); *got.CurrentGame != beastgames.GameMind {
		t.Errorf("currentGame = %s", *got.CurrentGame)
	}
}

// gatedStore blocks Get until release is closed.
type gatedStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Get(ctx context.Context, id string) (beastgames.Profile, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return beastgames.Profile{}, err
	}
	return g.Store.Get(ctx, id)
}

func TestSelectCollapsedCallerSurvivesFirstCancel(t *testing.T) {
	st := newTestStore(t)
	seedUser(t, st, "u1", beastgames.GameAccess{Strength: true})
	gated := &gatedStore{Store: st, entered: make(chan struct{}), release: make(chan struct{})}
	sel := newTestSelector(gated)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := sel.Select(firstCtx, "u1", beastgames.GameStrength)
		firstErr <- err
	}()
	<-gated.entered

	secondErr := make(chan error, 1)
	go func() {
		_, err := sel.Select(context.Background(), "u1", beastgames.GameStrength)
		secondErr <- err
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller: expected context.Canceled, got %v", err)
	}
	close(gated.release)

	if err := <-secondErr; err != nil && !errors.Is(err, beastgames.ErrAlreadySelected) {
		t.Fatalf("second caller: %v", err)
	}
	if got := mustGet(t, st, "u1"); got.CurrentGame == nil || *got.CurrentGame != beastgames.GameStrength {
		t.Errorf("currentGame = %v, want strength", got.CurrentGame)
	}
}
