package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
)

// testStoreContract exercises the behaviour every Store backend shares.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("get missing", func(t *testing.T) {
		st := newStore(t)
		if _, err := st.Get(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		want := sampleProfile("u1", beastgames.RoleUser)
		want.CurrentGame = beastgames.GamePtr(beastgames.GameMind)

		if err := st.Set(ctx, want); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := st.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Name != want.Name || got.GitamEmail != want.GitamEmail || got.Role != want.Role {
			t.Errorf("got %+v, want %+v", got, want)
		}
		if got.CurrentGame == nil || *got.CurrentGame != beastgames.GameMind {
			t.Errorf("CurrentGame = %v", got.CurrentGame)
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		p := sampleProfile("u1", beastgames.RoleUser)
		p.CurrentGame = beastgames.GamePtr(beastgames.GameMind)
		mustSet(t, st, p)

		p.CurrentGame = nil
		p.Role = beastgames.RoleAdmin
		mustSet(t, st, p)

		got, _ := st.Get(ctx, "u1")
		if got.CurrentGame != nil || got.Role != beastgames.RoleAdmin {
			t.Errorf("got %+v, want overwritten document", got)
		}
	})

	t.Run("update sets and removes fields", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		mustSet(t, st, sampleProfile("u1", beastgames.RoleUser))

		err := st.Update(ctx, "u1", Patch{
			Set(beastgames.AccessField(beastgames.GameChance), true),
			Set(beastgames.FieldCurrentGame, beastgames.GameChance),
			Set(beastgames.FieldUpdatedAt, "2025-01-01T00:00:00.000Z"),
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, _ := st.Get(ctx, "u1")
		if !got.GameAccess.Chance || got.GameAccess.Mind {
			t.Errorf("GameAccess = %+v", got.GameAccess)
		}
		if got.CurrentGame == nil || *got.CurrentGame != beastgames.GameChance {
			t.Errorf("CurrentGame = %v", got.CurrentGame)
		}
		if got.Name != "Asha" {
			t.Errorf("untouched field changed: Name = %q", got.Name)
		}

		if err := st.Update(ctx, "u1", Patch{Remove(beastgames.FieldCurrentGame)}); err != nil {
			t.Fatalf("Update remove: %v", err)
		}
		got, _ = st.Get(ctx, "u1")
		if got.CurrentGame != nil {
			t.Errorf("CurrentGame = %v, want removed", *got.CurrentGame)
		}
		if !got.GameAccess.Chance {
			t.Error("removing currentGame should keep access")
		}
	})

	t.Run("update role", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		mustSet(t, st, sampleProfile("u1", beastgames.RoleUser))
		if err := st.Update(ctx, "u1", Patch{Set(beastgames.FieldRole, beastgames.RoleAdmin)}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, _ := st.Get(ctx, "u1")
		if got.Role != beastgames.RoleAdmin {
			t.Errorf("Role = %q", got.Role)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		st := newStore(t)
		err := st.Update(context.Background(), "ghost", Patch{Set(beastgames.FieldLastActive, "x")})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		mustSet(t, st, sampleProfile("u1", beastgames.RoleUser))
		if err := st.Delete(ctx, "u1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := st.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get after delete: %v", err)
		}
		if err := st.Delete(ctx, "u1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete: %v", err)
		}
		all, _ := st.Query(ctx, All())
		if len(all) != 0 {
			t.Errorf("Query after delete = %d profiles", len(all))
		}
	})

	t.Run("batch applies all", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		mustSet(t, st, sampleProfile("u1", beastgames.RoleUser))
		mustSet(t, st, sampleProfile("u2", beastgames.RoleUser))

		err := st.Batch(ctx, []BatchUpdate{
			{ID: "u1", Patch: Patch{Set(beastgames.FieldGameAccess, beastgames.UniformAccess(true))}},
			{ID: "u2", Patch: Patch{Set(beastgames.FieldGameAccess, beastgames.UniformAccess(true))}},
		})
		if err != nil {
			t.Fatalf("Batch: %v", err)
		}
		for _, id := range []string{"u1", "u2"} {
			got, _ := st.Get(ctx, id)
			if got.GameAccess != beastgames.UniformAccess(true) {
				t.Errorf("%s GameAccess = %+v", id, got.GameAccess)
			}
		}
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		mustSet(t, st, sampleProfile("u1", beastgames.RoleUser))

		err := st.Batch(ctx, []BatchUpdate{
			{ID: "u1", Patch: Patch{Set(beastgames.AccessField(beastgames.GameMind), true)}},
			{ID: "ghost", Patch: Patch{Set(beastgames.AccessField(beastgames.GameMind), true)}},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
		got, _ := st.Get(ctx, "u1")
		if got.GameAccess.Mind {
			t.Error("u1 was modified by a failed batch")
		}
	})

	t.Run("query", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		mustSet(t, st, sampleProfile("b", beastgames.RoleUser))
		mustSet(t, st, sampleProfile("a", beastgames.RoleAdmin))

		all, err := st.Query(ctx, All())
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
			t.Errorf("Query(All) = %+v", all)
		}

		one, err := st.Query(ctx, ByID("b"))
		if err != nil || len(one) != 1 || one[0].ID != "b" {
			t.Errorf("Query(ByID) = %+v, %v", one, err)
		}

		none, err := st.Query(ctx, ByID("zzz"))
		if err != nil || len(none) != 0 {
			t.Errorf("Query(missing) = %+v, %v", none, err)
		}
	})

	t.Run("subscribe delivers full snapshots", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		mustSet(t, st, sampleProfile("u1", beastgames.RoleUser))

		sub, err := st.Subscribe(ctx, All())
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer sub.Cancel()

		if got := nextSnapshot(t, sub); len(got) != 1 {
			t.Fatalf("initial snapshot has %d profiles", len(got))
		}

		mustSet(t, st, sampleProfile("u2", beastgames.RoleUser))
		waitFor(t, sub, func(ps []beastgames.Profile) bool { return len(ps) == 2 })

		if err := st.Delete(ctx, "u1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		waitFor(t, sub, func(ps []beastgames.Profile) bool { return len(ps) == 1 && ps[0].ID == "u2" })
	})

	t.Run("subscribe by id", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		sub, err := st.Subscribe(ctx, ByID("u1"))
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer sub.Cancel()

		if got := nextSnapshot(t, sub); len(got) != 0 {
			t.Fatalf("initial snapshot = %+v, want empty", got)
		}
		mustSet(t, st, sampleProfile("u1", beastgames.RoleUser))
		waitFor(t, sub, func(ps []beastgames.Profile) bool { return len(ps) == 1 })

		err = st.Update(ctx, "u1", Patch{Set(beastgames.FieldCurrentGame, beastgames.GameMind)})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		waitFor(t, sub, func(ps []beastgames.Profile) bool {
			return len(ps) == 1 && ps[0].CurrentGame != nil
		})
	})

	t.Run("cancel closes channel", func(t *testing.T) {
		st := newStore(t)
		sub, err := st.Subscribe(context.Background(), All())
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		sub.Cancel()
		sub.Cancel()

		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-sub.C:
				if !ok {
					if sub.Err() != nil {
						t.Errorf("Err() = %v after cancel", sub.Err())
					}
					return
				}
			case <-deadline:
				t.Fatal("channel not closed after Cancel")
			}
		}
	})
}

func sampleProfile(id string, role beastgames.Role) beastgames.Profile {
	access := beastgames.GameAccess{}
	if role == beastgames.RoleAdmin {
		access = beastgames.UniformAccess(true)
	}
	return beastgames.Profile{
		ID:                 id,
		Name:               "Asha",
		Email:              id + "@example.com",
		GitamEmail:         id + "@gitam.in",
		MobileNumber:       "9999999999",
		Branch:             "CSE",
		Year:               "2",
		RegistrationNumber: "REG-" + id,
		Role:               role,
		GameAccess:         access,
		CreatedAt:          "2025-01-01T00:00:00.000Z",
		UpdatedAt:          "2025-01-01T00:00:00.000Z",
	}
}

func mustSet(t *testing.T, st Store, p beastgames.Profile) {
	t.Helper()
	if err := st.Set(context.Background(), p); err != nil {
		t.Fatalf("Set %s: %v", p.ID, err)
	}
}

func nextSnapshot(t *testing.T, sub *Subscription) []beastgames.Profile {
	t.Helper()
	select {
	case ps, ok := <-sub.C:
		if !ok {
			t.Fatalf("subscription closed: %v", sub.Err())
		}
		return ps
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

// waitFor reads snapshots until cond holds. Snapshots may coalesce, so
// intermediate states are not asserted.
func waitFor(t *testing.T, sub *Subscription, cond func([]beastgames.Profile) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ps, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscription closed: %v", sub.Err())
			}
			if cond(ps) {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
		}
	}
}
