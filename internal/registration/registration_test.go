package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/store"
	"github.com/playperu/beastgames/internal/testutil"
)

var testAdmins = []string{"tgantasa@gitam.in", "physicalfitness_vsp@gitam.in"}

var fixedNow = time.Date(2025, 2, 14, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	return store.NewSQLiteStore(testutil.OpenDB(t))
}

// failingStore fails every read and write.
type failingStore struct {
	store.Store
}

var errStoreDown = errors.New("store unavailable")

func (failingStore) Get(context.Context, string) (beastgames.Profile, error) {
	return beastgames.Profile{}, errStoreDown
}

func (failingStore) Set(context.Context, beastgames.Profile) error { return errStoreDown }

func (failingStore) Update(context.Context, string, store.Patch) error { return errStoreDown }

func (failingStore) Query(context.Context, store.Query) ([]beastgames.Profile, error) {
	return nil, errStoreDown
}

func seedUser(t *testing.T, st store.Store, id string, access beastgames.GameAccess) beastgames.Profile {
	t.Helper()
	p := beastgames.MergeProfile(id, nil, beastgames.Submission{
		Name:               "User " + id,
		Email:              id + "@mail.com",
		GitamEmail:         id + "@gitam.in",
		MobileNumber:       "9000000000",
		Branch:             "ECE",
		Year:               "3",
		RegistrationNumber: "R-" + id,
	}, beastgames.RoleUser, fixedNow)
	p.GameAccess = access
	if err := st.Set(context.Background(), p); err != nil {
		t.Fatalf("seeding %s: %v", id, err)
	}
	return p
}

func seedAdmin(t *testing.T, st store.Store, id string) beastgames.Profile {
	t.Helper()
	p := beastgames.NewAdminProfile(id, id+"@gitam.in", "", fixedNow)
	if err := st.Set(context.Background(), p); err != nil {
		t.Fatalf("seeding admin %s: %v", id, err)
	}
	return p
}

func mustGet(t *testing.T, st store.Store, id string) beastgames.Profile {
	t.Helper()
	p, err := st.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	return p
}
