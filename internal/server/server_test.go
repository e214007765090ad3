package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/beastgames/internal/handler/health"
	"github.com/playperu/beastgames/internal/identity"
	"github.com/playperu/beastgames/internal/registration"
	"github.com/playperu/beastgames/internal/store"
	"github.com/playperu/beastgames/internal/testutil"
)

const testAdminEmail = "tgantasa@gitam.in"

type testAPI struct {
	router *chi.Mux
	store  store.Store
}

func newTestAPI(t *testing.T, opts ...func(*Deps)) *testAPI {
	t.Helper()
	db := testutil.OpenDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewSQLiteStore(db)
	resolver := registration.NewAdminResolver(st, []string{testAdminEmail}, logger)

	deps := Deps{
		Logger:   logger,
		Identity: identity.NewService(db, identity.Config{SessionTTL: time.Hour}),
		Resolver: resolver,
		Profiles: registration.NewProfiles(st, resolver, logger),
		Selector: registration.NewSelector(st, logger),
		Console:  registration.NewConsole(st, logger),
		Health: map[string]health.Checker{
			"sqlite": health.CheckerFunc(db.PingContext),
		},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testAPI{router: newRouter(deps), store: st}
}

// do sends a JSON request authenticated with token, if any.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) signUp(t *testing.T, email string) SessionResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/signup", "", SignUpRequest{Email: email, Password: "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("signup %s: status %d: %s", email, w.Code, w.Body.String())
	}
	return decode[SessionResponse](t, w)
}

func (a *testAPI) completeProfile(t *testing.T, token string) {
	t.Helper()
	w := a.do(t, http.MethodPut, "/api/profile", token, map[string]string{
		"name":               "Asha",
		"gitamEmail":         "asha@gitam.in",
		"mobileNumber":       "9876543210",
		"branch":             "CSE",
		"year":               "2",
		"registrationNumber": "121010301001",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("complete profile: status %d: %s", w.Code, w.Body.String())
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, w, http.StatusOK)
	body := decode[map[string]struct{ Status string }](t, w)
	if body["sqlite"].Status != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestHandleOpenAPI(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/openapi.json", "", nil)
	expectStatus(t, w, http.StatusOK)

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("decoding openapi document: %v", err)
	}
	if doc.OpenAPI != "3.1.0" {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}
	for _, p := range []string{"/healthz", "/api/auth/login", "/api/games/select", "/api/admin/users", "/api/admin/users/{id}/access/{game}/toggle"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("openapi document missing path %s", p)
		}
	}
}

func TestSwaggerUI(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/docs/", "", nil)
	expectStatus(t, w, http.StatusOK)
	if !bytes.Contains(w.Body.Bytes(), []byte("/openapi.json")) {
		t.Error("docs page does not reference /openapi.json")
	}
}

func TestStreamingEndpointsRequireSession(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, path := range []string{"/api/profile/events", "/api/admin/users/live"} {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s status = %d, want 401", path, resp.StatusCode)
		}
	}
}
