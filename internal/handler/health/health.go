// Package health serves the dependency health endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Timeout bounds a whole health request.
const Timeout = 3 * time.Second

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a ping function, such as (*sql.DB).PingContext, to a
// Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// Result is the outcome of one check.
type Result struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Handler runs every registered check in parallel and answers 503 when
// any of them fails.
type Handler struct {
	checks map[string]Checker
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

// Run executes the checks and reports whether all passed.
func (h *Handler) Run(ctx context.Context) (map[string]Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Result, len(h.checks))
		healthy = true
	)
	for name, c := range h.checks {
		wg.Go(func() {
			start := time.Now()
			err := c.Check(ctx)
			res := Result{Status: StatusOK, LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				h.logger.Error("health check failed", "name", name, "error", err)
				res.Status = StatusError
			}

			mu.Lock()
			defer mu.Unlock()
			results[name] = res
			if err != nil {
				healthy = false
			}
		})
	}
	wg.Wait()
	return results, healthy
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	results, healthy := h.Run(r.Context())
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
