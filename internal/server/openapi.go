package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi31"

	"github.com/playperu/beastgames/internal/beastgames"
	"github.com/playperu/beastgames/internal/handler/health"
	"github.com/playperu/beastgames/internal/registration"
)

// HealthResponse maps each dependency to its status.
type HealthResponse map[string]health.Result

type userPath struct {
	ID string `path:"id"`
}

type accessPath struct {
	ID   string `path:"id"`
	Game string `path:"game" enum:"strength,mind,chance"`
}

type setAccessDoc struct {
	accessPath
	AccessRequest
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	respType                           string
	errors                             []int
}

func newOpenAPISpec() *openapi31.Spec {
	r := openapi31.NewReflector()
	r.Spec.Info.Title = "Beast Games API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Registration, game selection and admin console for Beast Games.")

	const sessionNote = " Requires the session cookie or a Bearer token."
	const adminNote = " Requires an admin session."

	ops := []operation{
		{
			method: http.MethodGet, path: "/healthz",
			summary: "Health check", description: "Returns the health status of backend dependencies.",
			resp: HealthResponse{}, errors: []int{http.StatusServiceUnavailable},
		},
		{
			method: http.MethodPost, path: "/api/auth/signup",
			summary: "Sign up", description: "Creates an email/password account and signs in. Sets the session cookie.",
			req: SignUpRequest{}, resp: SessionResponse{},
			errors: []int{http.StatusBadRequest, http.StatusConflict},
		},
		{
			method: http.MethodPost, path: "/api/auth/login",
			summary: "Sign in", description: "Signs in with email and password. Sets the session cookie.",
			req: LoginRequest{}, resp: SessionResponse{},
			errors: []int{http.StatusUnauthorized},
		},
		{
			method: http.MethodPost, path: "/api/auth/federated",
			summary: "Federated sign in", description: "Signs in with an ID token from the configured identity provider.",
			req: FederatedRequest{}, resp: SessionResponse{},
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
		},
		{
			method: http.MethodPost, path: "/api/auth/logout",
			summary: "Sign out", description: "Ends the session and clears the cookie.",
		},
		{
			method: http.MethodGet, path: "/api/auth/session",
			summary: "Current session", description: "Returns the session, the caller's role and the next screen to show.",
			resp: SessionResponse{},
		},
		{
			method: http.MethodGet, path: "/api/profile",
			summary: "Get own profile", description: "Returns the caller's profile and records activity." + sessionNote,
			resp: ProfileResponse{}, errors: []int{http.StatusUnauthorized, http.StatusNotFound},
		},
		{
			method: http.MethodPut, path: "/api/profile",
			summary: "Complete profile", description: "Saves the caller's identity fields. All fields are required." + sessionNote,
			req: beastgames.Submission{}, resp: ProfileResponse{},
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized},
		},
		{
			method: http.MethodPost, path: "/api/profile/heartbeat",
			summary: "Heartbeat", description: "Marks the caller as active." + sessionNote,
			errors: []int{http.StatusUnauthorized, http.StatusNotFound},
		},
		{
			method: http.MethodGet, path: "/api/profile/events",
			summary: "Profile event stream", description: "Server-Sent Events stream of the caller's profile." + sessionNote,
			respType: "text/event-stream",
		},
		{
			method: http.MethodGet, path: "/api/games",
			summary: "Game access", description: "Returns which games the caller may choose and the current selection." + sessionNote,
			resp: GamesResponse{}, errors: []int{http.StatusUnauthorized, http.StatusNotFound},
		},
		{
			method: http.MethodPost, path: "/api/games/select",
			summary: "Select game", description: "Locks the caller into one game. A selection cannot be changed." + sessionNote,
			req: SelectGameRequest{}, resp: GamesResponse{},
			errors: []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		},
		{
			method: http.MethodGet, path: "/api/admin/users",
			summary: "List users", description: "Returns every profile with online flags, stats and access counts." + adminNote,
			resp: registration.Overview{}, errors: []int{http.StatusUnauthorized, http.StatusForbidden},
		},
		{
			method: http.MethodGet, path: "/api/admin/stats",
			summary: "Game stats", description: "Returns user totals and the game distribution." + adminNote,
			resp: beastgames.GameStats{}, errors: []int{http.StatusUnauthorized, http.StatusForbidden},
		},
		{
			method: http.MethodGet, path: "/api/admin/users/live",
			summary: "Live user feed", description: "Upgrades to a WebSocket that sends the user listing on every change." + adminNote,
			respType: "application/json",
		},
		{
			method: http.MethodPost, path: "/api/admin/users/{id}/access/{game}/toggle",
			summary: "Toggle access", description: "Flips one game access flag." + adminNote,
			req: accessPath{}, resp: AccessResponse{},
			errors: []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		},
		{
			method: http.MethodPut, path: "/api/admin/users/{id}/access/{game}",
			summary: "Set access", description: "Sets one game access flag." + adminNote,
			req: setAccessDoc{}, resp: AccessResponse{},
			errors: []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		},
		{
			method: http.MethodPost, path: "/api/admin/users/{id}/reset-game",
			summary: "Reset game", description: "Clears the user's selection so they may choose again." + adminNote,
			req:    userPath{},
			errors: []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		},
		{
			method: http.MethodPost, path: "/api/admin/users/{id}/reset",
			summary: "Reset user", description: "Revokes all access and clears the selection." + adminNote,
			req:    userPath{},
			errors: []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		},
		{
			method: http.MethodDelete, path: "/api/admin/users/{id}",
			summary: "Delete user", description: "Deletes the user's profile permanently." + adminNote,
			req:    userPath{},
			errors: []int{http.StatusForbidden, http.StatusNotFound, http.StatusConflict},
		},
		{
			method: http.MethodPost, path: "/api/admin/access/grant-all",
			summary: "Grant all", description: "Unlocks every game for every non-admin user." + adminNote,
			resp: BatchResponse{}, errors: []int{http.StatusForbidden},
		},
		{
			method: http.MethodPost, path: "/api/admin/access/revoke-all",
			summary: "Revoke all", description: "Locks every game for every non-admin user." + adminNote,
			resp: BatchResponse{}, errors: []int{http.StatusForbidden},
		},
		{
			method: http.MethodGet, path: "/api/admin/export.csv",
			summary: "Export users", description: "Downloads every profile as CSV." + adminNote,
			respType: "text/csv",
		},
	}

	for _, op := range ops {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		switch {
		case op.respType != "":
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType(op.respType))
		case op.resp != nil:
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(http.StatusOK))
		default:
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
		}
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
