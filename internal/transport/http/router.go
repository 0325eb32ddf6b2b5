// Package httptransport is the thin HTTP layer. Handlers decode requests,
// delegate to domain services, and translate errors; no business logic lives
// here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unionvote/internal/platform/middleware"
	"unionvote/internal/roster"
	"unionvote/pkg/platform/httputil"
)

// Deps collects everything the router needs.
type Deps struct {
	Logger     *slog.Logger
	Validator  middleware.TokenValidator
	Revocation middleware.RevocationChecker

	Auth      AuthService
	Voting    VotingService
	Elections ElectionService
	Reception ReceptionService
	Roster    RosterService
	Tally     TallyService
	Audit     AuditService
}

// NewRouter wires middleware and route groups. Role gates mirror the domain:
// voters cast, reception registers paper votes, admins run elections.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authHandler := &AuthHandler{auth: deps.Auth}
	voteHandler := &VoteHandler{voting: deps.Voting, elections: deps.Elections}
	receptionHandler := &ReceptionHandler{reception: deps.Reception, elections: deps.Elections}
	adminHandler := &AdminHandler{
		elections: deps.Elections,
		roster:    deps.Roster,
		tally:     deps.Tally,
		audit:     deps.Audit,
		stats:     deps.Reception,
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(deps.Validator, deps.Revocation, deps.Logger))
			r.Post("/auth/logout", authHandler.handleLogout)

			r.Route("/vote", func(r chi.Router) {
				r.Use(middleware.RequireRole(deps.Logger, string(roster.RoleVoter)))
				r.Get("/elections", voteHandler.handleListElections)
				r.Post("/submit", voteHandler.handleSubmit)
			})

			r.Route("/reception", func(r chi.Router) {
				r.Use(middleware.RequireRole(deps.Logger, string(roster.RoleReception), string(roster.RoleAdmin)))
				r.Get("/elections", receptionHandler.handleListElections)
				r.Post("/paper-vote", receptionHandler.handleRegisterPaperVote)
				r.Get("/search", receptionHandler.handleSearch)
				r.Get("/status", receptionHandler.handleStatusLookup)
				r.Get("/stats", receptionHandler.handleStats)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(deps.Logger, string(roster.RoleAdmin)))
				r.Post("/elections", adminHandler.handleCreateElection)
				r.Get("/elections", adminHandler.handleListElections)
				r.Put("/elections/{id}/activate", adminHandler.handleActivate)
				r.Put("/elections/{id}/extend", adminHandler.handleExtend)
				r.Post("/count-votes/{id}", adminHandler.handleCount)
				r.Get("/results/{id}", adminHandler.handleResults)
				r.Get("/stats/{id}", adminHandler.handleStats)
				r.Put("/reset-status", adminHandler.handleResetStatus)
				r.Post("/paper-tally", adminHandler.handlePaperTally)
				r.Get("/audit-logs", adminHandler.handleAuditLogs)
				r.Get("/members", adminHandler.handleListMembers)
				r.Post("/members/import", adminHandler.handleImportMembers)
				r.Delete("/members", adminHandler.handleResetMembers)
			})
		})
	})
	return r
}

// actorFromRequest builds the audit actor for the authenticated caller.
func actorFromRequest(r *http.Request) (middleware.Principal, string) {
	principal, _ := middleware.GetPrincipal(r.Context())
	return principal, middleware.ClientIP(r)
}
