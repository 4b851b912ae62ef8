package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/liftlog/liftlog/internal/stats"
	"github.com/liftlog/liftlog/internal/workout"
)

// UserStore resolves an identity to a user row.
type UserStore interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine *workout.Engine
	stats  *stats.Aggregator
	store  workout.Store
	users  UserStore
	log    *slog.Logger
	apiKey string
	whois  WhoIser
	router chi.Router
}

// New creates a new Server with all routes configured. An empty apiKey
// disables the API key check (access is then gated by the tailnet alone).
func New(store workout.Store, users UserStore, reader stats.Reader, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		engine: workout.NewEngine(store, log),
		stats:  stats.NewAggregator(reader, log),
		store:  store,
		users:  users,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity resolution from the dev fallback to
// Tailscale WhoIs lookups. Must be called before serving traffic.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Use(s.identity)

		r.Get("/me", s.handleMe)

		r.Post("/exercises", s.handleCreateExercise)
		r.Get("/exercises", s.handleListExercises)

		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}", s.handleGetTemplate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Patch("/", s.handleUpdateSession)
				r.Post("/complete", s.handleCompleteSession)
				r.Post("/supersets", s.handleCreateSuperset)
				r.Post("/exercises", s.handleAddExercise)
				r.Route("/exercises/{exerciseID}", func(r chi.Router) {
					r.Post("/start", s.handleStartExercise)
					r.Post("/complete", s.handleCompleteExercise)
					r.Post("/sets", s.handleLogSet)
					r.Route("/sets/{setID}", func(r chi.Router) {
						r.Patch("/", s.handleUpdateSet)
						r.Post("/rest/start", s.handleStartRest)
						r.Post("/rest/end", s.handleEndRest)
					})
				})
			})
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/overview", s.handleStatsOverview)
			r.Get("/trends", s.handleStatsTrends)
			r.Get("/records", s.handleStatsRecords)
			r.Get("/exercises/{id}", s.handleStatsExercise)
			r.Get("/muscle-groups", s.handleStatsMuscleGroups)
			r.Get("/summary", s.handleStatsSummary)
		})
	})
}
