package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/spacer/internal/mcp"
)

// Options wires the HTTP server.
type Options struct {
	Services mcp.Services
	// Auth resolves the tenant. Nil assigns every request to mcp.DefaultTenant.
	Auth func(http.Handler) http.Handler
	// MCP is mounted at /mcp when set.
	MCP          http.Handler
	NewCardLimit int
	Version      string
	Logger       *slog.Logger
	Now          func() time.Time
}

// Server serves the REST API.
type Server struct {
	svc          mcp.Services
	newCardLimit int
	version      string
	started      time.Time
	logger       *slog.Logger
	now          func() time.Time
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	s := &Server{
		svc:          opts.Services,
		newCardLimit: opts.NewCardLimit,
		version:      opts.Version,
		started:      time.Now(),
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	auth := opts.Auth
	if auth == nil {
		auth = StaticTenantMiddleware(mcp.DefaultTenant)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/health", s.handleHealth)

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)

		r.Post("/notes", s.handleCreateNote)
		r.Get("/notes", s.handleListNotes)
		r.Delete("/notes/{noteID}", s.handleDeleteNote)

		r.Post("/cards", s.handleRegisterCard)
		r.Get("/cards/{cardID}", s.handleGetCard)
		r.Delete("/cards/{cardID}", s.handleDeleteCard)
		r.Post("/cards/{cardID}/reviews", s.handleSubmitReview)
		r.Post("/cards/{cardID}/stop", s.handleStopScheduling)

		r.Get("/due", s.handleDue)
		r.Get("/scheduled", s.handleScheduled)
		r.Get("/new", s.handleNew)
		r.Get("/forecast", s.handleForecast)

		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{sessionID}", s.handleCurrentReview)
		r.Post("/sessions/{sessionID}/answer", s.handleAnswer)
		r.Post("/sessions/{sessionID}/close", s.handleCloseSession)

		r.Get("/activity", s.handleActivity)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	})
}
