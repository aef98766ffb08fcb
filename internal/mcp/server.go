package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/scheduler"
)

// NoteService defines note operations needed by MCP.
type NoteService interface {
	Create(ctx context.Context, tenantID string, req note.CreateRequest) (*note.Note, error)
	GetOrCreateByPath(ctx context.Context, tenantID, path string) (*note.Note, error)
	List(ctx context.Context, tenantID string, now time.Time) ([]note.NoteSummary, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// CardService defines card operations needed by MCP.
type CardService interface {
	Register(ctx context.Context, tenantID string, req card.RegisterRequest) (*card.Card, error)
	Get(ctx context.Context, tenantID, id string) (*card.Card, error)
	State(ctx context.Context, tenantID, id string) (scheduler.CardState, error)
	Delete(ctx context.Context, tenantID, id string) error
	SubmitReview(ctx context.Context, tenantID string, req card.SubmitRequest) (*card.Card, error)
	StopScheduling(ctx context.Context, tenantID string, req card.StopRequest) (*card.Card, error)
	Due(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error)
	Scheduled(ctx context.Context, tenantID string, now time.Time, opts card.ListOptions) ([]card.CardRef, error)
	New(ctx context.Context, tenantID string, opts card.ListOptions) ([]card.CardRef, error)
	Forecast(ctx context.Context, tenantID string, now time.Time, days int) ([]card.ForecastDay, error)
}

// SessionService defines review session operations needed by MCP.
type SessionService interface {
	Start(ctx context.Context, tenantID string, req session.StartRequest) (*session.Review, error)
	Current(ctx context.Context, tenantID, id string) (*session.Review, error)
	Answer(ctx context.Context, tenantID string, req session.AnswerRequest) (*session.AnswerResult, error)
	Close(ctx context.Context, tenantID, id string) (*session.Session, error)
	ListActive(ctx context.Context, tenantID string) ([]session.SessionInfo, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Notes    NoteService
	Cards    CardService
	Sessions SessionService
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      TenantResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Tenant        string // owner of all data without auth; DefaultTenant when empty
	NewCardLimit  int    // default new cards per review session
	Version       string
	Logger        *slog.Logger
	Now           func() time.Time
}

type tools struct {
	svc          Services
	newCardLimit int
	now          func() time.Time
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "spacer",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is local only, so it always runs unauthenticated
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		tenant := cfg.Tenant
		if tenant == "" {
			tenant = DefaultTenant
		}
		server.AddReceivingMiddleware(noAuthMiddleware(tenant))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	registerTools(server, &tools{svc: cfg.Services, newCardLimit: cfg.NewCardLimit, now: now})

	return server
}
