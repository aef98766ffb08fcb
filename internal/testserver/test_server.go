// Package testserver runs the full HTTP stack on an in-memory database.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/mcp"
	"github.com/rpggio/spacer/internal/sqlite"
	"github.com/rpggio/spacer/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	APIKeys  *sqlite.APIKeyRepository
	Token    string
	TenantID string
}

// New serves REST under /api and MCP under /mcp with bearer authentication,
// registering token for tenantID.
func New(t *testing.T, token, tenantID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	activityRepo := sqlite.NewActivityRepository(db)
	cards := card.NewService(sqlite.NewCardRepository(db), activityRepo, nil)
	services := mcp.Services{
		Notes:    note.NewService(sqlite.NewNoteRepository(db), activityRepo, nil),
		Cards:    cards,
		Sessions: session.NewService(cards, sqlite.NewSessionRepository(db), activityRepo, nil),
		Activity: activity.NewService(activityRepo, nil),
	}
	apiKeys := sqlite.NewAPIKeyRepository(db)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      services,
		Resolver:      apiKeys,
		AuthEnabled:   true,
		TransportMode: "http",
		NewCardLimit:  20,
		Version:       "test",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewServer(transport.Options{
		Services:     services,
		Auth:         transport.AuthMiddleware(apiKeys),
		MCP:          mcpHandler,
		NewCardLimit: 20,
		Version:      "test",
	}))

	ts := &TestServer{
		Server:   server,
		DB:       db,
		APIKeys:  apiKeys,
		Token:    token,
		TenantID: tenantID,
	}

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.APIKeys.Create(context.Background(), token, tenantID, "test")
}

// Client returns an HTTP client that sends token as a bearer credential.
func (ts *TestServer) Client(token string) *http.Client {
	return &http.Client{Transport: &bearerTransport{token: token, base: http.DefaultTransport}}
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return b.base.RoundTrip(req)
}
