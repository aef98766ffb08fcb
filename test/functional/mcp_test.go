package functional_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/spacer/internal/testserver"
	"github.com/stretchr/testify/require"
)

// connectHTTP opens an MCP client session over streamable HTTP.
func connectHTTP(t *testing.T, ts *testserver.TestServer, token string) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: ts.Client(token),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool calls a tool and decodes its text content into out.
func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "Tool %s returned no text content", name)
	require.False(t, result.IsError, "Tool %s error: %s", name, text.Text)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(text.Text), out))
	}
}

func TestFunctional_Authentication(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")

	resp, err := http.Get(ts.Server.URL + "/api/due")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = ts.Client("token").Get(ts.Server.URL + "/api/due")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// MCP authenticates per request, after the handshake.
	session := connectHTTP(t, ts, "")
	_, err = session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "list_due"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
}

func TestFunctional_ReviewWorkflow(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	session := connectHTTP(t, ts, "token")

	var registered struct {
		ID     string `json:"id"`
		NoteID string `json:"note_id"`
	}
	callTool(t, session, "register_card", map[string]any{
		"id": "c1", "note_path": "decks/capitals.md", "prompt": "Capital of Peru?", "answer": "Lima",
	}, &registered)
	require.Equal(t, "c1", registered.ID)

	var reviewed struct {
		State struct {
			IsLearning     bool   `json:"isLearning"`
			NextReviewDate string `json:"nextReviewDate"`
		} `json:"state"`
	}
	callTool(t, session, "submit_review", map[string]any{
		"card_id": "c1", "quality": 2, "reviewed_at": "2024-03-01T09:00:00Z",
	}, &reviewed)
	require.True(t, reviewed.State.IsLearning)
	require.Equal(t, "2024-03-01T09:10:00Z", reviewed.State.NextReviewDate)

	var due struct {
		Count int `json:"count"`
	}
	callTool(t, session, "list_due", map[string]any{"now": "2024-03-01T09:10:00Z"}, &due)
	require.Equal(t, 1, due.Count)

	callTool(t, session, "submit_review", map[string]any{
		"card_id": "c1", "quality": 5, "reviewed_at": "2024-03-01T09:10:00Z",
	}, &reviewed)
	require.False(t, reviewed.State.IsLearning)
	require.Equal(t, "2024-03-02T09:10:00Z", reviewed.State.NextReviewDate)
}

func TestFunctional_ReviewSession(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	session := connectHTTP(t, ts, "token")

	for _, id := range []string{"a", "b"} {
		callTool(t, session, "register_card", map[string]any{"id": id, "prompt": "prompt " + id}, nil)
	}

	var review struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Card struct {
			ID string `json:"id"`
		} `json:"card"`
		Done bool `json:"done"`
	}
	callTool(t, session, "start_review_session", map[string]any{}, &review)
	require.False(t, review.Done)
	sessionID := review.Session.ID

	var answer struct {
		Next struct {
			Done bool `json:"done"`
		} `json:"next"`
	}
	for range 2 {
		var current struct {
			Card struct {
				ID string `json:"id"`
			} `json:"card"`
		}
		callTool(t, session, "current_review", map[string]any{"session_id": sessionID}, &current)
		callTool(t, session, "answer_review", map[string]any{
			"session_id": sessionID, "card_id": current.Card.ID, "quality": 4,
		}, &answer)
	}
	require.True(t, answer.Next.Done)

	var sessions struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	callTool(t, session, "list_review_sessions", map[string]any{}, &sessions)
	require.Empty(t, sessions.Sessions)
}

func TestFunctional_TenantIsolation(t *testing.T) {
	ts := testserver.New(t, "token", "tenant1")
	require.NoError(t, ts.AddAPIKey("other", "tenant2"))

	first := connectHTTP(t, ts, "token")
	second := connectHTTP(t, ts, "other")

	callTool(t, first, "register_card", map[string]any{"id": "c1", "prompt": "mine"}, nil)

	var cards struct {
		Count int `json:"count"`
	}
	callTool(t, second, "list_new", map[string]any{}, &cards)
	require.Zero(t, cards.Count)

	ctx := context.Background()
	result, err := second.CallTool(ctx, &sdkmcp.CallToolParams{Name: "get_card", Arguments: map[string]any{"id": "c1"}})
	require.NoError(t, err)
	require.True(t, result.IsError)
	text := result.Content[0].(*sdkmcp.TextContent).Text
	require.True(t, strings.Contains(text, "CARD_NOT_FOUND"), text)
}
