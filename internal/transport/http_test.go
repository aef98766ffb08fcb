package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rpggio/spacer/internal/domain/activity"
	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/domain/session"
	"github.com/rpggio/spacer/internal/mcp"
	"github.com/rpggio/spacer/internal/sqlite"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestAPI(t *testing.T, auth func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	clock := func() time.Time { return testNow }
	activityRepo := sqlite.NewActivityRepository(db)
	cards := card.NewService(sqlite.NewCardRepository(db), activityRepo, nil, card.WithClock(clock))
	server := httptest.NewServer(NewServer(Options{
		Services: mcp.Services{
			Notes:    note.NewService(sqlite.NewNoteRepository(db), activityRepo, nil),
			Cards:    cards,
			Sessions: session.NewService(cards, sqlite.NewSessionRepository(db), activityRepo, nil, session.WithClock(clock)),
			Activity: activity.NewService(activityRepo, nil),
		},
		Auth:         auth,
		NewCardLimit: 5,
		Version:      "test",
		Now:          clock,
	}))
	t.Cleanup(func() {
		server.Close()
		db.Close()
	})
	return server
}

func do(t *testing.T, server *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out), string(data))
	}
	return resp.StatusCode
}

func TestHTTPServer_Health(t *testing.T) {
	server := newTestAPI(t, nil)

	var health map[string]any
	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/health", "", &health))
	require.Equal(t, "ok", health["status"])
	require.Equal(t, "test", health["version"])
}

func TestHTTPServer_ReviewFlow(t *testing.T) {
	server := newTestAPI(t, nil)

	var c card.Card
	require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/api/cards",
		`{"id":"c1","note_path":"decks/go.md","prompt":"chan?","answer":"pipe","tags":["go"]}`, &c))
	require.Equal(t, "c1", c.ID)

	var listing struct {
		Cards []card.CardRef `json:"cards"`
		Count int            `json:"count"`
	}
	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/api/new?tag=go", "", &listing))
	require.Equal(t, 1, listing.Count)

	at := testNow.Format(time.RFC3339)
	require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/cards/c1/reviews",
		fmt.Sprintf(`{"quality":5,"reviewed_at":%q}`, at), &c))
	require.NotNil(t, c.State)
	require.Equal(t, 1, c.State.Interval)
	require.Equal(t, 2.6, c.State.EF)

	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/api/due", "", &listing))
	require.Zero(t, listing.Count)
	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet,
		"/api/due?now="+testNow.AddDate(0, 0, 2).Format(time.RFC3339), "", &listing))
	require.Equal(t, 1, listing.Count)
	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/api/scheduled", "", &listing))
	require.Equal(t, 1, listing.Count)

	var forecast struct {
		Days []card.ForecastDay `json:"days"`
	}
	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/api/forecast?days=3", "", &forecast))
	require.Len(t, forecast.Days, 3)
	require.Equal(t, 1, forecast.Days[1].Due)

	require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/cards/c1/stop", "", &c))
	require.False(t, c.State.Active)
	require.Len(t, c.State.RatingHistory, 1)

	require.Equal(t, http.StatusNoContent, do(t, server, http.MethodDelete, "/api/cards/c1", "", nil))

	var apiErr mcp.APIError
	require.Equal(t, http.StatusNotFound, do(t, server, http.MethodGet, "/api/cards/c1", "", &apiErr))
	require.Equal(t, "CARD_NOT_FOUND", apiErr.Code)
}

func TestHTTPServer_ErrorMapping(t *testing.T) {
	server := newTestAPI(t, nil)
	require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/api/cards", `{"id":"c1","prompt":"p"}`, nil))

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"rating too high", http.MethodPost, "/api/cards/c1/reviews", `{"quality":6}`, http.StatusBadRequest, "INVALID_RATING"},
		{"rating missing", http.MethodPost, "/api/cards/c1/reviews", `{}`, http.StatusBadRequest, "INVALID_RATING"},
		{"unknown card", http.MethodPost, "/api/cards/nope/reviews", `{"quality":3}`, http.StatusNotFound, "CARD_NOT_FOUND"},
		{"duplicate card", http.MethodPost, "/api/cards", `{"id":"c1","prompt":"p"}`, http.StatusConflict, "DUPLICATE_CARD"},
		{"bad json", http.MethodPost, "/api/notes", `{`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad forecast", http.MethodGet, "/api/forecast?days=0", ``, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad timestamp", http.MethodGet, "/api/due?now=yesterday", ``, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown session", http.MethodGet, "/api/sessions/nope", ``, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"unknown note", http.MethodDelete, "/api/notes/nope", ``, http.StatusNotFound, "NOTE_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var apiErr mcp.APIError
			require.Equal(t, tc.status, do(t, server, tc.method, tc.path, tc.body, &apiErr))
			require.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestHTTPServer_Sessions(t *testing.T) {
	server := newTestAPI(t, nil)
	for _, id := range []string{"a", "b"} {
		require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/api/cards",
			fmt.Sprintf(`{"id":%q,"prompt":"p"}`, id), nil))
	}

	var review session.Review
	require.Equal(t, http.StatusCreated, do(t, server, http.MethodPost, "/api/sessions", `{"new_limit":1}`, &review))
	require.Len(t, review.Session.Queue, 1)
	id := review.Session.ID

	var result session.AnswerResult
	require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/sessions/"+id+"/answer", `{"quality":2}`, &result))
	require.True(t, result.Answered.State.IsLearning)
	require.True(t, result.Next.Done)

	var apiErr mcp.APIError
	require.Equal(t, http.StatusConflict, do(t, server, http.MethodPost, "/api/sessions/"+id+"/answer", `{"stop":true}`, &apiErr))
	require.Equal(t, "SESSION_CLOSED", apiErr.Code)

	var closed session.Session
	require.Equal(t, http.StatusOK, do(t, server, http.MethodPost, "/api/sessions/"+id+"/close", "", &closed))
	require.Equal(t, session.StatusClosed, closed.Status)

	var entries struct {
		Entries []activity.ActivityEntry `json:"entries"`
	}
	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/api/activity?session="+id, "", &entries))
	require.Len(t, entries.Entries, 2)
}

func TestHTTPServer_AuthRequired(t *testing.T) {
	resolver := &testResolver{tokenToTenant: map[string]string{"secret": "tenant1"}}
	server := newTestAPI(t, AuthMiddleware(resolver))

	require.Equal(t, http.StatusOK, do(t, server, http.MethodGet, "/health", "", &map[string]any{}))
	require.Equal(t, http.StatusUnauthorized, do(t, server, http.MethodGet, "/api/notes", "", &mcp.APIError{}))

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/notes", strings.NewReader(`{"path":"a.md"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}
