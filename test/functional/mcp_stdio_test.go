package functional_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// stdioSession wraps an MCP client session for stdio transport testing
type stdioSession struct {
	session *sdkmcp.ClientSession
	cancel  context.CancelFunc
}

func findBinary(t *testing.T) string {
	t.Helper()
	for _, candidate := range []string{"./bin/spacer", "../../bin/spacer"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	t.Skip("Server binary not found. Run 'make build' first.")
	return ""
}

func newStdioSession(t *testing.T, extraEnv ...string) *stdioSession {
	t.Helper()
	binaryPath := findBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Env = append(os.Environ(),
		"SPACER_TRANSPORT=stdio",
		"SPACER_DB_PATH=:memory:",
		"SPACER_AUTH_ENABLED=false",
	)
	cmd.Env = append(cmd.Env, extraEnv...)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		cancel()
	})

	return &stdioSession{session: session, cancel: cancel}
}

func (s *stdioSession) callTool(t *testing.T, name string, args map[string]any) json.RawMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool %s failed", name)
	require.False(t, result.IsError, "Tool %s returned error", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)

	for _, content := range result.Content {
		if textContent, ok := content.(*sdkmcp.TextContent); ok {
			return json.RawMessage(textContent.Text)
		}
	}
	t.Fatalf("Tool %s returned no text content", name)
	return nil
}

func TestStdioFunctional_NotesAndCards(t *testing.T) {
	s := newStdioSession(t)

	s.callTool(t, "create_note", map[string]any{"path": "decks/rivers.md", "tags": []string{"geo"}})
	s.callTool(t, "register_card", map[string]any{"id": "nile", "note_path": "decks/rivers.md", "prompt": "Longest river?"})

	var notes struct {
		Notes []struct {
			Path     string `json:"path"`
			NewCount int    `json:"new_count"`
		} `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "list_notes", map[string]any{}), &notes))
	require.Len(t, notes.Notes, 1)
	require.Equal(t, 1, notes.Notes[0].NewCount)

	var forecast struct {
		Days []json.RawMessage `json:"days"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "forecast", map[string]any{"days": 3}), &forecast))
	require.Len(t, forecast.Days, 3)
}

func TestStdioFunctional_LearningSteps(t *testing.T) {
	s := newStdioSession(t, "SPACER_LEARNING_STEPS=1,5")

	s.callTool(t, "register_card", map[string]any{"id": "c1", "prompt": "prompt"})

	var reviewed struct {
		State struct {
			NextReviewDate string `json:"nextReviewDate"`
		} `json:"state"`
	}
	raw := s.callTool(t, "submit_review", map[string]any{"card_id": "c1", "quality": 0, "reviewed_at": "2024-01-01T00:00:00Z"})
	require.NoError(t, json.Unmarshal(raw, &reviewed))
	require.Equal(t, "2024-01-01T00:01:00Z", reviewed.State.NextReviewDate)

	raw = s.callTool(t, "submit_review", map[string]any{"card_id": "c1", "quality": 1, "reviewed_at": "2024-01-01T00:01:00Z"})
	require.NoError(t, json.Unmarshal(raw, &reviewed))
	require.Equal(t, "2024-01-01T00:06:00Z", reviewed.State.NextReviewDate)
}

func TestStdioFunctional_LogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "spacer.log")
	s := newStdioSession(t, "SPACER_LOG_PATH="+logPath, "SPACER_LOG_LEVEL=debug")

	s.callTool(t, "list_due", map[string]any{})

	require.Eventually(t, func() bool {
		info, err := os.Stat(logPath)
		return err == nil && info.Size() > 0
	}, 5*time.Second, 50*time.Millisecond)
}
