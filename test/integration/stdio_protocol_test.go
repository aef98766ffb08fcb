package integration_test

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func serverBinary(t *testing.T) string {
	t.Helper()
	for _, candidate := range []string{"./bin/spacer", "../../bin/spacer"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	t.Skip("Server binary not found. Run 'make build' first.")
	return ""
}

// TestStdioProtocolCompliance verifies the server works correctly over stdio transport
// using the official MCP SDK client.
func TestStdioProtocolCompliance(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Env = append(os.Environ(),
		"SPACER_TRANSPORT=stdio",
		"SPACER_DB_PATH=:memory:",
	)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "spacer", initResult.ServerInfo.Name)
		require.NotEmpty(t, initResult.Instructions)
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "tools/list failed")

		toolNames := make(map[string]bool)
		for _, tool := range tools.Tools {
			toolNames[tool.Name] = true
		}
		for _, name := range []string{
			"register_card",
			"submit_review",
			"stop_scheduling",
			"list_due",
			"start_review_session",
			"answer_review",
		} {
			require.True(t, toolNames[name], "Missing expected tool: %s", name)
		}
	})

	t.Run("ReadSchedulingDoc", func(t *testing.T) {
		res, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "spacer://docs/scheduling"})
		require.NoError(t, err)
		require.NotEmpty(t, res.Contents)
		require.Contains(t, res.Contents[0].Text, "learning")
	})

	t.Run("InvalidRatingIsToolError", func(t *testing.T) {
		_, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "register_card",
			Arguments: map[string]any{"id": "c1", "prompt": "prompt"},
		})
		require.NoError(t, err)

		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "submit_review",
			Arguments: map[string]any{"card_id": "c1", "quality": 7},
		})
		require.NoError(t, err)
		require.True(t, result.IsError)
		text := result.Content[0].(*sdkmcp.TextContent).Text
		require.Contains(t, text, "INVALID_RATING")
	})
}

// TestStdioProtocol_StdoutHygiene verifies that the server doesn't write
// anything to stdout except valid JSON-RPC messages.
func TestStdioProtocol_StdoutHygiene(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Run server with a simple initialize request and capture stdout/stderr
	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Env = append(os.Environ(),
		"SPACER_TRANSPORT=stdio",
		"SPACER_DB_PATH=:memory:",
		"SPACER_LOG_LEVEL=debug",
	)

	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)

	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)

	stderr, err := cmd.StderrPipe()
	require.NoError(t, err)

	err = cmd.Start()
	require.NoError(t, err)

	// Send initialize request and keep stdin open for a bit
	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`
	_, err = stdin.Write([]byte(initReq + "\n"))
	require.NoError(t, err)

	// Read output with timeout (don't close stdin yet)
	done := make(chan struct{})
	var stdoutBytes, stderrBytes []byte

	go func() {
		stdoutBytes, _ = readWithTimeout(stdout, 2*time.Second)
		stderrBytes, _ = readWithTimeout(stderr, 2*time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cmd.Process.Kill()
		t.Fatal("Timeout waiting for server response")
	}

	// Now close stdin
	stdin.Close()
	cmd.Process.Kill()
	cmd.Wait()

	// Verify stdout starts with valid JSON
	require.NotEmpty(t, stdoutBytes, "Server produced no stdout output")
	require.True(t, stdoutBytes[0] == '{', "First character of stdout should be '{', got: %q", string(stdoutBytes[:min(50, len(stdoutBytes))]))

	// Logs should be on stderr (if any)
	t.Logf("Stderr output (logs): %s", string(stderrBytes))
}

func readWithTimeout(r interface{ Read([]byte) (int, error) }, timeout time.Duration) ([]byte, error) {
	result := make([]byte, 0, 4096)
	buf := make([]byte, 1024)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		// Try to read
		done := make(chan struct{})
		var n int
		var err error
		go func() {
			n, err = r.Read(buf)
			close(done)
		}()

		select {
		case <-done:
			if n > 0 {
				result = append(result, buf[:n]...)
			}
			if err != nil {
				return result, err
			}
		case <-time.After(100 * time.Millisecond):
			// No data available, check if we have enough
			if len(result) > 0 {
				return result, nil
			}
		}
	}
	return result, nil
}
