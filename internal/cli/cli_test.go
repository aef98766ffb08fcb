package cli

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SPACER_CONFIG_PATH", "")
	t.Setenv("SPACER_LOG_PATH", "")
	t.Setenv("SPACER_LEARNING_STEPS", "")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, db, args...)
	require.NoError(t, err, "spacer %s", strings.Join(args, " "))
	return out
}

func TestReviewWorkflow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "spacer.db")

	out := mustRun(t, db, "note", "add", "decks/go.md", "--title", "Go")
	require.Contains(t, out, "created note decks/go.md")

	out = mustRun(t, db, "card", "add", "What does a nil map panic on?", "--note", "decks/go.md", "--id", "c1", "--answer", "writes")
	require.Contains(t, out, "registered card c1")

	out = mustRun(t, db, "new")
	require.Contains(t, out, "c1")

	out = mustRun(t, db, "review", "c1", "4", "--at", "2024-01-01T10:00:00Z")
	require.Contains(t, out, "c1: graduated")

	out = mustRun(t, db, "scheduled", "--now", "2024-01-01T12:00:00Z")
	require.Contains(t, out, "c1")
	out = mustRun(t, db, "due", "--now", "2024-01-01T12:00:00Z")
	require.Contains(t, out, "no cards")
	out = mustRun(t, db, "due", "--now", "2024-01-02T11:00:00Z", "--note", "decks/go.md")
	require.Contains(t, out, "c1")

	out = mustRun(t, db, "card", "show", "c1")
	require.Contains(t, out, "reps:     1")
	require.Contains(t, out, "history:")

	out = mustRun(t, db, "note", "list")
	require.Contains(t, out, "decks/go.md")

	out = mustRun(t, db, "stop", "c1")
	require.Contains(t, out, "stopped c1")
	out = mustRun(t, db, "card", "show", "c1")
	require.Contains(t, out, "phase:    stopped")
}

func TestReviewRejectsBadQuality(t *testing.T) {
	db := filepath.Join(t.TempDir(), "spacer.db")
	mustRun(t, db, "card", "add", "prompt", "--id", "c1")

	_, err := runCLI(t, db, "review", "c1", "6")
	require.Error(t, err)

	_, err = runCLI(t, db, "review", "c1", "good")
	require.Error(t, err)
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	archivePath := filepath.Join(dir, "cards.json")

	mustRun(t, src, "card", "add", "first", "--id", "a", "--note", "n.md")
	mustRun(t, src, "card", "add", "second", "--id", "b", "--note", "n.md")
	mustRun(t, src, "review", "a", "1")

	out := mustRun(t, src, "export", archivePath)
	require.Contains(t, out, "exported 1 notes and 2 cards")

	out = mustRun(t, dst, "import", archivePath)
	require.Contains(t, out, "created 1 notes, imported 2 cards")

	out = mustRun(t, dst, "card", "show", "a")
	require.Contains(t, out, "phase:    learning")
}

func TestForecastRejectsRange(t *testing.T) {
	db := filepath.Join(t.TempDir(), "spacer.db")
	_, err := runCLI(t, db, "forecast", "--days", "0")
	require.Error(t, err)

	out := mustRun(t, db, "forecast", "--days", "3")
	require.Contains(t, out, "total")
}

func TestAPIKeyCreate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "spacer.db")
	out := mustRun(t, db, "apikey", "create", "team-a", "--description", "laptop")
	require.True(t, strings.HasPrefix(out, "sk_"))
}

func TestVersion(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "spacer")
}
