package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/mcp"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps err through the shared error table. Unmapped errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, errBadRequest) {
		writeJSON(w, http.StatusBadRequest, &mcp.APIError{Code: "INVALID_INPUT", Message: err.Error()})
		return
	}
	apiErr := mcp.MapError(err)
	if apiErr == nil {
		logger.Error("request failed", "error", err)
		apiErr = mcp.InternalError(err)
	}
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, apiErr)
}

func decodeBody(r *http.Request, out any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", errBadRequest, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: invalid json: %w", errBadRequest, err)
	}
	return nil
}

// listOptions reads the card filter query parameters.
func listOptions(r *http.Request) (card.ListOptions, error) {
	q := r.URL.Query()
	opts := card.ListOptions{
		NoteID: q.Get("note"),
		Tags:   q["tag"],
		Query:  q.Get("q"),
	}
	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		return opts, fmt.Errorf("%w: limit: %w", errBadRequest, err)
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		return opts, fmt.Errorf("%w: offset: %w", errBadRequest, err)
	}
	return opts, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// instant parses an optional RFC 3339 timestamp, falling back to now.
func instant(s string, now func() time.Time) (time.Time, error) {
	if s == "" {
		return now(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %w", errBadRequest, s, err)
	}
	return t, nil
}
