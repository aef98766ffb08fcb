// Package archive writes and reads JSON snapshots of a tenant's notes,
// cards and scheduling state.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/rpggio/spacer/internal/scheduler"
	"github.com/tailscale/hujson"
)

// FormatVersion is the document version Export writes and Import accepts.
const FormatVersion = 1

var (
	// ErrUnsupportedVersion indicates a document newer or older than FormatVersion.
	ErrUnsupportedVersion = errors.New("unsupported archive version")
	// ErrInvalidDocument indicates a document that fails validation.
	ErrInvalidDocument = errors.New("invalid archive document")
)

// Document is the on-disk snapshot.
type Document struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Notes      []Note    `json:"notes"`
	Cards      []Card    `json:"cards"`
}

// Note is an archived note. Notes are matched by path on import.
type Note struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Card is an archived card. A nil State means the card was never reviewed.
type Card struct {
	ID        string               `json:"id"`
	NotePath  string               `json:"notePath"`
	Kind      card.Kind            `json:"kind"`
	Prompt    string               `json:"prompt"`
	Answer    string               `json:"answer,omitempty"`
	Tags      []string             `json:"tags,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	State     *scheduler.CardState `json:"state,omitempty"`
}

// Validate checks the document on its own. Checks that need the store run
// in Service.Restore before anything is written.
func (d *Document) Validate(sched *scheduler.Scheduler) error {
	if d.Version != FormatVersion {
		return fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, d.Version, FormatVersion)
	}

	paths := make(map[string]bool, len(d.Notes))
	cleaned := make(map[string]string, len(d.Notes))
	for i, n := range d.Notes {
		if n.Path == "" {
			return fmt.Errorf("%w: note %d has no path", ErrInvalidDocument, i)
		}
		p, err := note.CleanPath(n.Path)
		if err != nil {
			return fmt.Errorf("%w: note %d: %w", ErrInvalidDocument, i, err)
		}
		if other, ok := cleaned[p]; ok && other != n.Path {
			return fmt.Errorf("%w: notes %q and %q share path %q", ErrInvalidDocument, other, n.Path, p)
		}
		if err := card.ValidateTags(n.Tags); err != nil {
			return fmt.Errorf("%w: note %s: %w", ErrInvalidDocument, n.Path, err)
		}
		cleaned[p] = n.Path
		paths[n.Path] = true
	}

	ids := make(map[string]bool, len(d.Cards))
	for _, c := range d.Cards {
		switch {
		case c.ID == "":
			return fmt.Errorf("%w: card without id", ErrInvalidDocument)
		case ids[c.ID]:
			return fmt.Errorf("%w: duplicate card %s", ErrInvalidDocument, c.ID)
		case !paths[c.NotePath]:
			return fmt.Errorf("%w: card %s references unknown note %q", ErrInvalidDocument, c.ID, c.NotePath)
		case c.Kind != "" && !c.Kind.Valid():
			return fmt.Errorf("%w: card %s has kind %q", ErrInvalidDocument, c.ID, c.Kind)
		}
		ids[c.ID] = true

		if c.State != nil {
			if err := sched.Validate(*c.State); err != nil {
				return fmt.Errorf("%w: card %s: %w", ErrInvalidDocument, c.ID, err)
			}
		}
	}
	return nil
}

// Encode writes d as indented JSON.
func Encode(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding archive: %w", err)
	}
	return nil
}

// Decode reads a document. Comments and trailing commas are accepted so
// hand-edited snapshots load.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	var d Document
	if err := json.Unmarshal(standardized, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return &d, nil
}
