package card

import (
	"fmt"
	"strings"
)

const (
	maxPromptLength = 10000
	maxTagLength    = 100
)

// ValidateRegisterInput validates fields required to register a card.
func ValidateRegisterInput(req RegisterRequest) error {
	if strings.TrimSpace(req.NoteID) == "" {
		return fmt.Errorf("%w: note_id is required", ErrInvalidInput)
	}
	return validateContent(req.Kind, req.Prompt, req.Answer, req.Tags)
}

// ValidateRestoreInput validates a restored card apart from its note and
// state, which are checked against the store and scheduler.
func ValidateRestoreInput(req RestoreRequest) error {
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if err := validateContent(req.Kind, req.Prompt, req.Answer, req.Tags); err != nil {
		return fmt.Errorf("card %s: %w", req.ID, err)
	}
	return nil
}

func validateContent(kind Kind, prompt, answer string, tags []string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidInput)
	}
	if len(prompt) > maxPromptLength || len(answer) > maxPromptLength {
		return fmt.Errorf("%w: card text exceeds %d bytes", ErrInvalidInput, maxPromptLength)
	}
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}
	return ValidateTags(tags)
}

// ValidateTags rejects blank or oversized tags.
func ValidateTags(tags []string) error {
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" || len(tag) > maxTagLength {
			return fmt.Errorf("%w: bad tag %q", ErrInvalidInput, tag)
		}
	}
	return nil
}

// NormalizeTags trims tags, strips a leading '#', and drops duplicates.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
