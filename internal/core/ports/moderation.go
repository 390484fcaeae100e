package ports

import "context"

// ModerationInput is the content submitted for screening. Either field may be
// empty but not both.
type ModerationInput struct {
	Text             string
	Image            []byte
	ImageContentType string
}

// ModerationVerdict is a provider's judgement of one input.
type ModerationVerdict struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

// ModerationProvider is the remote moderation capability. A returned error
// means no verdict could be obtained.
type ModerationProvider interface {
	Name() string
	Moderate(ctx context.Context, in *ModerationInput) (*ModerationVerdict, error)
}

// ModerationGate screens request content before any paid call. It returns the
// sorted flagged categories, or nil when the content may proceed.
type ModerationGate interface {
	Moderate(ctx context.Context, image []byte, imageContentType, text string) []string
}
