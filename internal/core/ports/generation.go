package ports

import (
	"context"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

// GenerationService runs the moderation, prompt, dispatch and identity stages
// for one request. Errors are *generation.Error values.
type GenerationService interface {
	Generate(ctx context.Context, req *generation.Request) (*generation.Result, error)
}

// PromptComposer turns a topic and caption into the provider prompt. It is
// deterministic and never fails.
type PromptComposer interface {
	Compose(topic generation.Topic, caption string, hasImage bool, classifierHint string) string
}
