package ports

import (
	"context"

	"github.com/avatarctic/petportrait/internal/core/domain/generation"
)

// ImageProvider is the remote image generation capability.
//
// Both operations report provider-side failures (non-2xx status, unparseable
// or empty body) as a *generation.ProviderError result. The error return is
// reserved for failures to reach the provider at all.
type ImageProvider interface {
	Name() string
	// Generate creates an image from call.Prompt alone.
	Generate(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error)
	// Edit transforms call.Image under call.Prompt.
	Edit(ctx context.Context, call *generation.ProviderCall) (generation.ProviderResult, error)
}
