package ports

import (
	"context"
	"time"

	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
)

// RateLimitRepository stores one fixed window per client identity.
// Implementations MUST perform the compare-and-reset-or-increment step of Hit
// atomically; a lost update would let a client exceed its quota.
type RateLimitRepository interface {
	// Hit consumes one request for identity at now. An expired or missing
	// window is reset to {1, now}; a window below limit is incremented; a full
	// window is left untouched and allowed=false is returned.
	Hit(ctx context.Context, identity string, limit int, window time.Duration, now time.Time) (allowed bool, state ratelimit.Window, err error)
	// Entries lists the stored windows. Callers filter out expired ones.
	Entries(ctx context.Context) ([]ratelimit.Entry, error)
}

// RateLimiterService gates generation requests per client identity and MUST be
// safe for concurrent use.
type RateLimiterService interface {
	Check(ctx context.Context, identity string) (ratelimit.Decision, error)
	Stats(ctx context.Context) (*ratelimit.Stats, error)
}
