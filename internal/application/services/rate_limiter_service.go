package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

// RateLimiterService implements RateLimiter using a single fixed-window policy
// shared by every client identity.
type RateLimiterService struct {
	repo        ports.RateLimitRepository
	maxRequests int
	window      time.Duration
	now         func() time.Time
	metrics     *Metrics
	logger      *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	MaxRequests int
	Window      time.Duration
	// Clock overrides time.Now, mainly for tests.
	Clock func() time.Time
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, metrics *Metrics, logger *logrus.Logger) *RateLimiterService {
	// Apply defaults
	mr := 10
	w := time.Minute
	now := time.Now
	if cfg != nil {
		if cfg.MaxRequests > 0 {
			mr = cfg.MaxRequests
		}
		if cfg.Window > 0 {
			w = cfg.Window
		}
		if cfg.Clock != nil {
			now = cfg.Clock
		}
	}
	return &RateLimiterService{repo: repo, maxRequests: mr, window: w, now: now, metrics: metrics, logger: logger}
}

func (s *RateLimiterService) Check(ctx context.Context, identity string) (ratelimit.Decision, error) {
	now := s.now()
	allowed, state, err := s.repo.Hit(ctx, identity, s.maxRequests, s.window, now)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"identity": ratelimit.MaskIdentity(identity)}).WithError(err).Error("rate limiter: failed to record hit")
		}
		return ratelimit.Decision{Allowed: true, Limit: s.maxRequests}, err
	}

	decision := ratelimit.Decision{
		Allowed:     allowed,
		Count:       state.Count,
		Limit:       s.maxRequests,
		WindowStart: state.WindowStart,
	}
	if !allowed {
		decision.RetryAfterSec = retryAfterSeconds(state.Remaining(now, s.window))
	}
	s.metrics.observeRateLimit(allowed)
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"identity": ratelimit.MaskIdentity(identity),
			"count":    state.Count,
			"limit":    s.maxRequests,
			"allowed":  allowed,
		}).Debug("rate limiter window state")
	}
	return decision, nil
}

// retryAfterSeconds rounds up so a denied caller is never told to retry
// before the window actually ends.
func retryAfterSeconds(remaining time.Duration) int {
	secs := int(math.Ceil(remaining.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Stats summarises live windows with masked identities. It never mutates the
// store.
func (s *RateLimiterService) Stats(ctx context.Context) (*ratelimit.Stats, error) {
	now := s.now()
	entries, err := s.repo.Entries(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ratelimit.Stats{
		RateLimitMax:       s.maxRequests,
		RateLimitWindowSec: int(s.window / time.Second),
		Entries:            make([]ratelimit.EntryStats, 0, len(entries)),
		ServerTimeISO:      now.UTC().Format(time.RFC3339),
	}
	for _, e := range entries {
		if e.Window.Expired(now, s.window) {
			continue
		}
		blocked := e.Window.Count >= s.maxRequests
		stats.Entries = append(stats.Entries, ratelimit.EntryStats{
			IP:                 ratelimit.MaskIdentity(e.Identity),
			Count:              e.Window.Count,
			WindowRemainingSec: int(math.Ceil(e.Window.Remaining(now, s.window).Seconds())),
			Blocked:            blocked,
		})
		stats.TotalRequestsInWindow += e.Window.Count
		if blocked {
			stats.BlockedIPs++
		}
	}
	stats.ActiveIPs = len(stats.Entries)
	sort.Slice(stats.Entries, func(i, j int) bool {
		if stats.Entries[i].Count != stats.Entries[j].Count {
			return stats.Entries[i].Count > stats.Entries[j].Count
		}
		return stats.Entries[i].IP < stats.Entries[j].IP
	})
	return stats, nil
}
