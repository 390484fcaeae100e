package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

// RateLimitMemoryRepository holds windows in process memory. State is lost on
// restart and is not shared between instances.
type RateLimitMemoryRepository struct {
	mu      sync.Mutex
	windows map[string]ratelimit.Window
}

var _ ports.RateLimitRepository = (*RateLimitMemoryRepository)(nil)

func NewRateLimitMemoryRepository() *RateLimitMemoryRepository {
	return &RateLimitMemoryRepository{windows: make(map[string]ratelimit.Window)}
}

func (repo *RateLimitMemoryRepository) Hit(_ context.Context, identity string, limit int, window time.Duration, now time.Time) (bool, ratelimit.Window, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	w, ok := repo.windows[identity]
	if !ok || w.Expired(now, window) {
		w = ratelimit.Window{Count: 1, WindowStart: now}
		repo.windows[identity] = w
		return true, w, nil
	}
	if w.Count < limit {
		w.Count++
		repo.windows[identity] = w
		return true, w, nil
	}
	return false, w, nil
}

func (repo *RateLimitMemoryRepository) Entries(_ context.Context) ([]ratelimit.Entry, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	entries := make([]ratelimit.Entry, 0, len(repo.windows))
	for identity, w := range repo.windows {
		entries = append(entries, ratelimit.Entry{Identity: identity, Window: w})
	}
	return entries, nil
}

// Prune drops windows that have expired at now and returns how many were
// removed.
func (repo *RateLimitMemoryRepository) Prune(now time.Time, window time.Duration) int {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	removed := 0
	for identity, w := range repo.windows {
		if w.Expired(now, window) {
			delete(repo.windows, identity)
			removed++
		}
	}
	return removed
}
