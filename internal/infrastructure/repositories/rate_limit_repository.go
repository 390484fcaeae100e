package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/ratelimit"
	"github.com/avatarctic/petportrait/internal/core/ports"
)

// hitScript resets, increments or rejects a window in one round trip.
// KEYS[1] window hash; ARGV[1] now ms; ARGV[2] window ms; ARGV[3] limit.
// Returns {allowed, count, start_ms}.
var hitScript = redis.NewScript(`
	local state = redis.call('HMGET', KEYS[1], 'count', 'start')
	local now = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local count = state[1] and tonumber(state[1])
	local start = state[2] and tonumber(state[2])

	if not count or not start or now - start >= window then
		redis.call('HSET', KEYS[1], 'count', '1', 'start', ARGV[1])
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
		return {1, 1, now}
	end
	if count < limit then
		count = redis.call('HINCRBY', KEYS[1], 'count', 1)
		return {1, count, start}
	end
	return {0, count, start}
`)

// RateLimitRedisRepository keeps one hash per identity so that several server
// instances share the same windows.
type RateLimitRedisRepository struct {
	r         redis.Cmdable
	keyPrefix string
	logger    *logrus.Logger
}

var _ ports.RateLimitRepository = (*RateLimitRedisRepository)(nil)

func NewRateLimitRedisRepository(r redis.Cmdable, keyPrefix string, logger *logrus.Logger) *RateLimitRedisRepository {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RateLimitRedisRepository{r: r, keyPrefix: keyPrefix, logger: logger}
}

func (repo *RateLimitRedisRepository) key(identity string) string {
	return repo.keyPrefix + ":" + identity
}

func (repo *RateLimitRedisRepository) Hit(ctx context.Context, identity string, limit int, window time.Duration, now time.Time) (bool, ratelimit.Window, error) {
	res, err := hitScript.Run(ctx, repo.r, []string{repo.key(identity)},
		now.UnixMilli(), window.Milliseconds(), limit).Slice()
	if err != nil {
		return false, ratelimit.Window{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return false, ratelimit.Window{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	vals := make([]int64, len(res))
	for i, v := range res {
		n, ok := v.(int64)
		if !ok {
			return false, ratelimit.Window{}, fmt.Errorf("rate limit script: unexpected value %T", v)
		}
		vals[i] = n
	}
	return vals[0] == 1, ratelimit.Window{Count: int(vals[1]), WindowStart: time.UnixMilli(vals[2])}, nil
}

func (repo *RateLimitRedisRepository) Entries(ctx context.Context) ([]ratelimit.Entry, error) {
	var (
		cursor  uint64
		entries []ratelimit.Entry
	)
	prefix := repo.keyPrefix + ":"
	for {
		keys, next, err := repo.r.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan rate limit keys: %w", err)
		}
		for _, key := range keys {
			vals, err := repo.r.HMGet(ctx, key, "count", "start").Result()
			if err != nil {
				return nil, fmt.Errorf("read rate limit window: %w", err)
			}
			w, ok := parseWindow(vals)
			if !ok {
				// Expired between SCAN and HMGET, or written by something else.
				if repo.logger != nil {
					repo.logger.WithFields(logrus.Fields{"key": key}).Debug("redis: skipping unreadable rate limit window")
				}
				continue
			}
			entries = append(entries, ratelimit.Entry{Identity: strings.TrimPrefix(key, prefix), Window: w})
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return entries, nil
}

func parseWindow(vals []interface{}) (ratelimit.Window, bool) {
	if len(vals) != 2 {
		return ratelimit.Window{}, false
	}
	countStr, ok1 := vals[0].(string)
	startStr, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return ratelimit.Window{}, false
	}
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return ratelimit.Window{}, false
	}
	startMs, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return ratelimit.Window{}, false
	}
	return ratelimit.Window{Count: count, WindowStart: time.UnixMilli(startMs)}, true
}
