package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/avatarctic/petportrait/internal/core/ports"
)

// CachingModerationProvider decorates a ModerationProvider with a verdict
// cache keyed by content digest. Only successful verdicts are cached, so a
// provider outage is retried on the next request.
type CachingModerationProvider struct {
	next   ports.ModerationProvider
	cache  ports.Cache
	ttl    time.Duration
	sf     singleflight.Group
	logger *logrus.Logger
}

func NewCachingModerationProvider(next ports.ModerationProvider, c ports.Cache, ttl time.Duration, logger *logrus.Logger) *CachingModerationProvider {
	return &CachingModerationProvider{next: next, cache: c, ttl: ttl, logger: logger}
}

func (p *CachingModerationProvider) Name() string { return p.next.Name() }

func (p *CachingModerationProvider) Moderate(ctx context.Context, in *ports.ModerationInput) (*ports.ModerationVerdict, error) {
	key := moderationKey(in)
	if v, ok := p.get(ctx, key); ok {
		return v, nil
	}

	// The call is shared by every waiter on key, so one caller going away
	// must not cancel it for the rest.
	shared := context.WithoutCancel(ctx)
	res, err, _ := p.sf.Do(key, func() (any, error) {
		v, err := p.next.Moderate(shared, in)
		if err != nil {
			return nil, err
		}
		p.set(shared, key, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*ports.ModerationVerdict), nil
}

func (p *CachingModerationProvider) get(ctx context.Context, key string) (*ports.ModerationVerdict, bool) {
	b, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		if p.logger != nil {
			p.logger.WithError(err).Debug("moderation cache read failed")
		}
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var v ports.ModerationVerdict
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return &v, true
}

func (p *CachingModerationProvider) set(ctx context.Context, key string, v *ports.ModerationVerdict) {
	if v == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, b, p.ttl); err != nil && p.logger != nil {
		p.logger.WithError(err).Debug("moderation cache write failed")
	}
}

// moderationKey digests both parts separately so that text and image
// boundaries cannot collide.
func moderationKey(in *ports.ModerationInput) string {
	text := sha256.Sum256([]byte(in.Text))
	img := sha256.Sum256(in.Image)
	return "moderation:" + hex.EncodeToString(text[:]) + hex.EncodeToString(img[:])
}
