package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"propops-service/internal/app"
	"propops-service/internal/domain"
)

// TemplateCache wraps a TemplateRepository and caches template trees with a
// TTL to avoid re-reading the whole tree on every scoring call. Writes pass
// through and invalidate the cached entry.
type TemplateCache struct {
	inner app.TemplateRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTemplate
}

type cachedTemplate struct {
	tpl       domain.SurveyTemplate
	expiresAt time.Time
}

func NewTemplateCache(inner app.TemplateRepository, ttl time.Duration) *TemplateCache {
	return &TemplateCache{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedTemplate),
	}
}

func (c *TemplateCache) GetTemplate(ctx context.Context, templateID string) (domain.SurveyTemplate, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[templateID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.tpl, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(templateID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[templateID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.tpl, nil
		}
		c.mu.RUnlock()

		tpl, err := c.inner.GetTemplate(ctx, templateID)
		if err != nil {
			return domain.SurveyTemplate{}, err
		}

		c.mu.Lock()
		c.cache[templateID] = cachedTemplate{
			tpl:       tpl,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return tpl, nil
	})
	if err != nil {
		return domain.SurveyTemplate{}, err
	}
	return result.(domain.SurveyTemplate), nil
}

func (c *TemplateCache) SaveTemplate(ctx context.Context, tpl domain.SurveyTemplate) error {
	if err := c.inner.SaveTemplate(ctx, tpl); err != nil {
		return err
	}
	c.invalidate(tpl.ID)
	return nil
}

func (c *TemplateCache) DeactivateTemplate(ctx context.Context, templateID string) error {
	if err := c.inner.DeactivateTemplate(ctx, templateID); err != nil {
		return err
	}
	c.invalidate(templateID)
	return nil
}

func (c *TemplateCache) invalidate(templateID string) {
	c.mu.Lock()
	delete(c.cache, templateID)
	c.mu.Unlock()
}

func (c *TemplateCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
