package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"propops-service/internal/app"
	"propops-service/internal/domain"
)

// TemplateCache caches whole survey template trees in Redis as JSON and
// falls back to the inner repository on a miss. Scoring reads the full tree
// on every call, so keeping it hot is worth a key per template:
//
//	SET template:{templateID} {json} EX ttl
type TemplateCache struct {
	client *redis.Client
	inner  app.TemplateRepository
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewTemplateCache(client *redis.Client, inner app.TemplateRepository, ttl time.Duration) *TemplateCache {
	return &TemplateCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *TemplateCache) GetTemplate(ctx context.Context, templateID string) (domain.SurveyTemplate, error) {
	key := c.key(templateID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var tpl domain.SurveyTemplate
		if err := json.Unmarshal(raw, &tpl); err == nil {
			return tpl, nil
		}
		// Unreadable payloads fall through to a reload.
	}

	result, err, _ := c.sf.Do(templateID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var tpl domain.SurveyTemplate
			if err := json.Unmarshal(raw, &tpl); err == nil {
				return tpl, nil
			}
		}

		tpl, err := c.inner.GetTemplate(ctx, templateID)
		if err != nil {
			return domain.SurveyTemplate{}, err
		}

		if raw, err := json.Marshal(tpl); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
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
	_ = c.client.Del(ctx, c.key(tpl.ID)).Err()
	return nil
}

func (c *TemplateCache) DeactivateTemplate(ctx context.Context, templateID string) error {
	if err := c.inner.DeactivateTemplate(ctx, templateID); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(templateID)).Err()
	return nil
}

func (c *TemplateCache) key(templateID string) string {
	return "template:" + templateID
}

func (c *TemplateCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
