package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"propops-service/internal/domain"
	"propops-service/internal/infra/memory"
)

func TestTemplateCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	inner := &countingTemplates{Store: memory.NewStore()}
	_ = inner.Store.SaveTemplate(context.Background(), sampleTemplate())
	cache := NewTemplateCache(client, inner, time.Minute)

	if _, err := cache.GetTemplate(context.Background(), "tpl-1"); err != nil {
		t.Fatalf("get template: %v", err)
	}
	if inner.gets != 1 {
		t.Fatalf("expected inner read once, got %d", inner.gets)
	}
	if !mr.Exists("template:tpl-1") {
		t.Fatalf("expected template cached in redis")
	}

	// Second call should hit redis, inner not incremented.
	tpl, err := cache.GetTemplate(context.Background(), "tpl-1")
	if err != nil {
		t.Fatalf("get template 2: %v", err)
	}
	if inner.gets != 1 {
		t.Fatalf("expected cache hit, inner reads %d", inner.gets)
	}
	if len(tpl.Categories) != 1 || tpl.Categories[0].Subcategories[0].Questions[0].ID != "q1" {
		t.Fatalf("expected full tree from cache, got %+v", tpl)
	}
}

func TestTemplateCacheInvalidatesOnSave(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	inner := &countingTemplates{Store: memory.NewStore()}
	_ = inner.Store.SaveTemplate(context.Background(), sampleTemplate())
	cache := NewTemplateCache(newClient(mr), inner, time.Minute)

	_, _ = cache.GetTemplate(context.Background(), "tpl-1")

	tpl := sampleTemplate()
	tpl.Name = "Visit audit v2"
	if err := cache.SaveTemplate(context.Background(), tpl); err != nil {
		t.Fatalf("save through cache: %v", err)
	}
	if mr.Exists("template:tpl-1") {
		t.Fatalf("expected redis key dropped on save")
	}

	got, err := cache.GetTemplate(context.Background(), "tpl-1")
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if got.Name != "Visit audit v2" {
		t.Fatalf("expected fresh read after invalidation, got %q", got.Name)
	}
}

type countingTemplates struct {
	*memory.Store
	gets int
}

func (c *countingTemplates) GetTemplate(ctx context.Context, templateID string) (domain.SurveyTemplate, error) {
	c.gets++
	return c.Store.GetTemplate(ctx, templateID)
}

func sampleTemplate() domain.SurveyTemplate {
	return domain.SurveyTemplate{
		ID:      "tpl-1",
		Name:    "Visit audit",
		Version: 1,
		Active:  true,
		Categories: []domain.Category{
			{
				ID: "c1", Name: "Rooms", Weight: 1,
				Subcategories: []domain.Subcategory{{
					ID: "s1",
					Questions: []domain.Question{
						{ID: "q1", Text: "Room cleanliness", ScaleMin: 1, ScaleMax: 10},
					},
				}},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
