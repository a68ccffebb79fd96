package pricetrigger

import (
	"context"
	"fmt"
	"time"

	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/pkg/cache"
	"github.com/betbot/copybot/pkg/sdk/api"
)

// MarketLookup 按 slug 查询 gamma 市场
type MarketLookup interface {
	GetMarketBySlug(ctx context.Context, slug string) (*api.GammaMarket, error)
}

// Resolver 把时段解析为 Up/Down token；结果按 slug 缓存，略长于一个时段
type Resolver struct {
	lookup MarketLookup
	cache  *cache.InMemoryCache[string, *domain.SlotMarket]
}

func NewResolver(lookup MarketLookup) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  cache.NewInMemoryCache[string, *domain.SlotMarket](2 * SlotDuration),
	}
}

func (r *Resolver) Close() {
	r.cache.Close()
}

// Resolve 返回从 slotStart 开始的时段对应的市场
func (r *Resolver) Resolve(ctx context.Context, slotStart time.Time) (*domain.SlotMarket, error) {
	slug := Slug(slotStart)
	if m, ok := r.cache.Get(slug); ok {
		return m, nil
	}

	gm, err := r.lookup.GetMarketBySlug(ctx, slug)
	if err != nil {
		return nil, domain.Wrap(domain.KindTransport, "pricetrigger.resolve", err)
	}
	up, okUp := gm.TokenForOutcome(string(domain.TokenTypeUp))
	down, okDown := gm.TokenForOutcome(string(domain.TokenTypeDown))
	if !okUp || !okDown {
		return nil, fmt.Errorf("missing Up/Down outcomes for slug=%s (outcomes: %v)", slug, []string(gm.Outcomes))
	}
	if up == "" || down == "" {
		return nil, fmt.Errorf("missing token ids for slug=%s", slug)
	}

	m := &domain.SlotMarket{
		Slug:        slug,
		ConditionID: gm.ConditionID,
		UpTokenID:   up,
		DownTokenID: down,
		SlotStart:   slotStart,
	}
	r.cache.Set(slug, m, 0)
	return m, nil
}
