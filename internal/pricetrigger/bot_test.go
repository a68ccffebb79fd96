package pricetrigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/copybot/clob/types"
	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/pkg/sdk/websocket"
)

type fakePoster struct {
	mu     sync.Mutex
	orders []types.UserOrder
	opts   []types.CreateOrderOptions
	fail   error
}

func (p *fakePoster) CreateAndPostOrder(_ context.Context, order *types.UserOrder, options types.CreateOrderOptions, orderType types.OrderType) (*types.OrderResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, *order)
	p.opts = append(p.opts, options)
	if p.fail != nil {
		return nil, p.fail
	}
	if orderType != types.OrderTypeGTC {
		return &types.OrderResponse{ErrorMsg: "expected GTC"}, nil
	}
	return &types.OrderResponse{Success: true, OrderID: "order-1"}, nil
}

func (p *fakePoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.orders)
}

var testSlot = time.Unix(1738641600, 0)

func testMarket() *domain.SlotMarket {
	return &domain.SlotMarket{
		Slug:        Slug(testSlot),
		ConditionID: "0xcond",
		UpTokenID:   "tok-up",
		DownTokenID: "tok-down",
		SlotStart:   testSlot,
	}
}

func newTestBot(cfg Config, poster OrderPoster) *Bot {
	b := New(cfg, nil, nil, poster)
	b.setMarket(testMarket())
	return b
}

func quote(asset string, ask float64) websocket.Quote {
	return websocket.Quote{AssetID: asset, BestAsk: ask, Event: websocket.EventBestBidAsk}
}

func TestLimitPrice(t *testing.T) {
	tests := []struct {
		price float64
		tick  types.TickSize
		want  float64
	}{
		{0.95, types.TickSize001, 0.96},
		{0.985, types.TickSize001, 0.99},
		{0.99, types.TickSize001, 0.99},
		{0.5, types.TickSize0001, 0.51},
		{0.9449, types.TickSize0001, 0.955},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, LimitPrice(tt.price, tt.tick), 1e-9, "LimitPrice(%v, %s)", tt.price, tt.tick)
	}
}

func TestHandleQuote_Rules(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		quotes []websocket.Quote
		orders int
	}{
		{name: "above target", cfg: Config{TargetPrice: 0.95, BuySize: 5}, quotes: []websocket.Quote{quote("tok-up", 0.96)}, orders: 0},
		{name: "at target", cfg: Config{TargetPrice: 0.95, BuySize: 5}, quotes: []websocket.Quote{quote("tok-up", 0.95)}, orders: 1},
		{name: "below floor", cfg: Config{TargetPrice: 0.95, MinPrice: 0.9, BuySize: 5}, quotes: []websocket.Quote{quote("tok-up", 0.85)}, orders: 0},
		{name: "unknown asset", cfg: Config{TargetPrice: 0.95, BuySize: 5}, quotes: []websocket.Quote{quote("other", 0.5)}, orders: 0},
		{name: "once per token per slot", cfg: Config{TargetPrice: 0.95, BuySize: 5}, quotes: []websocket.Quote{quote("tok-up", 0.9), quote("tok-up", 0.9)}, orders: 1},
		{name: "both sides", cfg: Config{TargetPrice: 0.95, BuySize: 5}, quotes: []websocket.Quote{quote("tok-up", 0.9), quote("tok-down", 0.3)}, orders: 2},
		{name: "dry run", cfg: Config{TargetPrice: 0.95, BuySize: 5, DryRun: true}, quotes: []websocket.Quote{quote("tok-up", 0.9)}, orders: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{}
			b := newTestBot(tt.cfg, poster)
			for _, q := range tt.quotes {
				b.HandleQuote(context.Background(), q)
			}
			b.buys.Wait()
			assert.Equal(t, tt.orders, poster.count())
		})
	}
}

func TestHandleQuote_OrderShape(t *testing.T) {
	poster := &fakePoster{}
	b := newTestBot(Config{TargetPrice: 0.95, BuySize: 5, TickSize: types.TickSize001, NegRisk: true}, poster)

	b.HandleQuote(context.Background(), quote("tok-up", 0.95))
	b.buys.Wait()

	require.Equal(t, 1, poster.count())
	o := poster.orders[0]
	assert.Equal(t, "tok-up", o.TokenID)
	assert.Equal(t, types.SideBuy, o.Side)
	assert.InDelta(t, 0.96, o.Price, 1e-9)
	assert.Equal(t, 5.0, o.Size)
	assert.Equal(t, types.CreateOrderOptions{TickSize: types.TickSize001, NegRisk: true}, poster.opts[0])
}

func TestHandleQuote_FailureReleasesKey(t *testing.T) {
	poster := &fakePoster{fail: errors.New("rejected")}
	b := newTestBot(Config{TargetPrice: 0.95, BuySize: 5}, poster)

	b.HandleQuote(context.Background(), quote("tok-up", 0.9))
	b.buys.Wait()
	assert.Equal(t, 0, b.dedup.Len())

	b.HandleQuote(context.Background(), quote("tok-up", 0.9))
	b.buys.Wait()
	assert.Equal(t, 2, poster.count())
}

func TestHandleQuote_MinNotional(t *testing.T) {
	poster := &fakePoster{}
	b := newTestBot(Config{TargetPrice: 0.95, BuySize: 1}, poster)

	b.HandleQuote(context.Background(), quote("tok-up", 0.5))
	b.buys.Wait()
	assert.Equal(t, 0, poster.count())
	assert.Equal(t, 0, b.dedup.Len(), "rejected buy releases the slot key")
}

func TestHandleQuote_NotConfiguredKeepsKey(t *testing.T) {
	b := newTestBot(Config{TargetPrice: 0.95, BuySize: 5}, nil)

	b.HandleQuote(context.Background(), quote("tok-up", 0.9))
	b.buys.Wait()
	assert.Equal(t, 1, b.dedup.Len())
}

type fakeResolver struct {
	mu    sync.Mutex
	slots []time.Time
	err   error
}

func (r *fakeResolver) Resolve(_ context.Context, slot time.Time) (*domain.SlotMarket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, slot)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.SlotMarket{
		Slug:        Slug(slot),
		UpTokenID:   "up-" + Slug(slot),
		DownTokenID: "down-" + Slug(slot),
		SlotStart:   slot,
	}, nil
}

type scriptedFeed struct {
	calls [][]string
	step  func(call int, ids []string, handler websocket.Handler)
}

func (f *scriptedFeed) Run(_ context.Context, ids []string, handler websocket.Handler) error {
	f.calls = append(f.calls, ids)
	f.step(len(f.calls), ids, handler)
	return nil
}

func TestRun_RollsOverAndStops(t *testing.T) {
	var mu sync.Mutex
	now := testSlot.Add(7 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poster := &fakePoster{}
	resolver := &fakeResolver{}
	feed := &scriptedFeed{}
	feed.step = func(call int, ids []string, handler websocket.Handler) {
		handler(quote(ids[0], 0.9))
		if call == 1 {
			mu.Lock()
			now = now.Add(SlotDuration)
			mu.Unlock()
			return
		}
		cancel()
	}

	b := New(Config{TargetPrice: 0.95, BuySize: 5}, feed, resolver, poster)
	b.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	require.NoError(t, b.Run(ctx))
	require.Len(t, resolver.slots, 2)
	assert.True(t, resolver.slots[0].Equal(testSlot))
	assert.True(t, resolver.slots[1].Equal(testSlot.Add(SlotDuration)))
	require.Len(t, feed.calls, 2)
	assert.Equal(t, []string{"up-" + Slug(testSlot), "down-" + Slug(testSlot)}, feed.calls[0])
	assert.Equal(t, 2, poster.count(), "one buy per slot")
	assert.Equal(t, 1, b.dedup.Len(), "older slot keys are evicted")
}

func TestRun_InitialResolveFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("gamma down")}
	feed := &scriptedFeed{step: func(int, []string, websocket.Handler) {}}
	b := New(Config{TargetPrice: 0.95}, feed, resolver, nil)

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, feed.calls)
}
