// Package pricetrigger BTC 15 分钟涨跌市场价格触发：最优卖价达到目标价时买入，每个时段每个 token 至多一次
package pricetrigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/copybot/clob/client"
	"github.com/betbot/copybot/clob/types"
	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/metrics"
	"github.com/betbot/copybot/pkg/sdk/websocket"
)

var log = logrus.WithField("component", "pricetrigger")

const (
	// MinNotional 交易所接受的最小订单金额（USDC）
	MinNotional = 1.0

	defaultResolveRetry = 5 * time.Second
)

var (
	buyLimitBuffer = decimal.RequireFromString("0.01")
	maxLimitPrice  = decimal.RequireFromString("0.99")
)

// Feed 推送一组资产的报价，直到 ctx 结束
type Feed interface {
	Run(ctx context.Context, assetIDs []string, handler websocket.Handler) error
}

// MarketResolver 由时段开始时间解析市场
type MarketResolver interface {
	Resolve(ctx context.Context, slotStart time.Time) (*domain.SlotMarket, error)
}

// OrderPoster 提交签名限价单
type OrderPoster interface {
	CreateAndPostOrder(ctx context.Context, order *types.UserOrder, options types.CreateOrderOptions, orderType types.OrderType) (*types.OrderResponse, error)
}

type Config struct {
	TargetPrice float64
	MinPrice    float64 // 0 表示不设下限
	BuySize     float64
	DryRun      bool
	// PriceLogInterval 为 0 时每次更新都打印，负数不打印
	PriceLogInterval time.Duration
	TickSize         types.TickSize
	NegRisk          bool
}

type Bot struct {
	cfg      Config
	feed     Feed
	resolver MarketResolver
	poster   OrderPoster // 未配置交易时为 nil
	dedup    *SlotDeduper

	mu         sync.Mutex
	market     *domain.SlotMarket
	latest     map[string]websocket.Quote
	lastLogged time.Time

	buys         sync.WaitGroup
	now          func() time.Time
	resolveRetry time.Duration
}

// New 创建机器人；poster 为 nil 时触发只打印日志
func New(cfg Config, feed Feed, resolver MarketResolver, poster OrderPoster) *Bot {
	if cfg.BuySize < 1 {
		cfg.BuySize = 1
	}
	if !cfg.TickSize.Valid() {
		cfg.TickSize = types.TickSize001
	}
	return &Bot{
		cfg:          cfg,
		feed:         feed,
		resolver:     resolver,
		poster:       poster,
		dedup:        NewSlotDeduper(),
		latest:       make(map[string]websocket.Quote),
		now:          time.Now,
		resolveRetry: defaultResolveRetry,
	}
}

// Run 跟随当前时段的市场，时段结束后切换到下一个；只有首次解析市场失败是致命错误
func (b *Bot) Run(ctx context.Context) error {
	defer b.buys.Wait()

	if b.poster == nil && !b.cfg.DryRun {
		log.Warn("private key or proxy not set; triggers will only be logged")
	}

	first := true
	for {
		slot := SlotStart(b.now())
		market, err := b.resolver.Resolve(ctx, slot)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if first {
				return fmt.Errorf("resolve market for %s: %w", Slug(slot), err)
			}
			log.Warnf("resolve %s: %v, retrying in %v", Slug(slot), err, b.resolveRetry)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.resolveRetry):
			}
			continue
		}
		first = false
		b.setMarket(market)

		log.WithFields(logrus.Fields{
			"slug":      market.Slug,
			"condition": market.ConditionID,
			"up":        market.UpTokenID,
			"down":      market.DownTokenID,
		}).Info("watching slot")

		slotCtx, cancel := context.WithDeadline(ctx, slot.Add(SlotDuration))
		err = b.feed.Run(slotCtx, market.AssetIDs(), func(q websocket.Quote) {
			b.HandleQuote(ctx, q)
		})
		cancel()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Errorf("feed for %s: %v", market.Slug, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.resolveRetry):
			}
			continue
		}
		log.Infof("slot %s ended, rolling over", market.Slug)
	}
}

func (b *Bot) setMarket(m *domain.SlotMarket) {
	b.mu.Lock()
	b.market = m
	b.latest = make(map[string]websocket.Quote)
	b.mu.Unlock()
	b.dedup.Rotate(m.SlotStart)
}

// HandleQuote 对一条报价应用触发规则；买单在后台执行，受 ctx 约束
func (b *Bot) HandleQuote(ctx context.Context, q websocket.Quote) {
	b.mu.Lock()
	market := b.market
	if market == nil {
		b.mu.Unlock()
		return
	}
	side, ok := market.TokenTypeOf(q.AssetID)
	if !ok {
		b.mu.Unlock()
		return
	}
	b.latest[q.AssetID] = q
	b.logPricesLocked(market)
	b.mu.Unlock()

	if q.BestAsk > b.cfg.TargetPrice {
		return
	}
	if b.cfg.MinPrice > 0 && q.BestAsk < b.cfg.MinPrice {
		return
	}

	flog := log.WithFields(logrus.Fields{"side": side, "bestAsk": fmt.Sprintf("%.3f", q.BestAsk)})
	if err := b.dedup.TryAcquire(market.SlotStart, q.AssetID); err != nil {
		flog.Infof("skip: %v", err)
		return
	}
	flog.Infof("trigger: bestAsk <= %.3f, placing buy", b.cfg.TargetPrice)
	metrics.TriggerFired.Add(1)

	if b.cfg.DryRun {
		flog.Infof("[DRY RUN] would buy %s token %s @ ~%.3f x%g", side, shortID(q.AssetID), q.BestAsk, b.cfg.BuySize)
		return
	}
	if b.poster == nil {
		flog.Infof("not configured, would buy token %s @ %.3f x%g", shortID(q.AssetID), q.BestAsk, b.cfg.BuySize)
		return
	}

	b.buys.Add(1)
	go func() {
		defer b.buys.Done()
		orderID, err := b.buy(ctx, q.AssetID, q.BestAsk)
		if err != nil {
			flog.Errorf("order failed: %v", err)
			metrics.TriggerBuyErrors.Add(1)
			b.dedup.Release(market.SlotStart, q.AssetID)
			return
		}
		metrics.TriggerBuys.Add(1)
		flog.WithField("orderID", orderID).Debug("buy done")
	}()
}

// logPricesLocked 两侧价格都已知且到达间隔时打印；调用方持有 b.mu
func (b *Bot) logPricesLocked(m *domain.SlotMarket) {
	if b.cfg.PriceLogInterval < 0 {
		return
	}
	up, okUp := b.latest[m.UpTokenID]
	down, okDown := b.latest[m.DownTokenID]
	if !okUp || !okDown {
		return
	}
	now := b.now()
	if b.cfg.PriceLogInterval > 0 && now.Sub(b.lastLogged) < b.cfg.PriceLogInterval {
		return
	}
	b.lastLogged = now
	log.Infof("[Prices] Up ask=%.3f bid=%.3f | Down ask=%.3f bid=%.3f",
		up.BestAsk, up.BestBid, down.BestAsk, down.BestBid)
}

// LimitPrice min(price+0.01, 0.99) 后按 tick 取整
func LimitPrice(price float64, tick types.TickSize) float64 {
	lim := decimal.NewFromFloat(price).Add(buyLimitBuffer)
	if lim.GreaterThan(maxLimitPrice) {
		lim = maxLimitPrice
	}
	f, _ := lim.Float64()
	return client.RoundPriceToTick(f, tick)
}

// buy 以略高于卖价的价格下 GTC 限价买单
func (b *Bot) buy(ctx context.Context, tokenID string, price float64) (string, error) {
	size := b.cfg.BuySize
	if price*size < MinNotional {
		return "", domain.Errorf(domain.KindPolicyRejection, "pricetrigger.buy",
			"order notional $%.2f below min $%.0f", price*size, MinNotional)
	}
	limit := LimitPrice(price, b.cfg.TickSize)
	if limit*size < MinNotional {
		return "", domain.Errorf(domain.KindPolicyRejection, "pricetrigger.buy",
			"notional $%.2f below min $%.0f", limit*size, MinNotional)
	}

	resp, err := b.poster.CreateAndPostOrder(ctx,
		&types.UserOrder{TokenID: tokenID, Price: limit, Size: size, Side: types.SideBuy},
		types.CreateOrderOptions{TickSize: b.cfg.TickSize, NegRisk: b.cfg.NegRisk},
		types.OrderTypeGTC)
	if err != nil {
		return "", domain.Wrap(domain.KindExchangeRejection, "pricetrigger.buy", err)
	}
	if resp.ErrorMsg != "" || resp.OrderID == "" {
		msg := resp.ErrorMsg
		if msg == "" {
			msg = "no order ID in response"
		}
		return "", domain.Errorf(domain.KindExchangeRejection, "pricetrigger.buy", "%s", msg)
	}
	log.Infof("limit buy %s token=%s notional=$%.2f (limitPrice=%g size=%g)",
		resp.OrderID, shortID(tokenID), limit*size, limit, size)
	return resp.OrderID, nil
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}
