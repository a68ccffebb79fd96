package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/moznion/go-optional"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/copybot/clob/client"
	"github.com/betbot/copybot/clob/types"
	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/pkg/cache"
	"github.com/betbot/copybot/pkg/sdk/api"
	sdkhttp "github.com/betbot/copybot/pkg/sdk/http"
)

var log = logrus.WithField("component", "gateway")

const (
	tokenTTL     = time.Hour
	orderOptsTTL = time.Hour

	// 低于该份额的可赎回记录视为灰尘
	redeemDust = 0.001
)

// PositionsAPI 用到的 data API 接口
type PositionsAPI interface {
	GetAllPositions(ctx context.Context, q api.PositionsQuery) ([]api.Position, error)
}

// Exchange 用到的 CLOB 接口
type Exchange interface {
	GetOrderBook(ctx context.Context, tokenID string) (*types.OrderBookSummary, error)
	GetTickSize(ctx context.Context, tokenID string) (types.TickSize, error)
	GetNegRisk(ctx context.Context, tokenID string) (bool, error)
	GetMarket(ctx context.Context, conditionID string) (*types.Market, error)
	CreateAndPostOrder(ctx context.Context, order *types.UserOrder, opts types.CreateOrderOptions, orderType types.OrderType) (*types.OrderResponse, error)
}

// Gateway 把 data API 与 CLOB 适配为领域模型
type Gateway struct {
	positions PositionsAPI
	exchange  Exchange

	tokens    *cache.InMemoryCache[string, string]
	orderOpts *cache.InMemoryCache[string, types.CreateOrderOptions]
	retryWait time.Duration
}

type Option func(*Gateway)

// WithRetryWait 下单重试前的等待时间
func WithRetryWait(d time.Duration) Option {
	return func(g *Gateway) { g.retryWait = d }
}

func New(positions PositionsAPI, exchange Exchange, opts ...Option) *Gateway {
	g := &Gateway{
		positions: positions,
		exchange:  exchange,
		tokens:    cache.NewInMemoryCache[string, string](tokenTTL),
		orderOpts: cache.NewInMemoryCache[string, types.CreateOrderOptions](orderOptsTTL),
		retryWait: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Close 停止缓存清理协程
func (g *Gateway) Close() {
	g.tokens.Close()
	g.orderOpts.Close()
}

// GetUserPositions 拉取账户持仓（分页取全），并记住看到的 (market, outcome) → token 映射
func (g *Gateway) GetUserPositions(ctx context.Context, address string) (domain.PositionSnapshot, error) {
	rows, err := g.positions.GetAllPositions(ctx, api.PositionsQuery{User: address, SizeThreshold: 0, Limit: 500})
	if err != nil {
		return nil, domain.Wrap(domain.KindTransport, "gateway.GetUserPositions", err)
	}

	snap := make(domain.PositionSnapshot)
	for _, row := range rows {
		if row.ConditionID == "" || row.Outcome == "" {
			continue
		}
		shares := row.Size.Float64()
		price := row.CurPrice.Float64()
		value := row.CurrentValue.Float64()
		if value == 0 {
			value = shares * price
		}
		snap.Put(domain.Position{
			Market:  row.ConditionID,
			Outcome: row.Outcome,
			Shares:  shares,
			Price:   price,
			Value:   value,
			TokenID: row.Asset,
		})
		if row.Asset != "" {
			g.tokens.Set(tokenKey(row.ConditionID, row.Outcome), row.Asset, 0)
		}
	}
	return snap, nil
}

// GetRedeemablePositions 列出 data API 标记为可赎回的已结算持仓
func (g *Gateway) GetRedeemablePositions(ctx context.Context, address string) ([]domain.RedeemablePosition, error) {
	redeemable := true
	rows, err := g.positions.GetAllPositions(ctx, api.PositionsQuery{User: address, Limit: 500, Redeemable: &redeemable})
	if err != nil {
		return nil, domain.Wrap(domain.KindTransport, "gateway.GetRedeemablePositions", err)
	}
	out := make([]domain.RedeemablePosition, 0, len(rows))
	for _, row := range rows {
		if !row.Redeemable || row.ConditionID == "" || row.Size.Float64() <= redeemDust {
			continue
		}
		out = append(out, domain.RedeemablePosition{
			Market:  row.ConditionID,
			Outcome: row.Outcome,
			TokenID: row.Asset,
			Shares:  row.Size.Float64(),
			Price:   row.CurPrice.Float64(),
			NegRisk: row.NegativeRisk,
			Title:   row.Title,
		})
	}
	return out, nil
}

// GetMarketPrice 读取盘口：有买单取最优买价，否则取最优卖价
func (g *Gateway) GetMarketPrice(ctx context.Context, market, outcome string) optional.Option[float64] {
	token, err := g.ResolveToken(ctx, market, outcome)
	if err != nil {
		log.Debugf("resolve token %s/%s: %v", market, outcome, err)
		return optional.None[float64]()
	}
	book, err := g.exchange.GetOrderBook(ctx, token)
	if err != nil {
		log.Debugf("order book %s: %v", token, err)
		return optional.None[float64]()
	}
	if bid, ok := book.BestBid(); ok {
		return optional.Some(bid)
	}
	if ask, ok := book.BestAsk(); ok {
		return optional.Some(ask)
	}
	return optional.None[float64]()
}

func (g *Gateway) PlaceBuyOrder(ctx context.Context, market, outcome string, price, size float64, signature string) (*domain.OrderAck, error) {
	return g.placeOrder(ctx, types.SideBuy, market, outcome, price, size, signature)
}

func (g *Gateway) PlaceSellOrder(ctx context.Context, market, outcome string, price, size float64, signature string) (*domain.OrderAck, error) {
	return g.placeOrder(ctx, types.SideSell, market, outcome, price, size, signature)
}

func (g *Gateway) placeOrder(ctx context.Context, side types.Side, market, outcome string, price, size float64, signature string) (*domain.OrderAck, error) {
	op := "gateway.place" + strings.ToLower(string(side))

	token, err := g.ResolveToken(ctx, market, outcome)
	if err != nil {
		return nil, err
	}
	opts, err := g.orderOptions(ctx, token)
	if err != nil {
		return nil, domain.Wrap(classify(err), op, err)
	}

	order := &types.UserOrder{
		TokenID: token,
		Price:   clampPrice(client.RoundPriceToTick(price, opts.TickSize), opts.TickSize),
		Size:    size,
		Side:    side,
	}

	post := func() (*types.OrderResponse, error) {
		resp, err := g.exchange.CreateAndPostOrder(ctx, order, opts, types.OrderTypeGTC)
		if err != nil {
			if classify(err) != domain.KindTransport {
				return nil, backoff.Permanent(err)
			}
			log.Warnf("%s %s transient failure: %v", op, token, err)
			return nil, err
		}
		return resp, nil
	}
	resp, err := backoff.Retry(ctx, post,
		backoff.WithBackOff(backoff.NewConstantBackOff(g.retryWait)),
		backoff.WithMaxTries(2))
	if err != nil {
		return nil, domain.Wrap(classify(err), op, err)
	}
	if !resp.Success {
		msg := resp.ErrorMsg
		if msg == "" {
			msg = "order not accepted"
		}
		return nil, domain.Errorf(domain.KindExchangeRejection, op, "%s (status=%s)", msg, resp.Status)
	}

	log.WithFields(logrus.Fields{
		"market":    market,
		"outcome":   outcome,
		"side":      side,
		"price":     order.Price,
		"size":      size,
		"orderID":   resp.OrderID,
		"signature": signature,
	}).Info("order accepted")
	return &domain.OrderAck{OrderID: resp.OrderID, Status: resp.Status, Signature: signature}, nil
}

// ResolveToken 把 (market, outcome) 映射为 CLOB token id：先查持仓填充的缓存，再查 CLOB 市场接口
func (g *Gateway) ResolveToken(ctx context.Context, market, outcome string) (string, error) {
	if token, ok := g.tokens.Get(tokenKey(market, outcome)); ok {
		return token, nil
	}
	m, err := g.exchange.GetMarket(ctx, market)
	if err != nil {
		return "", domain.Wrap(classify(err), "gateway.ResolveToken", err)
	}
	var found string
	for _, t := range m.Tokens {
		if t.TokenID == "" {
			continue
		}
		g.tokens.Set(tokenKey(market, t.Outcome), t.TokenID, 0)
		if strings.EqualFold(t.Outcome, outcome) {
			found = t.TokenID
		}
	}
	if found == "" {
		return "", domain.Errorf(domain.KindExchangeRejection, "gateway.ResolveToken", "market %s has no outcome %q", market, outcome)
	}
	return found, nil
}

func (g *Gateway) orderOptions(ctx context.Context, token string) (types.CreateOrderOptions, error) {
	if opts, ok := g.orderOpts.Get(token); ok {
		return opts, nil
	}
	tick, err := g.exchange.GetTickSize(ctx, token)
	if err != nil {
		return types.CreateOrderOptions{}, err
	}
	negRisk, err := g.exchange.GetNegRisk(ctx, token)
	if err != nil {
		return types.CreateOrderOptions{}, err
	}
	opts := types.CreateOrderOptions{TickSize: tick, NegRisk: negRisk}
	g.orderOpts.Set(token, opts, 0)
	return opts, nil
}

// clampPrice 把取整后的价格限制在 [tick, 1-tick]
func clampPrice(p float64, tick types.TickSize) float64 {
	t := tick.Float64()
	if t <= 0 {
		return p
	}
	if p < t {
		return t
	}
	if p > 1-t {
		return client.RoundPriceToTick(1-t, tick)
	}
	return p
}

func tokenKey(market, outcome string) string {
	return market + "|" + strings.ToLower(outcome)
}

// classify 把传输层与客户端错误映射为领域错误类型
func classify(err error) domain.Kind {
	if k := domain.KindOf(err); k != "" {
		return k
	}
	if errors.Is(err, client.ErrL1AuthUnavailable) || errors.Is(err, client.ErrL2AuthUnavailable) {
		return domain.KindAuthentication
	}
	var se *sdkhttp.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden:
			return domain.KindAuthentication
		case se.Transient():
			return domain.KindTransport
		default:
			return domain.KindExchangeRejection
		}
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return domain.KindTransport
	}
	return domain.KindExchangeRejection
}
