package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/metrics"
	"github.com/betbot/copybot/internal/ports"
)

var log = logrus.WithField("component", "executor")

const (
	DefaultMaxPositionLimit = 0.2
	DefaultMinTradeSize     = 1.0
	DefaultTradeDelay       = time.Second
)

// Executor 对差异应用风控策略，按顺序逐笔提交通过的交易
type Executor struct {
	gw  ports.OrderGateway
	key *ecdsa.PrivateKey

	mu               sync.Mutex
	blacklist        map[string]struct{}
	maxPositionLimit float64
	minTradeSize     float64

	tradeDelay time.Duration
	recorder   ports.TradeRecorder
	sleep      func(ctx context.Context, d time.Duration)
	now        func() time.Time
}

type Option func(*Executor)

func WithMaxPositionLimit(limit float64) Option {
	return func(e *Executor) { e.maxPositionLimit = limit }
}

func WithMinTradeSize(size float64) Option {
	return func(e *Executor) { e.minTradeSize = size }
}

func WithTradeDelay(d time.Duration) Option {
	return func(e *Executor) { e.tradeDelay = d }
}

// WithRecorder 每个 TradeResult 都交给 r（如交易日志）
func WithRecorder(r ports.TradeRecorder) Option {
	return func(e *Executor) { e.recorder = r }
}

func WithBlacklist(markets ...string) Option {
	return func(e *Executor) {
		for _, m := range markets {
			if m != "" {
				e.blacklist[m] = struct{}{}
			}
		}
	}
}

func New(gw ports.OrderGateway, key *ecdsa.PrivateKey, opts ...Option) *Executor {
	e := &Executor{
		gw:               gw,
		key:              key,
		blacklist:        make(map[string]struct{}),
		maxPositionLimit: DefaultMaxPositionLimit,
		minTradeSize:     DefaultMinTradeSize,
		tradeDelay:       DefaultTradeDelay,
		sleep:            sleepCtx,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type policy struct {
	blacklist        map[string]struct{}
	maxPositionLimit float64
	minTradeSize     float64
}

func (e *Executor) snapshotPolicy() policy {
	e.mu.Lock()
	defer e.mu.Unlock()
	bl := make(map[string]struct{}, len(e.blacklist))
	for m := range e.blacklist {
		bl[m] = struct{}{}
	}
	return policy{blacklist: bl, maxPositionLimit: e.maxPositionLimit, minTradeSize: e.minTradeSize}
}

// ExecuteTrades 顺序处理差异，每个实际尝试（未跳过）的差异对应一个结果。
// 调用期间的策略修改从下一次调用开始生效；ctx 结束后不再处理后续差异
func (e *Executor) ExecuteTrades(ctx context.Context, diffs []domain.PositionDiff) []domain.TradeResult {
	p := e.snapshotPolicy()
	results := make([]domain.TradeResult, 0, len(diffs))

	for i, diff := range diffs {
		if ctx.Err() != nil {
			log.WithField("remaining", len(diffs)-i).Warn("context done, stopping trade batch")
			break
		}
		fields := logrus.Fields{"market": diff.Market, "outcome": diff.Outcome, "side": diff.Action}

		if _, ok := p.blacklist[diff.Market]; ok {
			log.WithFields(fields).Info("skipping blacklisted market")
			metrics.TradesSkipped.Add(1)
			continue
		}
		if notional := diff.Notional(); notional > p.maxPositionLimit {
			log.WithFields(fields).WithFields(logrus.Fields{"value": notional, "limit": p.maxPositionLimit}).
				Warn("trade exceeds position limit, skipping")
			metrics.TradesSkipped.Add(1)
			continue
		}
		if diff.Difference < p.minTradeSize {
			log.WithFields(fields).WithField("size", diff.Difference).Debug("trade size below minimum, skipping")
			metrics.TradesSkipped.Add(1)
			continue
		}

		result := e.executeTrade(ctx, diff)
		if result.Success {
			metrics.TradesExecuted.Add(1)
			log.WithFields(fields).WithFields(logrus.Fields{"size": result.Size, "price": result.Price, "orderID": result.OrderID}).
				Info("trade executed")
		} else {
			metrics.TradesFailed.Add(1)
			log.WithFields(fields).WithField("error", result.Error).Error("trade failed")
		}
		results = append(results, result)
		e.record(ctx, result)

		e.sleep(ctx, e.tradeDelay)
	}
	return results
}

func (e *Executor) executeTrade(ctx context.Context, diff domain.PositionDiff) (result domain.TradeResult) {
	failed := func(err error) domain.TradeResult {
		return domain.TradeResult{
			Success: false,
			Error:   err.Error(),
			Market:  diff.Market,
			Outcome: diff.Outcome,
			Side:    diff.Action,
			Size:    diff.Difference,
			Price:   diff.Price,
			At:      e.now(),
		}
	}
	defer func() {
		if r := recover(); r != nil {
			result = failed(fmt.Errorf("panic: %v", r))
		}
	}()

	price := diff.Price
	if quote, err := e.gw.GetMarketPrice(ctx, diff.Market, diff.Outcome).Take(); err == nil && quote > 0 {
		price = quote
	}

	att := Attestation{
		Market:    diff.Market,
		Outcome:   diff.Outcome,
		Side:      diff.Action,
		Price:     price,
		Size:      diff.Difference,
		Timestamp: e.now(),
	}
	sig, err := att.Sign(e.key)
	if err != nil {
		return failed(err)
	}

	var ack *domain.OrderAck
	switch diff.Action {
	case domain.ActionBuy:
		ack, err = e.gw.PlaceBuyOrder(ctx, diff.Market, diff.Outcome, price, diff.Difference, sig)
	case domain.ActionSell:
		ack, err = e.gw.PlaceSellOrder(ctx, diff.Market, diff.Outcome, price, diff.Difference, sig)
	default:
		err = fmt.Errorf("unknown action %q", diff.Action)
	}
	if err != nil {
		return failed(err)
	}

	res := domain.TradeResult{
		Success:   true,
		Market:    diff.Market,
		Outcome:   diff.Outcome,
		Side:      diff.Action,
		Size:      diff.Difference,
		Price:     price,
		Signature: sig,
		At:        att.Timestamp,
	}
	if ack != nil {
		res.OrderID = ack.OrderID
	}
	return res
}

func (e *Executor) record(ctx context.Context, r domain.TradeResult) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), r); err != nil {
		log.Warnf("record trade result: %v", err)
	}
}

func (e *Executor) AddToBlacklist(market string) {
	e.mu.Lock()
	e.blacklist[market] = struct{}{}
	e.mu.Unlock()
	log.WithField("market", market).Info("added market to blacklist")
}

func (e *Executor) RemoveFromBlacklist(market string) {
	e.mu.Lock()
	delete(e.blacklist, market)
	e.mu.Unlock()
	log.WithField("market", market).Info("removed market from blacklist")
}

// Blacklist 返回排序后的黑名单市场
func (e *Executor) Blacklist() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.blacklist))
	for m := range e.blacklist {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (e *Executor) SetMaxPositionLimit(limit float64) {
	e.mu.Lock()
	e.maxPositionLimit = limit
	e.mu.Unlock()
	log.WithField("limit", limit).Info("updated max position limit")
}

func (e *Executor) MaxPositionLimit() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxPositionLimit
}

func (e *Executor) MinTradeSize() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minTradeSize
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
