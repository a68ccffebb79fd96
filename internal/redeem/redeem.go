package redeem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/ports"
)

var log = logrus.WithField("component", "redeem")

const (
	// 同一市场提交后 10 分钟内不再重复提交
	resubmitAfter = 10 * time.Minute
	// 单轮最多提交数量
	maxRedeemsPerCycle = 50
	// 两次提交之间的间隔
	redeemDelay = 5 * time.Second
)

// Redeemer 把已结算仓位赎回为抵押品
type Redeemer interface {
	Redeem(ctx context.Context, pos domain.RedeemablePosition) (txHash string, err error)
}

// Summary 一次扫描的统计
type Summary struct {
	Found     int
	Submitted int
	Failed    int
}

// Sweeper 查找已结算仓位并交给 Redeemer
type Sweeper struct {
	source   ports.RedeemableSource
	redeemer Redeemer
	address  string

	mu        sync.Mutex
	submitted map[string]time.Time

	delay time.Duration
	now   func() time.Time
}

type Option func(*Sweeper)

// WithDelay 两次赎回提交之间的间隔
func WithDelay(d time.Duration) Option {
	return func(s *Sweeper) { s.delay = d }
}

func NewSweeper(source ports.RedeemableSource, redeemer Redeemer, address string, opts ...Option) *Sweeper {
	s := &Sweeper{
		source:    source,
		redeemer:  redeemer,
		address:   address,
		submitted: make(map[string]time.Time),
		delay:     redeemDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep 执行一轮赎回
func (s *Sweeper) Sweep(ctx context.Context) (Summary, error) {
	var sum Summary
	s.evictOld()

	positions, err := s.source.GetRedeemablePositions(ctx, s.address)
	if err != nil {
		return sum, err
	}

	var todo []domain.RedeemablePosition
	seen := make(map[string]bool)
	for _, p := range positions {
		if !resolved(p.Price) || seen[p.Market] || s.alreadySubmitted(p.Market) {
			continue
		}
		seen[p.Market] = true
		todo = append(todo, p)
	}
	sum.Found = len(todo)
	if len(todo) == 0 {
		log.Debug("no resolved positions to redeem")
		return sum, nil
	}
	if len(todo) > maxRedeemsPerCycle {
		log.Infof("found %d redeemable markets, processing %d this cycle", len(todo), maxRedeemsPerCycle)
		todo = todo[:maxRedeemsPerCycle]
	} else {
		log.Infof("found %d redeemable markets", len(todo))
	}

	for i, p := range todo {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			case <-time.After(s.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		hash, err := s.redeemer.Redeem(ctx, p)
		if err != nil {
			sum.Failed++
			log.WithFields(logrus.Fields{"market": p.Market, "title": p.Title}).Warnf("redeem failed: %v", err)
			continue
		}
		sum.Submitted++
		s.markSubmitted(p.Market)
		log.WithFields(logrus.Fields{"market": p.Market, "outcome": p.Outcome, "shares": p.Shares, "tx": hash}).Info("redeem submitted")
	}
	return sum, nil
}

func resolved(price float64) bool {
	return price < 0.001 || price > 0.999
}

func (s *Sweeper) alreadySubmitted(market string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.submitted[market]
	return ok
}

func (s *Sweeper) markSubmitted(market string) {
	s.mu.Lock()
	s.submitted[market] = s.now()
	s.mu.Unlock()
}

func (s *Sweeper) evictOld() {
	cutoff := s.now().Add(-resubmitAfter)
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.submitted {
		if at.Before(cutoff) {
			delete(s.submitted, k)
		}
	}
}

// CTF CTFRedeemer 用到的链上接口
type CTF interface {
	IsResolved(ctx context.Context, conditionID string) (bool, error)
	RedeemPositions(ctx context.Context, conditionID string) (common.Hash, error)
}

// CTFRedeemer 由签名 EOA 直接调用 ConditionalTokens 合约赎回；
// neg-risk 市场经 adapter 结算，这里不处理
type CTFRedeemer struct {
	ctf CTF
}

func NewCTFRedeemer(ctf CTF) *CTFRedeemer {
	return &CTFRedeemer{ctf: ctf}
}

func (r *CTFRedeemer) Redeem(ctx context.Context, pos domain.RedeemablePosition) (string, error) {
	if pos.NegRisk {
		return "", fmt.Errorf("neg-risk market %s needs adapter redemption", pos.Market)
	}
	ok, err := r.ctf.IsResolved(ctx, pos.Market)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("condition %s not resolved on chain yet", pos.Market)
	}
	hash, err := r.ctf.RedeemPositions(ctx, pos.Market)
	if err != nil {
		return "", err
	}
	return hash.Hex(), nil
}

// LogRedeemer 只打印待赎回仓位；未配置链上访问或使用代理钱包时使用
type LogRedeemer struct{}

func (LogRedeemer) Redeem(_ context.Context, pos domain.RedeemablePosition) (string, error) {
	log.WithFields(logrus.Fields{
		"market":  pos.Market,
		"outcome": pos.Outcome,
		"shares":  pos.Shares,
		"title":   pos.Title,
	}).Info("resolved position ready for redemption")
	return "", nil
}
