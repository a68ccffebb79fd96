package copybot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/metrics"
	"github.com/betbot/copybot/internal/redeem"
)

var log = logrus.WithField("component", "copybot")

const (
	DefaultPollingInterval = 4 * time.Second
	DefaultRedeemInterval  = 2 * time.Hour
)

// PositionMonitor 机器人驱动的监控接口
type PositionMonitor interface {
	Start(ctx context.Context) error
	Stop()
	Wait()
	IsActive() bool
	CalculatePositionDiffs() []domain.PositionDiff
	CurrentPositions() domain.PositionSnapshot
	TargetPositions() domain.PositionSnapshot
	LastUpdated() time.Time
}

type TradeExecutor interface {
	ExecuteTrades(ctx context.Context, diffs []domain.PositionDiff) []domain.TradeResult
}

type RedeemSweeper interface {
	Sweep(ctx context.Context) (redeem.Summary, error)
}

type Config struct {
	TargetUser      string
	MyUser          string
	PollingInterval time.Duration
	AutoRedeem      bool
	RedeemInterval  time.Duration
}

type Deps struct {
	Monitor  PositionMonitor
	Executor TradeExecutor
	Sweeper  RedeemSweeper // 可选
}

// CycleSummary 一次执行周期的摘要
type CycleSummary struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Diffs     int           `json:"diffs"`
	Total     int           `json:"total"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

type Status struct {
	IsRunning        bool          `json:"isRunning"`
	TargetUser       string        `json:"targetUser"`
	MyUser           string        `json:"myUser"`
	CurrentPositions int           `json:"currentPositions"`
	TargetPositions  int           `json:"targetPositions"`
	LastUpdated      time.Time     `json:"lastUpdated"`
	LastCycle        *CycleSummary `json:"lastCycle,omitempty"`
}

// Bot 按固定节奏把监控结果交给执行器
type Bot struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	cycleMu   sync.Mutex
	lastMu    sync.RWMutex
	lastCycle *CycleSummary

	now func() time.Time
}

func New(cfg Config, deps Deps) *Bot {
	if cfg.PollingInterval <= 0 {
		cfg.PollingInterval = DefaultPollingInterval
	}
	if cfg.RedeemInterval <= 0 {
		cfg.RedeemInterval = DefaultRedeemInterval
	}
	return &Bot{cfg: cfg, deps: deps, now: time.Now}
}

// Start 启动监控与执行循环（开启自动赎回时还有赎回循环）；监控启动失败时保持停止状态
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		log.Warn("bot is already running")
		return nil
	}

	log.Info("starting copy trading bot")
	if err := b.deps.Monitor.Start(ctx); err != nil {
		log.Errorf("failed to start bot: %v", err)
		return fmt.Errorf("start monitor: %w", err)
	}

	b.running = true
	b.stopCh = make(chan struct{})

	b.wg.Add(1)
	go b.executionLoop(ctx, b.stopCh)

	if b.cfg.AutoRedeem {
		if b.deps.Sweeper == nil {
			log.Warn("auto redeem enabled but no sweeper configured")
		} else {
			b.wg.Add(1)
			go b.redeemLoop(ctx, b.stopCh)
		}
	}
	log.Info("bot started")
	return nil
}

// Stop 通知循环与监控退出，进行中的周期会执行完
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		log.Warn("bot is not running")
		return
	}
	log.Info("stopping copy trading bot")
	b.running = false
	b.deps.Monitor.Stop()
	close(b.stopCh)
}

// Wait 阻塞到所有循环退出
func (b *Bot) Wait() {
	b.wg.Wait()
	b.deps.Monitor.Wait()
}

func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bot) executionLoop(ctx context.Context, stop <-chan struct{}) {
	defer b.wg.Done()
	b.RunCycle(ctx)

	ticker := time.NewTicker(b.cfg.PollingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			b.RunCycle(ctx)
		}
	}
}

func (b *Bot) redeemLoop(ctx context.Context, stop <-chan struct{}) {
	defer b.wg.Done()
	b.runSweep(ctx)

	ticker := time.NewTicker(b.cfg.RedeemInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			b.runSweep(ctx)
		}
	}
}

func (b *Bot) runSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("panic in redeem sweep: %v", r)
		}
	}()
	log.Info("checking for resolved positions to redeem")
	sum, err := b.deps.Sweeper.Sweep(ctx)
	if err != nil {
		log.Errorf("auto redeem: %v", err)
		return
	}
	metrics.RedeemSweeps.Add(1)
	metrics.RedeemSubmitted.Add(int64(sum.Submitted))
	log.WithFields(logrus.Fields{"found": sum.Found, "submitted": sum.Submitted, "failed": sum.Failed}).Info("redeem sweep done")
}

// RunCycle 基于最新快照计算差异并执行；周期不会重叠，错误与 panic 记录到日志和摘要
func (b *Bot) RunCycle(ctx context.Context) (sum CycleSummary) {
	b.cycleMu.Lock()
	defer b.cycleMu.Unlock()

	sum = CycleSummary{ID: uuid.NewString(), StartedAt: b.now()}
	clog := log.WithField("cycle", sum.ID)
	metrics.CopyCycles.Add(1)
	defer func() {
		if r := recover(); r != nil {
			sum.Error = fmt.Sprintf("panic: %v", r)
			metrics.CopyCyclePanics.Add(1)
			clog.Errorf("error in trade execution loop: %v", r)
		}
		sum.Duration = b.now().Sub(sum.StartedAt)
		b.lastMu.Lock()
		cp := sum
		b.lastCycle = &cp
		b.lastMu.Unlock()
	}()

	diffs := b.deps.Monitor.CalculatePositionDiffs()
	sum.Diffs = len(diffs)
	if len(diffs) == 0 {
		clog.Debug("no position differences found")
		return sum
	}

	clog.WithField("count", len(diffs)).Info("found position differences, executing trades")
	results := b.deps.Executor.ExecuteTrades(ctx, diffs)
	sum.Total = len(results)
	sum.Success, sum.Failed = domain.CountResults(results)
	clog.WithFields(logrus.Fields{"total": sum.Total, "success": sum.Success, "failed": sum.Failed}).
		Info("trade execution completed")
	return sum
}

// Status 返回两份快照的市场数量
func (b *Bot) Status() Status {
	st := Status{
		IsRunning:        b.IsRunning(),
		TargetUser:       b.cfg.TargetUser,
		MyUser:           b.cfg.MyUser,
		CurrentPositions: b.deps.Monitor.CurrentPositions().MarketCount(),
		TargetPositions:  b.deps.Monitor.TargetPositions().MarketCount(),
		LastUpdated:      b.deps.Monitor.LastUpdated(),
	}
	b.lastMu.RLock()
	if b.lastCycle != nil {
		cp := *b.lastCycle
		st.LastCycle = &cp
	}
	b.lastMu.RUnlock()
	return st
}

// Positions 返回指定快照（"target" 或 "own"）的副本
func (b *Bot) Positions(account string) (domain.PositionSnapshot, bool) {
	switch account {
	case "target":
		return b.deps.Monitor.TargetPositions(), true
	case "own", "me", "":
		return b.deps.Monitor.CurrentPositions(), true
	}
	return nil, false
}
