package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/metrics"
	"github.com/betbot/copybot/internal/ports"
)

var log = logrus.WithField("component", "monitor")

// Monitor 轮询目标账户与自己的账户，保存最新一对快照；两份快照总是一起替换
type Monitor struct {
	source     ports.PositionSource
	targetUser string
	myUser     string
	interval   time.Duration

	mu          sync.RWMutex
	target      domain.PositionSnapshot
	own         domain.PositionSnapshot
	lastUpdated time.Time

	runMu  sync.Mutex
	active bool
	stopCh chan struct{}
	done   chan struct{}

	now func() time.Time
}

func New(source ports.PositionSource, targetUser, myUser string, interval time.Duration) *Monitor {
	return &Monitor{
		source:     source,
		targetUser: targetUser,
		myUser:     myUser,
		interval:   interval,
		target:     make(domain.PositionSnapshot),
		own:        make(domain.PositionSnapshot),
		now:        time.Now,
	}
}

// Start 先同步拉取一次，再启动轮询循环；首次拉取失败时保持未激活
func (m *Monitor) Start(ctx context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.active {
		log.Warn("monitoring already active")
		return nil
	}
	if err := m.UpdatePositions(ctx); err != nil {
		return err
	}

	m.active = true
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(ctx, m.stopCh, m.done)
	log.Infof("monitoring target=%s own=%s every %s", m.targetUser, m.myUser, m.interval)
	return nil
}

// Stop 通知循环退出，进行中的拉取允许完成
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.active {
		log.Warn("monitoring not active")
		return
	}
	m.active = false
	close(m.stopCh)
	log.Info("monitoring stopped")
}

// Wait 阻塞到最近一次启动的循环退出
func (m *Monitor) Wait() {
	m.runMu.Lock()
	done := m.done
	m.runMu.Unlock()
	if done != nil {
		<-done
	}
}

func (m *Monitor) IsActive() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.active
}

func (m *Monitor) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		select {
		case <-stop:
			return
		default:
		}
		if err := m.UpdatePositions(ctx); err != nil {
			metrics.SnapshotErrors.Add(1)
			log.Errorf("update positions: %v", err)
		} else {
			metrics.SnapshotRefresh.Add(1)
		}
		timer.Reset(m.interval)
	}
}

// UpdatePositions 并发拉取两个账户，两个请求都会结束；
// 任一失败则保留上一对快照并返回第一个错误
func (m *Monitor) UpdatePositions(ctx context.Context) error {
	var (
		target, own domain.PositionSnapshot
		g           errgroup.Group
	)
	g.Go(func() error {
		s, err := m.source.GetUserPositions(ctx, m.targetUser)
		target = s
		return err
	})
	g.Go(func() error {
		s, err := m.source.GetUserPositions(ctx, m.myUser)
		own = s
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if target == nil {
		target = make(domain.PositionSnapshot)
	}
	if own == nil {
		own = make(domain.PositionSnapshot)
	}

	m.mu.Lock()
	m.target = target
	m.own = own
	m.lastUpdated = m.now()
	m.mu.Unlock()

	log.Debugf("positions updated: target=%d markets own=%d markets", target.MarketCount(), own.MarketCount())
	return nil
}

// CalculatePositionDiffs 在一致的快照对上执行 CalculateDiffs
func (m *Monitor) CalculatePositionDiffs() []domain.PositionDiff {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CalculateDiffs(m.target, m.own)
}

// CurrentPositions 返回自己账户快照的副本
func (m *Monitor) CurrentPositions() domain.PositionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.own.Clone()
}

// TargetPositions 返回目标账户快照的副本
func (m *Monitor) TargetPositions() domain.PositionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target.Clone()
}

func (m *Monitor) LastUpdated() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUpdated
}
