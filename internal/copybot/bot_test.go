package copybot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/redeem"
)

type fakeMonitor struct {
	mu       sync.Mutex
	startErr error
	started  int
	stopped  int
	active   bool
	diffs    []domain.PositionDiff
	current  domain.PositionSnapshot
	target   domain.PositionSnapshot
	updated  time.Time
}

func (m *fakeMonitor) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
	if m.startErr != nil {
		return m.startErr
	}
	m.active = true
	return nil
}

func (m *fakeMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped++
	m.active = false
}

func (m *fakeMonitor) Wait() {}

func (m *fakeMonitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *fakeMonitor) CalculatePositionDiffs() []domain.PositionDiff {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diffs
}

func (m *fakeMonitor) CurrentPositions() domain.PositionSnapshot { return m.current.Clone() }
func (m *fakeMonitor) TargetPositions() domain.PositionSnapshot  { return m.target.Clone() }
func (m *fakeMonitor) LastUpdated() time.Time                    { return m.updated }

type fakeExecutor struct {
	calls   atomic.Int32
	results []domain.TradeResult
	panic   bool
}

func (e *fakeExecutor) ExecuteTrades(_ context.Context, diffs []domain.PositionDiff) []domain.TradeResult {
	e.calls.Add(1)
	if e.panic {
		panic("boom")
	}
	return e.results
}

type fakeSweeper struct {
	calls atomic.Int32
}

func (s *fakeSweeper) Sweep(context.Context) (redeem.Summary, error) {
	s.calls.Add(1)
	return redeem.Summary{}, nil
}

func snapshot(ps ...domain.Position) domain.PositionSnapshot {
	s := domain.PositionSnapshot{}
	for _, p := range ps {
		s.Put(p)
	}
	return s
}

func TestStart_MonitorFailureLeavesBotStopped(t *testing.T) {
	mon := &fakeMonitor{startErr: errors.New("data api down")}
	exec := &fakeExecutor{}
	bot := New(Config{PollingInterval: time.Hour}, Deps{Monitor: mon, Executor: exec})

	err := bot.Start(context.Background())
	require.Error(t, err)
	assert.False(t, bot.IsRunning())
	assert.Equal(t, int32(0), exec.calls.Load())
}

func TestStart_TwiceIsNoop(t *testing.T) {
	mon := &fakeMonitor{}
	exec := &fakeExecutor{}
	bot := New(Config{PollingInterval: time.Hour}, Deps{Monitor: mon, Executor: exec})

	require.NoError(t, bot.Start(context.Background()))
	require.NoError(t, bot.Start(context.Background()))
	assert.Equal(t, 1, mon.started)
	assert.True(t, bot.IsRunning())

	bot.Stop()
	bot.Wait()
	assert.False(t, bot.IsRunning())
	assert.Equal(t, 1, mon.stopped)

	// stopping again only warns
	bot.Stop()
	assert.Equal(t, 1, mon.stopped)
}

func TestStart_RunsFirstCycleImmediately(t *testing.T) {
	mon := &fakeMonitor{diffs: []domain.PositionDiff{{Market: "m", Outcome: "Yes", Action: domain.ActionBuy, Difference: 5, Price: 0.5}}}
	exec := &fakeExecutor{results: []domain.TradeResult{{Success: true}}}
	bot := New(Config{PollingInterval: time.Hour}, Deps{Monitor: mon, Executor: exec})

	require.NoError(t, bot.Start(context.Background()))
	assert.Eventually(t, func() bool { return exec.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	bot.Stop()
	bot.Wait()

	st := bot.Status()
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, 1, st.LastCycle.Success)
}

func TestRunCycle_Summary(t *testing.T) {
	mon := &fakeMonitor{diffs: []domain.PositionDiff{
		{Market: "a", Outcome: "Yes", Action: domain.ActionBuy, Difference: 5, Price: 0.5},
		{Market: "b", Outcome: "No", Action: domain.ActionSell, Difference: 3, Price: 0.4},
	}}
	exec := &fakeExecutor{results: []domain.TradeResult{{Success: true}, {Success: false, Error: "rejected"}}}
	bot := New(Config{}, Deps{Monitor: mon, Executor: exec})

	sum := bot.RunCycle(context.Background())
	assert.NotEmpty(t, sum.ID)
	assert.Equal(t, 2, sum.Diffs)
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Success)
	assert.Equal(t, 1, sum.Failed)
	assert.Empty(t, sum.Error)
}

func TestRunCycle_NoDiffsSkipsExecutor(t *testing.T) {
	mon := &fakeMonitor{}
	exec := &fakeExecutor{}
	bot := New(Config{}, Deps{Monitor: mon, Executor: exec})

	sum := bot.RunCycle(context.Background())
	assert.Equal(t, 0, sum.Diffs)
	assert.Equal(t, int32(0), exec.calls.Load())
}

func TestRunCycle_RecoversPanic(t *testing.T) {
	mon := &fakeMonitor{diffs: []domain.PositionDiff{{Market: "a", Outcome: "Yes", Difference: 1, Price: 0.5}}}
	exec := &fakeExecutor{panic: true}
	bot := New(Config{}, Deps{Monitor: mon, Executor: exec})

	sum := bot.RunCycle(context.Background())
	assert.Contains(t, sum.Error, "boom")

	st := bot.Status()
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, sum.ID, st.LastCycle.ID)
}

func TestStatus(t *testing.T) {
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mon := &fakeMonitor{
		current: snapshot(domain.Position{Market: "a", Outcome: "Yes", Shares: 1}),
		target: snapshot(
			domain.Position{Market: "a", Outcome: "Yes", Shares: 2},
			domain.Position{Market: "b", Outcome: "No", Shares: 3},
			domain.Position{Market: "b", Outcome: "Yes", Shares: 1},
		),
		updated: updated,
	}
	bot := New(Config{TargetUser: "0xtarget", MyUser: "0xme"}, Deps{Monitor: mon, Executor: &fakeExecutor{}})

	st := bot.Status()
	assert.False(t, st.IsRunning)
	assert.Equal(t, "0xtarget", st.TargetUser)
	assert.Equal(t, "0xme", st.MyUser)
	assert.Equal(t, 1, st.CurrentPositions)
	assert.Equal(t, 2, st.TargetPositions)
	assert.Equal(t, updated, st.LastUpdated)
	assert.Nil(t, st.LastCycle)
}

func TestPositions(t *testing.T) {
	mon := &fakeMonitor{
		current: snapshot(domain.Position{Market: "a", Outcome: "Yes", Shares: 1}),
		target:  snapshot(domain.Position{Market: "b", Outcome: "No", Shares: 2}),
	}
	bot := New(Config{}, Deps{Monitor: mon, Executor: &fakeExecutor{}})

	own, ok := bot.Positions("own")
	require.True(t, ok)
	_, found := own.Get("a", "Yes")
	assert.True(t, found)

	target, ok := bot.Positions("target")
	require.True(t, ok)
	_, found = target.Get("b", "No")
	assert.True(t, found)

	_, ok = bot.Positions("someone")
	assert.False(t, ok)
}

func TestRedeemLoop(t *testing.T) {
	tests := []struct {
		name       string
		autoRedeem bool
		want       int32
	}{
		{name: "enabled", autoRedeem: true, want: 1},
		{name: "disabled", autoRedeem: false, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sw := &fakeSweeper{}
			bot := New(Config{PollingInterval: time.Hour, AutoRedeem: tt.autoRedeem, RedeemInterval: time.Hour},
				Deps{Monitor: &fakeMonitor{}, Executor: &fakeExecutor{}, Sweeper: sw})

			require.NoError(t, bot.Start(context.Background()))
			if tt.want > 0 {
				assert.Eventually(t, func() bool { return sw.calls.Load() == tt.want }, time.Second, 5*time.Millisecond)
			} else {
				time.Sleep(20 * time.Millisecond)
			}
			bot.Stop()
			bot.Wait()
			assert.Equal(t, tt.want, sw.calls.Load())
		})
	}
}
