package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/copybot/internal/copybot"
	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/journal"
)

type fakeBot struct {
	status  copybot.Status
	current domain.PositionSnapshot
	target  domain.PositionSnapshot
}

func (b *fakeBot) Status() copybot.Status { return b.status }

func (b *fakeBot) Positions(account string) (domain.PositionSnapshot, bool) {
	switch account {
	case "target":
		return b.target, true
	case "own", "":
		return b.current, true
	}
	return nil, false
}

type fakeControls struct {
	mu        sync.Mutex
	blacklist map[string]bool
	limit     float64
}

func (c *fakeControls) AddToBlacklist(m string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blacklist[m] = true
}

func (c *fakeControls) RemoveFromBlacklist(m string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.blacklist, m)
}

func (c *fakeControls) Blacklist() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.blacklist))
	for m := range c.blacklist {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (c *fakeControls) SetMaxPositionLimit(l float64) { c.limit = l }
func (c *fakeControls) MaxPositionLimit() float64     { return c.limit }
func (c *fakeControls) MinTradeSize() float64         { return 1 }

type fakeTrades struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (f *fakeTrades) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func newTestServer(trades TradeLog) (*Server, *fakeControls) {
	current := domain.PositionSnapshot{}
	current.Put(domain.Position{Market: "m1", Outcome: "Yes", Shares: 10, Price: 0.5, Value: 5})
	target := domain.PositionSnapshot{}
	target.Put(domain.Position{Market: "m2", Outcome: "No", Shares: 4, Price: 0.25, Value: 1})

	bot := &fakeBot{
		status:  copybot.Status{IsRunning: true, TargetUser: "0xtarget", MyUser: "0xme", CurrentPositions: 1, TargetPositions: 1},
		current: current,
		target:  target,
	}
	controls := &fakeControls{blacklist: map[string]bool{"bad": true}, limit: 0.2}
	return New(bot, controls, trades), controls
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(nil)
	w := do(t, s.Router(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDebugVars(t *testing.T) {
	s, _ := newTestServer(nil)
	w := do(t, s.Router(), http.MethodGet, "/debug/vars", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "copy_cycles")
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(nil)
	w := do(t, s.Router(), http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsRunning)
	assert.Equal(t, "0xtarget", resp.TargetUser)
	assert.Equal(t, 0.2, resp.MaxPositionLimit)
	assert.Equal(t, 1.0, resp.MinTradeSize)
	assert.Equal(t, []string{"bad"}, resp.Blacklist)
}

func TestBlacklistRoutes(t *testing.T) {
	s, controls := newTestServer(nil)
	h := s.Router()

	w := do(t, h, http.MethodPost, "/api/blacklist", `{"market":"m9"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"bad", "m9"}, controls.Blacklist())

	w = do(t, h, http.MethodPost, "/api/blacklist", `{"market":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/blacklist/bad", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"m9"}, controls.Blacklist())

	w = do(t, h, http.MethodGet, "/api/blacklist", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Markets []string `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"m9"}, body.Markets)
}

func TestLimits(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want float64
	}{
		{name: "valid", body: `{"maxPositionLimit":0.5}`, code: http.StatusOK, want: 0.5},
		{name: "zero", body: `{"maxPositionLimit":0}`, code: http.StatusBadRequest, want: 0.2},
		{name: "negative", body: `{"maxPositionLimit":-1}`, code: http.StatusBadRequest, want: 0.2},
		{name: "malformed", body: `{"maxPositionLimit":`, code: http.StatusBadRequest, want: 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, controls := newTestServer(nil)
			w := do(t, s.Router(), http.MethodPut, "/api/limits", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.want, controls.MaxPositionLimit())
		})
	}
}

func TestPositions(t *testing.T) {
	s, _ := newTestServer(nil)
	h := s.Router()

	var body struct {
		Positions []PositionView `json:"positions"`
	}
	w := do(t, h, http.MethodGet, "/api/positions?account=target", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Positions, 1)
	assert.Equal(t, "m2", body.Positions[0].Market)

	w = do(t, h, http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Positions, 1)
	assert.Equal(t, "m1", body.Positions[0].Market)

	w = do(t, h, http.MethodGet, "/api/positions?account=nobody", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrades(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	trades := &fakeTrades{entries: []journal.Entry{{
		ID: "t1",
		TradeResult: domain.TradeResult{
			Success: true, OrderID: "o1", Market: "m1", Outcome: "Yes",
			Side: domain.ActionBuy, Size: 5, Price: 0.5, At: at,
		},
	}}}
	s, _ := newTestServer(trades)
	h := s.Router()

	w := do(t, h, http.MethodGet, "/api/trades?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, trades.limit)
	var body struct {
		Trades []TradeView `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Trades, 1)
	assert.Equal(t, "o1", body.Trades[0].OrderID)
	assert.Equal(t, "buy", body.Trades[0].Side)
	assert.True(t, at.Equal(body.Trades[0].At))

	w = do(t, h, http.MethodGet, "/api/trades?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	trades.err = errors.New("disk full")
	w = do(t, h, http.MethodGet, "/api/trades", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTrades_JournalDisabled(t *testing.T) {
	s, _ := newTestServer(nil)
	w := do(t, s.Router(), http.MethodGet, "/api/trades", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
