package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// fakeMarketServer 每个连接读取订阅消息，下发一条 best_bid_ask，随后按 closeAfterSend 决定是否断开
type fakeMarketServer struct {
	srv            *httptest.Server
	connections    atomic.Int32
	closeAfterSend bool

	mu   sync.Mutex
	subs []subscribeMessage
}

func newFakeMarketServer(t *testing.T, closeAfterSend bool) *fakeMarketServer {
	t.Helper()
	f := &fakeMarketServer{closeAfterSend: closeAfterSend}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := f.connections.Add(1)

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		f.mu.Lock()
		f.subs = append(f.subs, sub)
		f.mu.Unlock()

		msg := `{"event_type":"best_bid_ask","asset_id":"` + sub.AssetsIDs[0] + `","best_bid":"0.5","best_ask":"0.6"}`
		if n > 1 {
			msg = `{"event_type":"best_bid_ask","asset_id":"` + sub.AssetsIDs[0] + `","best_bid":"0.7","best_ask":"0.8"}`
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
		if f.closeAfterSend && n == 1 {
			return
		}
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "PING" {
				_ = conn.WriteMessage(websocket.TextMessage, []byte("PONG"))
			}
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeMarketServer) wsURL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func TestMarketClient_SubscribeAndDeliver(t *testing.T) {
	f := newFakeMarketServer(t, false)
	client, err := NewMarketClient(Config{URL: f.wsURL(), PingInterval: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	quotes := make(chan Quote, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Run(ctx, []string{"up", "down"}, func(q Quote) { quotes <- q })
	}()

	select {
	case q := <-quotes:
		if q.AssetID != "up" || q.BestAsk != 0.6 || q.BestBid != 0.5 {
			t.Fatalf("行情不符: %+v", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("未收到行情")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("ctx 结束应返回 nil，得到 %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run 未在 ctx 结束后返回")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) != 1 {
		t.Fatalf("期望 1 次订阅，得到 %d", len(f.subs))
	}
	sub := f.subs[0]
	if sub.Type != "market" || !sub.CustomFeatureEnabled || len(sub.AssetsIDs) != 2 {
		t.Errorf("订阅消息不符: %+v", sub)
	}
}

func TestMarketClient_ReconnectsAfterServerClose(t *testing.T) {
	f := newFakeMarketServer(t, true)
	client, err := NewMarketClient(Config{
		URL:               f.wsURL(),
		ReconnectDelay:    10 * time.Millisecond,
		MaxReconnectDelay: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quotes := make(chan Quote, 4)
	go func() { _ = client.Run(ctx, []string{"up"}, func(q Quote) { quotes <- q }) }()

	var got []float64
	timeout := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case q := <-quotes:
			got = append(got, q.BestAsk)
		case <-timeout:
			t.Fatalf("重连后未收到行情，已收到 %v", got)
		}
	}
	if got[0] != 0.6 || got[1] != 0.8 {
		t.Errorf("期望 [0.6 0.8]，得到 %v", got)
	}
	if n := f.connections.Load(); n < 2 {
		t.Errorf("期望至少 2 次连接，得到 %d", n)
	}
}

func TestMarketClient_EmptyAssets(t *testing.T) {
	client, err := NewMarketClient(Config{})
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	if err := client.Run(context.Background(), nil, func(Quote) {}); err == nil {
		t.Fatal("空资产列表应返回错误")
	}
}

func TestNewMarketClient_InvalidProxy(t *testing.T) {
	if _, err := NewMarketClient(Config{ProxyURL: "://bad"}); err == nil {
		t.Fatal("无效代理应返回错误")
	}
}
