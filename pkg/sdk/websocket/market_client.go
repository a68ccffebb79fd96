package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "ws-market")

// MarketClient 管理市场频道连接：订阅、心跳、断线重连
type MarketClient struct {
	config Config
	dialer *websocket.Dialer
}

// NewMarketClient 创建市场频道客户端，零值字段使用默认配置
func NewMarketClient(config Config) (*MarketClient, error) {
	def := DefaultConfig()
	if config.URL == "" {
		config.URL = def.URL
	}
	if config.PingInterval <= 0 {
		config.PingInterval = def.PingInterval
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = def.HandshakeTimeout
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = def.ReconnectDelay
	}
	if config.MaxReconnectDelay < config.ReconnectDelay {
		config.MaxReconnectDelay = def.MaxReconnectDelay
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: config.HandshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	if config.ProxyURL != "" {
		proxyURL, err := url.Parse(config.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("无效的代理 URL: %w", err)
		}
		dialer.Proxy = http.ProxyURL(proxyURL)
	}
	return &MarketClient{config: config, dialer: dialer}, nil
}

// Run 订阅 assetIDs 并把行情交给 handler，直到 ctx 结束。
// 连接意外断开时按指数退避重连并重新订阅；ctx 结束时返回 nil
func (c *MarketClient) Run(ctx context.Context, assetIDs []string, handler Handler) error {
	if len(assetIDs) == 0 {
		return fmt.Errorf("订阅资产列表为空")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.ReconnectDelay
	b.MaxInterval = c.config.MaxReconnectDelay

	for attempt := 1; ; attempt++ {
		started := time.Now()
		err := c.session(ctx, assetIDs, handler)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) >= stableSessionAfter {
			b.Reset()
			attempt = 1
		}

		wait := b.NextBackOff()
		log.Warnf("连接中断: %v, %v 后重连 (第 %d 次)", err, wait, attempt)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session 单次连接：订阅、心跳、读循环，连接断开或 ctx 结束时返回
func (c *MarketClient) session(ctx context.Context, assetIDs []string, handler Handler) error {
	headers := make(http.Header)
	headers.Set("User-Agent", "polymarket-client/1.0")

	conn, _, err := c.dialer.DialContext(ctx, c.config.URL, headers)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(fn func() error) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return fn()
	}

	sub := subscribeMessage{AssetsIDs: assetIDs, Type: "market", CustomFeatureEnabled: true}
	if err := write(func() error { return conn.WriteJSON(sub) }); err != nil {
		return fmt.Errorf("发送订阅失败: %w", err)
	}
	log.Infof("已订阅 %d 个资产", len(assetIDs))

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = write(func() error {
					return conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				})
				// 关闭连接以唤醒阻塞中的读循环
				_ = conn.Close()
				return
			case <-ticker.C:
				// 文本 PING，服务端回复文本 PONG
				if err := write(func() error { return conn.WriteMessage(websocket.TextMessage, []byte("PING")) }); err != nil {
					log.Debugf("PING 发送失败: %v", err)
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("读取失败: %w", err)
		}
		for _, q := range ParseMarketMessage(data) {
			handler(q)
		}
	}
}
