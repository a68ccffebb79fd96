// Package websocket 提供 Polymarket 市场频道 WebSocket 客户端
package websocket

import "time"

const (
	// DefaultMarketURL 市场频道端点
	DefaultMarketURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

	defaultPingInterval      = 10 * time.Second // 官方要求每 10 秒发送一次 PING
	defaultHandshakeTimeout  = 15 * time.Second
	defaultReconnectDelay    = 2 * time.Second
	defaultMaxReconnectDelay = 30 * time.Second

	// 连接持续超过该时长视为稳定，重连退避归零
	stableSessionAfter = time.Minute
)

// EventType 市场频道事件类型
type EventType string

const (
	EventBook        EventType = "book"         // 订单簿快照
	EventBestBidAsk  EventType = "best_bid_ask" // 最优买卖价（custom_feature_enabled）
	EventPriceChange EventType = "price_change" // 价格变化
)

// Quote 单个资产的最优买卖价
type Quote struct {
	AssetID string
	BestAsk float64
	BestBid float64 // 缺失时为 0
	Event   EventType
}

// Handler 行情回调，在读循环中同步调用
type Handler func(Quote)

// Config 客户端配置
type Config struct {
	URL               string
	ProxyURL          string        // 可选
	PingInterval      time.Duration // 文本 PING 间隔
	HandshakeTimeout  time.Duration
	ReconnectDelay    time.Duration // 首次重连延迟
	MaxReconnectDelay time.Duration // 重连延迟上限
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		URL:               DefaultMarketURL,
		PingInterval:      defaultPingInterval,
		HandshakeTimeout:  defaultHandshakeTimeout,
		ReconnectDelay:    defaultReconnectDelay,
		MaxReconnectDelay: defaultMaxReconnectDelay,
	}
}

// subscribeMessage 市场频道订阅消息
type subscribeMessage struct {
	AssetsIDs            []string `json:"assets_ids"`
	Type                 string   `json:"type"`
	CustomFeatureEnabled bool     `json:"custom_feature_enabled"`
}
