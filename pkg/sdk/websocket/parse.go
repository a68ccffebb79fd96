package websocket

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type priceChange struct {
	AssetID string `json:"asset_id"`
	BestAsk string `json:"best_ask"`
	BestBid string `json:"best_bid"`
}

type marketMessage struct {
	EventType    EventType     `json:"event_type"`
	AssetID      string        `json:"asset_id"`
	BestAsk      string        `json:"best_ask"`
	BestBid      string        `json:"best_bid"`
	Asks         []bookLevel   `json:"asks"`
	Bids         []bookLevel   `json:"bids"`
	PriceChanges []priceChange `json:"price_changes"`
}

// ParseMarketMessage 从一条原始消息中提取行情。
// PONG、无法解析的消息以及没有有效卖一价的更新都返回空
func ParseMarketMessage(data []byte) []Quote {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var msgs []marketMessage
	switch data[0] {
	case '{':
		var m marketMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil
		}
		msgs = []marketMessage{m}
	case '[':
		// 订阅后的首个订单簿快照以数组形式下发
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil
		}
	default:
		return nil
	}

	var out []Quote
	for _, m := range msgs {
		out = append(out, m.quotes()...)
	}
	return out
}

func (m marketMessage) quotes() []Quote {
	switch m.EventType {
	case EventBook:
		if m.AssetID == "" {
			return nil
		}
		ask, ok := bestLevel(m.Asks, math.Inf(1), func(p, best float64) bool { return p < best })
		if !ok {
			return nil
		}
		bid, _ := bestLevel(m.Bids, math.Inf(-1), func(p, best float64) bool { return p > best })
		return []Quote{{AssetID: m.AssetID, BestAsk: ask, BestBid: bid, Event: EventBook}}

	case EventBestBidAsk:
		if m.AssetID == "" {
			return nil
		}
		ask, ok := parsePrice(m.BestAsk)
		if !ok {
			return nil
		}
		bid, _ := parsePrice(m.BestBid)
		return []Quote{{AssetID: m.AssetID, BestAsk: ask, BestBid: bid, Event: EventBestBidAsk}}

	case EventPriceChange:
		var out []Quote
		for _, pc := range m.PriceChanges {
			ask, ok := parsePrice(pc.BestAsk)
			if pc.AssetID == "" || !ok {
				continue
			}
			bid, _ := parsePrice(pc.BestBid)
			out = append(out, Quote{AssetID: pc.AssetID, BestAsk: ask, BestBid: bid, Event: EventPriceChange})
		}
		return out
	}
	return nil
}

// bestLevel 在档位中选出最优价格；没有有效档位时返回 (0, false)
func bestLevel(levels []bookLevel, init float64, better func(p, best float64) bool) (float64, bool) {
	best := init
	for _, l := range levels {
		p, ok := parsePrice(l.Price)
		if ok && better(p, best) {
			best = p
		}
	}
	if math.IsInf(best, 0) {
		return 0, false
	}
	return best, true
}

func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
