package types

import "strconv"

// OrderBookSummary 订单簿摘要
type OrderBookSummary struct {
	Market       string         `json:"market"`
	AssetID      string         `json:"asset_id"`
	Timestamp    string         `json:"timestamp"`
	Bids         []OrderSummary `json:"bids"`
	Asks         []OrderSummary `json:"asks"`
	MinOrderSize string         `json:"min_order_size"`
	TickSize     string         `json:"tick_size"`
	NegRisk      bool           `json:"neg_risk"`
	Hash         string         `json:"hash"`
}

// OrderSummary 订单簿档位
type OrderSummary struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BestBid 所有买档中的最高价，无有效档位时 ok=false
func (b *OrderBookSummary) BestBid() (float64, bool) {
	best, ok := 0.0, false
	for _, lvl := range b.Bids {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		if !ok || p > best {
			best, ok = p, true
		}
	}
	return best, ok
}

// BestAsk 所有卖档中的最低价，无有效档位时 ok=false
func (b *OrderBookSummary) BestAsk() (float64, bool) {
	best, ok := 0.0, false
	for _, lvl := range b.Asks {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		if !ok || p < best {
			best, ok = p, true
		}
	}
	return best, ok
}

// MarketToken CLOB 市场中的单个结果代币
type MarketToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// Market CLOB /markets/{conditionId} 响应
type Market struct {
	ConditionID      string        `json:"condition_id"`
	QuestionID       string        `json:"question_id"`
	Question         string        `json:"question"`
	MarketSlug       string        `json:"market_slug"`
	Active           bool          `json:"active"`
	Closed           bool          `json:"closed"`
	NegRisk          bool          `json:"neg_risk"`
	MinimumTickSize  float64       `json:"minimum_tick_size"`
	MinimumOrderSize float64       `json:"minimum_order_size"`
	Tokens           []MarketToken `json:"tokens"`
}

// TokenFor 按结果名称查找代币
func (m *Market) TokenFor(outcome string) (MarketToken, bool) {
	for _, t := range m.Tokens {
		if t.Outcome == outcome {
			return t, true
		}
	}
	return MarketToken{}, false
}

// TickSizeResponse /tick-size 响应
type TickSizeResponse struct {
	MinimumTickSize float64 `json:"minimum_tick_size"`
}

// NegRiskResponse /neg-risk 响应
type NegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}
