package domain

import "time"

// SlotMarket BTC 15 分钟涨跌市场的单个周期
type SlotMarket struct {
	Slug        string    // btc-updown-15m-{unix}
	ConditionID string    // 条件 ID
	UpTokenID   string    // Up 结果代币
	DownTokenID string    // Down 结果代币
	SlotStart   time.Time // 周期开始时间
}

// IsValid 两个代币与 slug 都已解析
func (m *SlotMarket) IsValid() bool {
	return m != nil && m.Slug != "" && m.UpTokenID != "" && m.DownTokenID != ""
}

// TokenType token 类型
type TokenType string

const (
	TokenTypeUp   TokenType = "Up"
	TokenTypeDown TokenType = "Down"
)

// TokenTypeOf 根据资产 ID 判断 Up/Down
func (m *SlotMarket) TokenTypeOf(assetID string) (TokenType, bool) {
	switch assetID {
	case m.UpTokenID:
		return TokenTypeUp, true
	case m.DownTokenID:
		return TokenTypeDown, true
	}
	return "", false
}

// AssetIDs 订阅用的资产列表
func (m *SlotMarket) AssetIDs() []string {
	return []string{m.UpTokenID, m.DownTokenID}
}
