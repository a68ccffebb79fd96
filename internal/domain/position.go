package domain

import "sort"

// Position 某账户在 (market, outcome) 上的持仓快照
type Position struct {
	Market  string  // 市场 ID（conditionId）
	Outcome string  // 结果标签，如 "Yes" / "Up"
	Shares  float64 // 持有份额
	Price   float64 // 当前价格 [0,1]
	Value   float64 // Shares * Price，仅供展示
	TokenID string  // CLOB 资产 ID（上游提供时）
}

// PositionSnapshot 市场 → 结果 → Position
type PositionSnapshot map[string]map[string]Position

// Put 写入一条持仓
func (s PositionSnapshot) Put(p Position) {
	outcomes, ok := s[p.Market]
	if !ok {
		outcomes = make(map[string]Position)
		s[p.Market] = outcomes
	}
	outcomes[p.Outcome] = p
}

// Get 读取一条持仓
func (s PositionSnapshot) Get(market, outcome string) (Position, bool) {
	p, ok := s[market][outcome]
	return p, ok
}

// Clone 深拷贝
func (s PositionSnapshot) Clone() PositionSnapshot {
	out := make(PositionSnapshot, len(s))
	for market, outcomes := range s {
		cp := make(map[string]Position, len(outcomes))
		for outcome, p := range outcomes {
			cp[outcome] = p
		}
		out[market] = cp
	}
	return out
}

// MarketCount 市场数量
func (s PositionSnapshot) MarketCount() int {
	return len(s)
}

// Markets 按字典序返回市场 ID
func (s PositionSnapshot) Markets() []string {
	keys := make([]string, 0, len(s))
	for m := range s {
		keys = append(keys, m)
	}
	sort.Strings(keys)
	return keys
}

// Outcomes 按字典序返回某市场下的结果
func (s PositionSnapshot) Outcomes(market string) []string {
	keys := make([]string, 0, len(s[market]))
	for o := range s[market] {
		keys = append(keys, o)
	}
	sort.Strings(keys)
	return keys
}

// List 展开为有序列表
func (s PositionSnapshot) List() []Position {
	var out []Position
	for _, m := range s.Markets() {
		for _, o := range s.Outcomes(m) {
			out = append(out, s[m][o])
		}
	}
	return out
}

// RedeemablePosition 已结算、可赎回的持仓
type RedeemablePosition struct {
	Market  string
	Outcome string
	TokenID string
	Shares  float64
	Price   float64
	NegRisk bool
	Title   string
}
