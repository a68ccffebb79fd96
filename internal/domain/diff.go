package domain

// Action 纠偏方向
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// PositionDiff 单个 (market, outcome) 的纠偏交易
type PositionDiff struct {
	Market        string
	Outcome       string
	Action        Action
	TargetShares  float64
	CurrentShares float64
	Difference    float64 // 恒为非负
	Price         float64
}

// Notional 差额 × 价格
func (d PositionDiff) Notional() float64 {
	return d.Difference * d.Price
}
