package monitor

import "github.com/betbot/copybot/internal/domain"

// Epsilon 份额噪声阈值，差值不超过它时忽略
const Epsilon = 0.01

// CalculateDiffs 计算让 own 对齐 target 所需的纠偏交易（纯函数，结果确定）：
// 先遍历 target 的市场（按 target 价格买入或部分卖出），
// 再处理只有自己持有的仓位（按自己的价格全部卖出）。市场与结果均按排序顺序遍历
func CalculateDiffs(target, own domain.PositionSnapshot) []domain.PositionDiff {
	var diffs []domain.PositionDiff

	for _, market := range target.Markets() {
		for _, outcome := range target.Outcomes(market) {
			t := target[market][outcome]
			if t.Shares < Epsilon {
				// 由第二阶段作为强制平仓处理
				continue
			}
			current := 0.0
			if p, ok := own.Get(market, outcome); ok {
				current = p.Shares
			}
			delta := t.Shares - current
			switch {
			case delta > Epsilon:
				diffs = append(diffs, domain.PositionDiff{
					Market:        market,
					Outcome:       outcome,
					Action:        domain.ActionBuy,
					TargetShares:  t.Shares,
					CurrentShares: current,
					Difference:    delta,
					Price:         t.Price,
				})
			case delta < -Epsilon:
				diffs = append(diffs, domain.PositionDiff{
					Market:        market,
					Outcome:       outcome,
					Action:        domain.ActionSell,
					TargetShares:  t.Shares,
					CurrentShares: current,
					Difference:    -delta,
					Price:         t.Price,
				})
			}
		}
	}

	for _, market := range own.Markets() {
		for _, outcome := range own.Outcomes(market) {
			p := own[market][outcome]
			if p.Shares <= Epsilon {
				continue
			}
			targetShares := 0.0
			if t, ok := target.Get(market, outcome); ok {
				targetShares = t.Shares
			}
			if targetShares >= Epsilon {
				continue
			}
			diffs = append(diffs, domain.PositionDiff{
				Market:        market,
				Outcome:       outcome,
				Action:        domain.ActionSell,
				TargetShares:  targetShares,
				CurrentShares: p.Shares,
				Difference:    p.Shares,
				Price:         p.Price,
			})
		}
	}
	return diffs
}
