package domain

import "time"

// TradeResult 单笔纠偏交易的执行结果，生成后不再修改
type TradeResult struct {
	Success   bool
	OrderID   string
	Error     string
	Market    string
	Outcome   string
	Side      Action
	Size      float64
	Price     float64
	Signature string
	At        time.Time
}

// CountResults 统计成功与失败数量
func CountResults(results []TradeResult) (success, failed int) {
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
		}
	}
	return success, failed
}

// OrderAck 交易所受理结果
type OrderAck struct {
	OrderID   string
	Status    string
	Signature string // 附带的本地证明签名，仅用于日志与审计
}
