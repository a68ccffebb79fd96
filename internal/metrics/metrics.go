// Package metrics 两种机器人共用的进程级 expvar 计数器
package metrics

import "expvar"

var (
	CopyCycles       = expvar.NewInt("copy_cycles")
	CopyCyclePanics  = expvar.NewInt("copy_cycle_panics")
	SnapshotRefresh  = expvar.NewInt("snapshot_refreshes")
	SnapshotErrors   = expvar.NewInt("snapshot_refresh_errors")
	TradesExecuted   = expvar.NewInt("trades_executed")
	TradesFailed     = expvar.NewInt("trades_failed")
	TradesSkipped    = expvar.NewInt("trades_skipped")
	RedeemSweeps     = expvar.NewInt("redeem_sweeps")
	RedeemSubmitted  = expvar.NewInt("redeem_submitted")
	TriggerFired     = expvar.NewInt("price_triggers")
	TriggerBuys      = expvar.NewInt("price_trigger_buys")
	TriggerBuyErrors = expvar.NewInt("price_trigger_buy_errors")
)
