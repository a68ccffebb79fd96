package copybot

import (
	"context"
	"time"

	"github.com/betbot/copybot/clob/client"
	"github.com/betbot/copybot/clob/types"
	"github.com/betbot/copybot/internal/bootstrap"
	"github.com/betbot/copybot/internal/executor"
	"github.com/betbot/copybot/internal/gateway"
	"github.com/betbot/copybot/internal/journal"
	"github.com/betbot/copybot/internal/monitor"
	"github.com/betbot/copybot/internal/redeem"
	"github.com/betbot/copybot/pkg/config"
	"github.com/betbot/copybot/pkg/sdk/api"
)

// App 装配完成的跟单运行时
type App struct {
	Bot      *Bot
	Executor *executor.Executor
	Gateway  *gateway.Gateway
	Journal  *journal.Journal // 未启用时为 nil

	closers []func() error
}

// Close 释放网关缓存与交易日志
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewFromConfig 按 cfg 装配网关、监控、执行器、交易日志与赎回器；cfg 须已通过校验
func NewFromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	clob, key, err := bootstrap.ClobClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	apiClient := api.NewClient(cfg.Endpoints.DataAPI, cfg.Endpoints.GammaAPI)
	gw := gateway.New(apiClient, clob)
	app.Gateway = gw
	app.closers = append(app.closers, func() error { gw.Close(); return nil })

	execOpts := []executor.Option{
		executor.WithMaxPositionLimit(cfg.CopyTrading.MaxPositionLimit),
		executor.WithMinTradeSize(cfg.CopyTrading.MinTradeSize),
		executor.WithBlacklist(cfg.CopyTrading.Blacklist...),
	}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Journal = j
		app.closers = append(app.closers, j.Close)
		execOpts = append(execOpts, executor.WithRecorder(j))
	}
	app.Executor = executor.New(gw, key, execOpts...)

	var sweeper RedeemSweeper
	if cfg.CopyTrading.AutoRedeem {
		var redeemer redeem.Redeemer = redeem.LogRedeemer{}
		// 代理钱包持有的代币无法由 EOA 直接赎回
		if cfg.CopyTrading.PolygonRPCURL != "" && cfg.Wallet.ProxyAddress == "" {
			ctf, err := client.NewCTFClient(cfg.CopyTrading.PolygonRPCURL, types.Chain(cfg.Polymarket.ChainID), key)
			if err != nil {
				log.Warnf("ctf client unavailable, redeem sweep will only report: %v", err)
			} else {
				redeemer = redeem.NewCTFRedeemer(ctf)
			}
		}
		sweeper = redeem.NewSweeper(gw, redeemer, cfg.CopyTrading.MyUser)
	}

	interval := time.Duration(cfg.CopyTrading.PollingIntervalMs) * time.Millisecond
	mon := monitor.New(gw, cfg.CopyTrading.TargetUser, cfg.CopyTrading.MyUser, interval)

	app.Bot = New(Config{
		TargetUser:      cfg.CopyTrading.TargetUser,
		MyUser:          cfg.CopyTrading.MyUser,
		PollingInterval: interval,
		AutoRedeem:      cfg.CopyTrading.AutoRedeem,
		RedeemInterval:  time.Duration(cfg.CopyTrading.RedeemIntervalMs) * time.Millisecond,
	}, Deps{Monitor: mon, Executor: app.Executor, Sweeper: sweeper})
	return app, nil
}
