// price-trigger buys BTC 15-minute up/down tokens whose best ask reaches the
// target price.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/betbot/copybot/clob/types"
	"github.com/betbot/copybot/internal/bootstrap"
	"github.com/betbot/copybot/internal/metrics"
	"github.com/betbot/copybot/internal/pricetrigger"
	"github.com/betbot/copybot/pkg/config"
	"github.com/betbot/copybot/pkg/logger"
	"github.com/betbot/copybot/pkg/sdk/api"
	"github.com/betbot/copybot/pkg/sdk/websocket"
	"github.com/betbot/copybot/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（支持 .yaml, .yml, .json）")
	dryRun := flag.Bool("dry-run", false, "只记录触发，不下单（覆盖 BOT_DRY_RUN）")
	metricsAddr := flag.String("metrics-addr", "", "expvar/pprof 监听地址（如 127.0.0.1:6060，留空不启用）")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		logrus.Errorf("加载配置失败: %v", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.PriceTrigger.DryRun = true
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, OutputFile: cfg.Log.File}); err != nil {
		logrus.Errorf("初始化日志失败: %v", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := cfg.ValidatePriceTrigger(); err != nil {
		logrus.Errorf("配置无效: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		if _, err := metrics.StartAsync(ctx, *metricsAddr); err != nil {
			logrus.Errorf("启动 metrics 服务失败: %v", err)
			os.Exit(1)
		}
		logrus.Infof("metrics 服务: http://%s/debug/vars", *metricsAddr)
	}

	if err := run(ctx, cfg); err != nil {
		logrus.Errorf("price trigger: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	tick, ok := types.ParseTickSize(cfg.Polymarket.TickSize)
	if !ok {
		tick = types.TickSize001
	}

	// 未配置私钥或代理钱包时只记录触发
	var poster pricetrigger.OrderPoster
	if cfg.TradingEnabled() && !cfg.PriceTrigger.DryRun {
		clob, _, err := bootstrap.ClobClient(ctx, cfg)
		if err != nil {
			return err
		}
		poster = clob
	}

	feed, err := websocket.NewMarketClient(websocket.Config{URL: cfg.Endpoints.ClobWS})
	if err != nil {
		return err
	}
	resolver := pricetrigger.NewResolver(api.NewClient(cfg.Endpoints.DataAPI, cfg.Endpoints.GammaAPI))
	defer resolver.Close()

	bot := pricetrigger.New(pricetrigger.Config{
		TargetPrice:      cfg.PriceTrigger.TargetPrice,
		MinPrice:         cfg.PriceTrigger.MinPrice,
		BuySize:          cfg.PriceTrigger.BuySize,
		DryRun:           cfg.PriceTrigger.DryRun,
		PriceLogInterval: time.Duration(cfg.PriceTrigger.PriceLogIntervalMs) * time.Millisecond,
		TickSize:         tick,
		NegRisk:          cfg.Polymarket.NegRisk,
	}, feed, resolver, poster)

	logrus.WithFields(logrus.Fields{
		"target":  cfg.PriceTrigger.TargetPrice,
		"min":     cfg.PriceTrigger.MinPrice,
		"size":    cfg.PriceTrigger.BuySize,
		"dryRun":  cfg.PriceTrigger.DryRun,
		"trading": poster != nil,
	}).Info("starting BTC 15m price trigger")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- bot.Run(runCtx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	logrus.Info("收到退出信号，正在关闭...")
	mgr := shutdown.NewManager()
	mgr.OnShutdown("price-trigger", func(ctx context.Context) {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	})
	shutdownCtx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if !mgr.Shutdown(shutdownCtx) {
		logrus.Warn("未在超时内完成关闭")
	}
	return nil
}
