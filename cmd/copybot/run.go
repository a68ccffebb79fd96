package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/betbot/copybot/internal/copybot"
	"github.com/betbot/copybot/internal/statusapi"
	"github.com/betbot/copybot/pkg/config"
	"github.com/betbot/copybot/pkg/logger"
	"github.com/betbot/copybot/pkg/shutdown"
)

const (
	statusLogInterval     = time.Minute
	gracefulShutdownDelay = 10 * time.Second
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadFromFile(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, OutputFile: cfg.Log.File}); err != nil {
		return err
	}
	defer logger.Close()

	if err := cfg.ValidateCopyTrading(); err != nil {
		logrus.Errorf("配置无效: %v", err)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := copybot.NewFromConfig(ctx, cfg)
	if err != nil {
		logrus.Errorf("初始化失败: %v", err)
		return err
	}
	defer app.Close()

	logrus.WithFields(logrus.Fields{
		"target":   cfg.CopyTrading.TargetUser,
		"me":       cfg.CopyTrading.MyUser,
		"interval": time.Duration(cfg.CopyTrading.PollingIntervalMs) * time.Millisecond,
		"maxLimit": cfg.CopyTrading.MaxPositionLimit,
		"minSize":  cfg.CopyTrading.MinTradeSize,
		"redeem":   cfg.CopyTrading.AutoRedeem,
	}).Info("copy trading configured")

	// 循环只由 Stop 结束，信号不会打断进行中的周期
	if err := app.Bot.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	mgr := shutdown.NewManager()
	mgr.OnShutdown("bot", func(context.Context) {
		app.Bot.Stop()
		app.Bot.Wait()
	})

	if cfg.StatusAddr != "" {
		var trades statusapi.TradeLog
		if app.Journal != nil {
			trades = app.Journal
		}
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           statusapi.New(app.Bot, app.Executor, trades).Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logrus.Infof("status API listening on %s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("status API: %v", err)
			}
		}()
		mgr.OnShutdown("status-api", func(ctx context.Context) { _ = srv.Shutdown(ctx) })
	}

	go logStatus(ctx, app.Bot)

	<-ctx.Done()
	logrus.Info("收到退出信号，正在关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownDelay)
	defer cancel()
	if !mgr.Shutdown(shutdownCtx) {
		logrus.Warn("部分组件未在超时内关闭")
	}
	logrus.Info("已退出")
	return nil
}

func logStatus(ctx context.Context, bot *copybot.Bot) {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := bot.Status()
			logrus.WithFields(logrus.Fields{
				"running": st.IsRunning,
				"current": st.CurrentPositions,
				"target":  st.TargetPositions,
				"updated": st.LastUpdated.Format(time.RFC3339),
			}).Info("bot status")
		}
	}
}
