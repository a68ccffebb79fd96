// Package statusapi 通过 HTTP 提供跟单机器人的状态与操作接口
package statusapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/betbot/copybot/internal/copybot"
	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/internal/journal"
	"github.com/betbot/copybot/internal/metrics"
)

// BotView 编排器的只读接口
type BotView interface {
	Status() copybot.Status
	Positions(account string) (domain.PositionSnapshot, bool)
}

// Controls 执行器的运行时策略接口
type Controls interface {
	AddToBlacklist(market string)
	RemoveFromBlacklist(market string)
	Blacklist() []string
	SetMaxPositionLimit(limit float64)
	MaxPositionLimit() float64
	MinTradeSize() float64
}

type TradeLog interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

type Server struct {
	bot      BotView
	controls Controls
	trades   TradeLog // 未启用交易日志时为 nil
}

func New(bot BotView, controls Controls, trades TradeLog) *Server {
	return &Server{bot: bot, controls: controls, trades: trades}
}

// StatusResponse GET /api/status 的响应体
type StatusResponse struct {
	copybot.Status
	MaxPositionLimit float64  `json:"maxPositionLimit"`
	MinTradeSize     float64  `json:"minTradeSize"`
	Blacklist        []string `json:"blacklist"`
}

type PositionView struct {
	Market  string  `json:"market"`
	Outcome string  `json:"outcome"`
	Shares  float64 `json:"shares"`
	Price   float64 `json:"price"`
	Value   float64 `json:"value"`
}

type TradeView struct {
	ID        string    `json:"id"`
	Success   bool      `json:"success"`
	OrderID   string    `json:"orderId,omitempty"`
	Error     string    `json:"error,omitempty"`
	Market    string    `json:"market"`
	Outcome   string    `json:"outcome"`
	Side      string    `json:"side"`
	Size      float64   `json:"size"`
	Price     float64   `json:"price"`
	Signature string    `json:"signature,omitempty"`
	At        time.Time `json:"at"`
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/debug/*path", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/positions", s.handlePositions)
	api.GET("/trades", s.handleTrades)

	bl := api.Group("/blacklist")
	bl.GET("", s.handleBlacklist)
	bl.POST("", s.handleBlacklistAdd)
	bl.DELETE("/:market", s.handleBlacklistRemove)

	api.PUT("/limits", s.handleLimits)
	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status:           s.bot.Status(),
		MaxPositionLimit: s.controls.MaxPositionLimit(),
		MinTradeSize:     s.controls.MinTradeSize(),
		Blacklist:        s.controls.Blacklist(),
	})
}

func (s *Server) handlePositions(c *gin.Context) {
	snap, ok := s.bot.Positions(c.Query("account"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account must be target or own"})
		return
	}
	list := snap.List()
	out := make([]PositionView, 0, len(list))
	for _, p := range list {
		out = append(out, PositionView{Market: p.Market, Outcome: p.Outcome, Shares: p.Shares, Price: p.Price, Value: p.Value})
	}
	c.JSON(http.StatusOK, gin.H{"positions": out})
}

func (s *Server) handleTrades(c *gin.Context) {
	if s.trades == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade journal disabled"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := s.trades.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]TradeView, 0, len(entries))
	for _, e := range entries {
		out = append(out, TradeView{
			ID: e.ID, Success: e.Success, OrderID: e.OrderID, Error: e.Error,
			Market: e.Market, Outcome: e.Outcome, Side: string(e.Side),
			Size: e.Size, Price: e.Price, Signature: e.Signature, At: e.At,
		})
	}
	c.JSON(http.StatusOK, gin.H{"trades": out})
}

func (s *Server) handleBlacklist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"markets": s.controls.Blacklist()})
}

func (s *Server) handleBlacklistAdd(c *gin.Context) {
	var req struct {
		Market string `json:"market"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Market) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market is required"})
		return
	}
	s.controls.AddToBlacklist(strings.TrimSpace(req.Market))
	c.JSON(http.StatusOK, gin.H{"markets": s.controls.Blacklist()})
}

func (s *Server) handleBlacklistRemove(c *gin.Context) {
	s.controls.RemoveFromBlacklist(c.Param("market"))
	c.JSON(http.StatusOK, gin.H{"markets": s.controls.Blacklist()})
}

func (s *Server) handleLimits(c *gin.Context) {
	var req struct {
		MaxPositionLimit float64 `json:"maxPositionLimit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.MaxPositionLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maxPositionLimit must be > 0"})
		return
	}
	s.controls.SetMaxPositionLimit(req.MaxPositionLimit)
	c.JSON(http.StatusOK, gin.H{"maxPositionLimit": s.controls.MaxPositionLimit()})
}
