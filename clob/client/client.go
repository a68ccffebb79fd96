package client

import (
	"crypto/ecdsa"
	"strings"
	"sync"
	"time"

	"github.com/betbot/copybot/clob/signing"
	"github.com/betbot/copybot/clob/types"
	sdkhttp "github.com/betbot/copybot/pkg/sdk/http"
	"github.com/betbot/copybot/pkg/ratelimit"
)

// Config CLOB 客户端配置
type Config struct {
	Host          string
	ChainID       types.Chain
	PrivateKey    *ecdsa.PrivateKey
	Creds         *types.ApiKeyCreds
	SignatureType types.SignatureType
	// FunderAddress 代理钱包地址，作为订单 maker；为空时 maker 为签名地址
	FunderAddress string
	Builder       signing.BuilderSigner
	Timeout       time.Duration
}

// Client CLOB 客户端
type Client struct {
	host       string
	chainID    types.Chain
	authConfig *AuthConfig
	credsMu    sync.RWMutex

	// reads 带传输层重试；writes 不重试，下单是否重试由调用方决定
	reads  *sdkhttp.Client
	writes *sdkhttp.Client

	builder      signing.BuilderSigner
	orderBuilder *OrderBuilder
	limiter      *ratelimit.Manager
	now          func() time.Time
}

// NewClient 创建新的 CLOB 客户端
func NewClient(cfg Config) *Client {
	if cfg.ChainID == 0 {
		cfg.ChainID = types.ChainPolygon
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	host := strings.TrimSuffix(cfg.Host, "/")

	c := &Client{
		host:    host,
		chainID: cfg.ChainID,
		authConfig: &AuthConfig{
			PrivateKey: cfg.PrivateKey,
			ChainID:    cfg.ChainID,
			Creds:      cfg.Creds,
		},
		reads:   sdkhttp.NewClient(host, sdkhttp.WithTimeout(cfg.Timeout)),
		writes:  sdkhttp.NewClient(host, sdkhttp.WithTimeout(cfg.Timeout), sdkhttp.WithRetryCount(0)),
		builder: cfg.Builder,
		limiter: ratelimit.NewManager(),
		now:     time.Now,
	}
	if cfg.PrivateKey != nil {
		c.orderBuilder = NewOrderBuilder(cfg.PrivateKey, cfg.ChainID, cfg.SignatureType, cfg.FunderAddress)
	}
	return c
}

// GetHost 获取主机地址
func (c *Client) GetHost() string {
	return c.host
}

// GetChainID 获取链 ID
func (c *Client) GetChainID() types.Chain {
	return c.chainID
}
