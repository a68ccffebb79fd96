package signing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/betbot/copybot/clob/types"
)

// BuilderSigner 为下单请求生成 POLY_BUILDER_* 归因头
type BuilderSigner interface {
	Sign(ctx context.Context, method, path, body string, timestamp int64) (map[string]string, error)
}

// BuilderConfig Builder 归因配置，本地凭证与远程签名服务二选一
type BuilderConfig struct {
	APIKey     string
	Secret     string
	Passphrase string

	RemoteURL   string
	RemoteToken string
}

// NewBuilderSigner 按配置选择实现：本地凭证完整时用本地 HMAC，否则配置了远程地址时用远程签名，都没有返回 nil
func NewBuilderSigner(cfg BuilderConfig) BuilderSigner {
	creds := &types.ApiKeyCreds{Key: cfg.APIKey, Secret: cfg.Secret, Passphrase: cfg.Passphrase}
	if creds.Complete() {
		return &LocalBuilderSigner{creds: *creds}
	}
	if strings.TrimSpace(cfg.RemoteURL) != "" {
		return NewRemoteBuilderSigner(cfg.RemoteURL, cfg.RemoteToken)
	}
	return nil
}

// LocalBuilderSigner 使用本地 Builder 凭证计算 HMAC
type LocalBuilderSigner struct {
	creds types.ApiKeyCreds
}

// NewLocalBuilderSigner 创建本地签名器
func NewLocalBuilderSigner(creds types.ApiKeyCreds) *LocalBuilderSigner {
	return &LocalBuilderSigner{creds: creds}
}

func (s *LocalBuilderSigner) Sign(_ context.Context, method, path, body string, timestamp int64) (map[string]string, error) {
	sig, err := BuildPolyHmacSignature(s.creds.Secret, timestamp, method, path, body)
	if err != nil {
		return nil, fmt.Errorf("构建 Builder 签名失败: %w", err)
	}
	return map[string]string{
		types.HeaderBuilderAPIKey:     s.creds.Key,
		types.HeaderBuilderPassphrase: s.creds.Passphrase,
		types.HeaderBuilderTimestamp:  strconv.FormatInt(timestamp, 10),
		types.HeaderBuilderSignature:  sig,
	}, nil
}

// RemoteBuilderSigner 请求远程签名服务获取归因头，Builder secret 不落本机
type RemoteBuilderSigner struct {
	client *resty.Client
	url    string
}

type remoteSignRequest struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

// NewRemoteBuilderSigner 创建远程签名器，token 非空时以 Bearer 方式携带
func NewRemoteBuilderSigner(url, token string) *RemoteBuilderSigner {
	c := resty.New().SetTimeout(10 * time.Second)
	if token != "" {
		c.SetAuthToken(token)
	}
	return &RemoteBuilderSigner{client: c, url: url}
}

func (s *RemoteBuilderSigner) Sign(ctx context.Context, method, path, body string, timestamp int64) (map[string]string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(remoteSignRequest{Method: method, Path: path, Body: body, Timestamp: timestamp}).
		Post(s.url)
	if err != nil {
		return nil, fmt.Errorf("远程 Builder 签名请求失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("远程 Builder 签名失败: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	// 签名服务不一定返回 application/json，直接按 JSON 解析响应体
	var headers map[string]string
	if err := json.Unmarshal(resp.Body(), &headers); err != nil {
		return nil, fmt.Errorf("解析远程 Builder 签名响应失败: %w", err)
	}
	if headers[types.HeaderBuilderSignature] == "" {
		return nil, fmt.Errorf("远程 Builder 签名响应缺少 %s", types.HeaderBuilderSignature)
	}
	return headers, nil
}
