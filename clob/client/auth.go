package client

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/betbot/copybot/clob/signing"
	"github.com/betbot/copybot/clob/types"
	sdkhttp "github.com/betbot/copybot/pkg/sdk/http"
)

// AuthConfig 认证配置
type AuthConfig struct {
	PrivateKey *ecdsa.PrivateKey
	ChainID    types.Chain
	Creds      *types.ApiKeyCreds
}

var (
	ErrL1AuthUnavailable = errors.New("L1 认证不可用: 私钥未配置")
	ErrL2AuthUnavailable = errors.New("L2 认证不可用: API 凭证未配置")
)

// CanL1Auth 检查是否可以进行 L1 认证
func (c *Client) CanL1Auth() error {
	if c.authConfig.PrivateKey == nil {
		return ErrL1AuthUnavailable
	}
	return nil
}

// CanL2Auth 检查是否可以进行 L2 认证
func (c *Client) CanL2Auth() error {
	if err := c.CanL1Auth(); err != nil {
		return err
	}
	if !c.Creds().Complete() {
		return ErrL2AuthUnavailable
	}
	return nil
}

// Creds 当前 API 凭证
func (c *Client) Creds() *types.ApiKeyCreds {
	c.credsMu.RLock()
	defer c.credsMu.RUnlock()
	return c.authConfig.Creds
}

// SetCreds 设置 API 凭证
func (c *Client) SetCreds(creds *types.ApiKeyCreds) {
	c.credsMu.Lock()
	c.authConfig.Creds = creds
	c.credsMu.Unlock()
}

// GetAddress 获取签名地址
func (c *Client) GetAddress() (common.Address, error) {
	if err := c.CanL1Auth(); err != nil {
		return common.Address{}, err
	}
	return signing.GetAddressFromPrivateKey(c.authConfig.PrivateKey), nil
}

// CreateOrDeriveAPIKey 先推导已有 API 密钥，推导失败再创建新的（L1 认证）
func (c *Client) CreateOrDeriveAPIKey(ctx context.Context, nonce int64) (*types.ApiKeyCreds, error) {
	if err := c.CanL1Auth(); err != nil {
		return nil, err
	}

	headers, err := signing.CreateL1Headers(c.authConfig.PrivateKey, c.chainID, nonce, c.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("创建 L1 认证头失败: %w", err)
	}

	var raw types.ApiKeyRaw
	err = c.reads.Do(ctx, http.MethodGet, EndpointDeriveAPIKey, &sdkhttp.RequestOptions{Headers: headers.Map()}, &raw)
	if err == nil && raw.ApiKey != "" {
		creds := raw.Creds()
		return &creds, nil
	}

	var se *sdkhttp.StatusError
	if err != nil && errors.As(err, &se) && se.StatusCode != http.StatusBadRequest && se.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("推导 API 密钥失败: %w", err)
	}

	// 账户还没有 API 密钥
	raw = types.ApiKeyRaw{}
	if err := c.writes.Do(ctx, http.MethodPost, EndpointCreateAPIKey, &sdkhttp.RequestOptions{Headers: headers.Map()}, &raw); err != nil {
		return nil, fmt.Errorf("创建 API 密钥失败: %w", err)
	}
	if raw.ApiKey == "" {
		return nil, fmt.Errorf("创建 API 密钥失败: 响应缺少 apiKey")
	}
	creds := raw.Creds()
	return &creds, nil
}

// LoadCredsFile 读取 {key, secret, passphrase} 格式的凭证文件，secret 统一转换为标准 base64
func LoadCredsFile(path string) (*types.ApiKeyCreds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取凭证文件失败: %w", err)
	}
	var creds types.ApiKeyCreds
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("解析凭证文件失败: %w", err)
	}
	creds.Secret = strings.NewReplacer("-", "+", "_", "/").Replace(creds.Secret)
	if creds.Key == "" || creds.Secret == "" {
		return nil, fmt.Errorf("凭证文件缺少 key 或 secret")
	}
	return &creds, nil
}

// EnsureCreds 凭证优先来自文件（存在时），否则通过 L1 推导或创建
func (c *Client) EnsureCreds(ctx context.Context, credentialPath string) (*types.ApiKeyCreds, error) {
	if creds := c.Creds(); creds.Complete() {
		return creds, nil
	}

	var creds *types.ApiKeyCreds
	var err error
	if credentialPath != "" && fileExists(credentialPath) {
		creds, err = LoadCredsFile(credentialPath)
	} else {
		creds, err = c.CreateOrDeriveAPIKey(ctx, 0)
	}
	if err != nil {
		return nil, err
	}
	c.SetCreds(creds)
	return creds, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
