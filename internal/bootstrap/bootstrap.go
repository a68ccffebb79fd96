// Package bootstrap 构建各可执行程序共用的已认证交易所客户端
package bootstrap

import (
	"context"
	"crypto/ecdsa"
	"strings"

	"github.com/betbot/copybot/clob/client"
	"github.com/betbot/copybot/clob/signing"
	"github.com/betbot/copybot/clob/types"
	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/pkg/config"
)

// ClobClient 解析钱包私钥，用配置的 Builder 签名器创建 CLOB 客户端，并确保 L2 凭证可用
func ClobClient(ctx context.Context, cfg *config.Config) (*client.Client, *ecdsa.PrivateKey, error) {
	key, err := signing.PrivateKeyFromHex(cfg.Wallet.PrivateKey)
	if err != nil {
		return nil, nil, domain.Wrap(domain.KindConfiguration, "bootstrap.key", err)
	}

	builder := signing.NewBuilderSigner(signing.BuilderConfig{
		APIKey:      cfg.Builder.APIKey,
		Secret:      cfg.Builder.Secret,
		Passphrase:  cfg.Builder.Passphrase,
		RemoteURL:   cfg.Builder.RemoteURL,
		RemoteToken: cfg.Builder.RemoteToken,
	})

	c := client.NewClient(client.Config{
		Host:          cfg.Endpoints.ClobHTTP,
		ChainID:       types.Chain(cfg.Polymarket.ChainID),
		PrivateKey:    key,
		SignatureType: cfg.ResolvedSignatureType(),
		FunderAddress: strings.TrimSpace(cfg.Wallet.ProxyAddress),
		Builder:       builder,
	})
	if _, err := c.EnsureCreds(ctx, cfg.Polymarket.CredentialPath); err != nil {
		return nil, nil, domain.Wrap(domain.KindAuthentication, "bootstrap.creds", err)
	}
	return c, key, nil
}
