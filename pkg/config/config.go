package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/betbot/copybot/clob/types"
	"github.com/betbot/copybot/internal/domain"
	"github.com/betbot/copybot/pkg/secretstore"
)

// WalletConfig 钱包配置
type WalletConfig struct {
	PrivateKey   string `yaml:"private_key" json:"private_key"`
	ProxyAddress string `yaml:"proxy_address" json:"proxy_address" validate:"omitempty,eth_addr"`
}

// EndpointsConfig 外部服务地址
type EndpointsConfig struct {
	ClobHTTP string `yaml:"clob_http" json:"clob_http" validate:"required,url"`
	ClobWS   string `yaml:"clob_ws" json:"clob_ws" validate:"required,url"`
	GammaAPI string `yaml:"gamma_api" json:"gamma_api" validate:"required,url"`
	DataAPI  string `yaml:"data_api" json:"data_api" validate:"required,url"`
}

// PolymarketConfig 下单相关参数
type PolymarketConfig struct {
	ChainID        int64   `yaml:"chain_id" json:"chain_id" validate:"oneof=137 80002"`
	TickSize       float64 `yaml:"tick_size" json:"tick_size" validate:"tick_size"`
	NegRisk        bool    `yaml:"neg_risk" json:"neg_risk"`
	CredentialPath string  `yaml:"credential_path" json:"credential_path"`
	// SignatureType 为 -1 时按是否配置代理钱包自动推断
	SignatureType int `yaml:"signature_type" json:"signature_type" validate:"gte=-1,lte=2"`
}

// BuilderConfig Builder 署名（本地密钥或远程签名服务）
type BuilderConfig struct {
	APIKey      string `yaml:"api_key" json:"api_key"`
	Secret      string `yaml:"secret" json:"secret"`
	Passphrase  string `yaml:"passphrase" json:"passphrase"`
	RemoteURL   string `yaml:"remote_url" json:"remote_url" validate:"omitempty,url"`
	RemoteToken string `yaml:"remote_token" json:"remote_token"`
}

// CopyTradingConfig 跟单模式配置
type CopyTradingConfig struct {
	TargetUser        string   `yaml:"target_user" json:"target_user" validate:"required,eth_addr"`
	MyUser            string   `yaml:"my_user" json:"my_user" validate:"required,eth_addr"`
	PollingIntervalMs int      `yaml:"polling_interval_ms" json:"polling_interval_ms" validate:"gt=0"`
	MaxPositionLimit  float64  `yaml:"max_position_limit" json:"max_position_limit" validate:"gt=0"`
	MinTradeSize      float64  `yaml:"min_trade_size" json:"min_trade_size" validate:"gte=0"`
	AutoRedeem        bool     `yaml:"auto_redeem" json:"auto_redeem"`
	RedeemIntervalMs  int      `yaml:"redeem_interval_ms" json:"redeem_interval_ms" validate:"gt=0"`
	PolygonRPCURL     string   `yaml:"polygon_rpc_url" json:"polygon_rpc_url" validate:"omitempty,url"`
	Blacklist         []string `yaml:"blacklist" json:"blacklist"`
}

// PriceTriggerConfig BTC 15 分钟价格触发模式配置
type PriceTriggerConfig struct {
	TargetPrice float64 `yaml:"target_price" json:"target_price" validate:"gt=0,lte=1"`
	MinPrice    float64 `yaml:"min_price" json:"min_price" validate:"gte=0,lte=1"` // 0 表示不设下限
	BuySize     float64 `yaml:"buy_size" json:"buy_size" validate:"gte=1"`
	DryRun      bool    `yaml:"dry_run" json:"dry_run"`
	// 价格日志间隔：0 每次更新都打印，<0 不打印
	PriceLogIntervalMs int `yaml:"price_log_interval_ms" json:"price_log_interval_ms"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	File  string `yaml:"file" json:"file"`
}

type SecretStoreConfig struct {
	Path      string `yaml:"path" json:"path"`
	MasterKey string `yaml:"-" json:"-"` // 只从环境变量读取
}

// Config 应用配置
type Config struct {
	Wallet       WalletConfig       `yaml:"wallet" json:"wallet"`
	Endpoints    EndpointsConfig    `yaml:"endpoints" json:"endpoints"`
	Polymarket   PolymarketConfig   `yaml:"polymarket" json:"polymarket"`
	Builder      BuilderConfig      `yaml:"builder" json:"builder"`
	CopyTrading  CopyTradingConfig  `yaml:"copy_trading" json:"copy_trading"`
	PriceTrigger PriceTriggerConfig `yaml:"price_trigger" json:"price_trigger"`
	Log          LogConfig          `yaml:"log" json:"log"`
	StatusAddr   string             `yaml:"status_addr" json:"status_addr"`
	JournalPath  string             `yaml:"journal_path" json:"journal_path"`
	SecretStore  SecretStoreConfig  `yaml:"secret_store" json:"secret_store"`
}

const (
	DefaultClobHTTP = "https://clob.polymarket.com"
	DefaultClobWS   = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	DefaultGammaAPI = "https://gamma-api.polymarket.com"
	DefaultDataAPI  = "https://data-api.polymarket.com"
)

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			ClobHTTP: DefaultClobHTTP,
			ClobWS:   DefaultClobWS,
			GammaAPI: DefaultGammaAPI,
			DataAPI:  DefaultDataAPI,
		},
		Polymarket: PolymarketConfig{
			ChainID:       int64(types.ChainPolygon),
			TickSize:      0.01,
			SignatureType: -1,
		},
		CopyTrading: CopyTradingConfig{
			PollingIntervalMs: 4000,
			MaxPositionLimit:  0.2,
			MinTradeSize:      1,
			RedeemIntervalMs:  2 * 60 * 60 * 1000,
		},
		PriceTrigger: PriceTriggerConfig{
			TargetPrice:        0.95,
			BuySize:            5,
			PriceLogIntervalMs: 1000,
		},
		Log:         LogConfig{Level: "info"},
		JournalPath: "data/journal.db",
	}
}

// Load 只从环境变量加载
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile 默认值 → 配置文件（可选）→ 环境变量 → 私钥回退到加密存储
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.fillPrivateKey(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Wrap(domain.KindConfiguration, "config.load", fmt.Errorf("读取配置文件失败: %w", err))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return domain.Errorf(domain.KindConfiguration, "config.load", "不支持的配置文件格式: %s", filepath.Ext(path))
	}
	if err != nil {
		return domain.Wrap(domain.KindConfiguration, "config.load", fmt.Errorf("解析配置文件失败: %w", err))
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []string
	setStr := func(dst *string, keys ...string) {
		if v, ok := lookupEnv(keys...); ok {
			*dst = v
		}
	}
	setInt := func(dst *int, keys ...string) {
		if v, ok := lookupEnv(keys...); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q 不是整数", keys[0], v))
				return
			}
			*dst = n
		}
	}
	setFloat := func(dst *float64, keys ...string) {
		if v, ok := lookupEnv(keys...); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q 不是数字", keys[0], v))
				return
			}
			*dst = f
		}
	}
	setBool := func(dst *bool, keys ...string) {
		if v, ok := lookupEnv(keys...); ok {
			*dst = parseBool(v)
		}
	}

	setStr(&c.Wallet.PrivateKey, "PRIVATE_KEY", "POLYMARKET_PRIVATE_KEY")
	setStr(&c.Wallet.ProxyAddress, "POLYMARKET_PROXY", "PROXY_WALLET_ADDRESS")

	setStr(&c.Endpoints.ClobHTTP, "CLOB_HTTP_URL", "POLYMARKET_CLOB_URL")
	setStr(&c.Endpoints.ClobWS, "CLOB_WS_URL")
	setStr(&c.Endpoints.GammaAPI, "GAMMA_API_URL")
	setStr(&c.Endpoints.DataAPI, "DATA_API_URL")

	if v, ok := lookupEnv("POLYMARKET_CHAIN_ID"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("POLYMARKET_CHAIN_ID=%q 不是整数", v))
		} else {
			c.Polymarket.ChainID = n
		}
	}
	setFloat(&c.Polymarket.TickSize, "POLYMARKET_TICK_SIZE")
	setBool(&c.Polymarket.NegRisk, "POLYMARKET_NEG_RISK")
	setStr(&c.Polymarket.CredentialPath, "POLYMARKET_CREDENTIAL_PATH")
	if v, ok := lookupEnv("POLYMARKET_SIGNATURE_TYPE"); ok {
		st, valid := types.ParseSignatureType(v)
		if !valid {
			errs = append(errs, fmt.Sprintf("POLYMARKET_SIGNATURE_TYPE=%q 无效（0/1/2）", v))
		} else {
			c.Polymarket.SignatureType = int(st)
		}
	}

	setStr(&c.Builder.APIKey, "POLY_BUILDER_API_KEY")
	setStr(&c.Builder.Secret, "POLY_BUILDER_SECRET")
	setStr(&c.Builder.Passphrase, "POLY_BUILDER_PASSPHRASE")
	setStr(&c.Builder.RemoteURL, "POLY_BUILDER_REMOTE_URL")
	setStr(&c.Builder.RemoteToken, "POLY_BUILDER_REMOTE_TOKEN")

	setStr(&c.CopyTrading.TargetUser, "TARGET_USER_ADDRESS")
	setStr(&c.CopyTrading.MyUser, "MY_USER_ADDRESS")
	setInt(&c.CopyTrading.PollingIntervalMs, "POLLING_INTERVAL")
	setFloat(&c.CopyTrading.MaxPositionLimit, "MAX_POSITION_LIMIT")
	setFloat(&c.CopyTrading.MinTradeSize, "MIN_TRADE_SIZE")
	setBool(&c.CopyTrading.AutoRedeem, "AUTO_REDEEM")
	setInt(&c.CopyTrading.RedeemIntervalMs, "REDEEM_INTERVAL")
	setStr(&c.CopyTrading.PolygonRPCURL, "POLYGON_RPC_URL")

	setFloat(&c.PriceTrigger.TargetPrice, "BOT_TARGET_PRICE")
	setFloat(&c.PriceTrigger.MinPrice, "BOT_MIN_PRICE")
	setFloat(&c.PriceTrigger.BuySize, "BOT_BUY_SIZE")
	setBool(&c.PriceTrigger.DryRun, "BOT_DRY_RUN")
	setInt(&c.PriceTrigger.PriceLogIntervalMs, "BOT_PRICE_LOG_INTERVAL_MS")
	// 买入数量下限 1
	if c.PriceTrigger.BuySize < 1 {
		c.PriceTrigger.BuySize = 1
	}

	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Log.File, "LOG_FILE")
	setStr(&c.StatusAddr, "STATUS_ADDR")
	setStr(&c.JournalPath, "JOURNAL_PATH")
	setStr(&c.SecretStore.Path, "SECRET_STORE_PATH")
	setStr(&c.SecretStore.MasterKey, "COPYBOT_MASTER_KEY")

	if len(errs) > 0 {
		return domain.Errorf(domain.KindConfiguration, "config.env", "环境变量错误: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) fillPrivateKey() error {
	if c.Wallet.PrivateKey != "" || c.SecretStore.Path == "" {
		return nil
	}
	pk, err := secretstore.ReadPrivateKey(c.SecretStore.Path, c.SecretStore.MasterKey)
	if err != nil {
		return domain.Wrap(domain.KindConfiguration, "config.secretstore", err)
	}
	c.Wallet.PrivateKey = pk
	return nil
}

var validate = newValidator()

// tick_size 校验浮点精度是否为交易所支持的取值
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("tick_size", func(fl validator.FieldLevel) bool {
		_, ok := types.ParseTickSize(fl.Field().Float())
		return ok
	})
	return v
}

// ValidateCopyTrading 跟单模式启动前校验
func (c *Config) ValidateCopyTrading() error {
	if c.Wallet.PrivateKey == "" {
		return domain.Errorf(domain.KindConfiguration, "config.validate", "PRIVATE_KEY 未配置")
	}
	for _, s := range []interface{}{c.Wallet, c.Endpoints, c.Polymarket, c.Builder, c.CopyTrading} {
		if err := validate.Struct(s); err != nil {
			return configError(err)
		}
	}
	return nil
}

// ValidatePriceTrigger 价格触发模式校验；私钥/代理缺失不报错（只打印日志，不下单）
func (c *Config) ValidatePriceTrigger() error {
	for _, s := range []interface{}{c.Wallet, c.Endpoints, c.Polymarket, c.Builder, c.PriceTrigger} {
		if err := validate.Struct(s); err != nil {
			return configError(err)
		}
	}
	if c.PriceTrigger.MinPrice > 0 && c.PriceTrigger.MinPrice > c.PriceTrigger.TargetPrice {
		return domain.Errorf(domain.KindConfiguration, "config.validate",
			"BOT_MIN_PRICE(%.4f) 不能大于 BOT_TARGET_PRICE(%.4f)", c.PriceTrigger.MinPrice, c.PriceTrigger.TargetPrice)
	}
	return nil
}

// TradingEnabled 价格触发模式是否具备真实下单条件
func (c *Config) TradingEnabled() bool {
	return c.Wallet.PrivateKey != "" && c.Wallet.ProxyAddress != ""
}

// ResolvedSignatureType 显式配置优先；否则有代理钱包用 GnosisSafe，没有用 EOA
func (c *Config) ResolvedSignatureType() types.SignatureType {
	if c.Polymarket.SignatureType >= 0 {
		return types.SignatureType(c.Polymarket.SignatureType)
	}
	if c.Wallet.ProxyAddress != "" {
		return types.SignatureTypeGnosisSafe
	}
	return types.SignatureTypeEOA
}

func configError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return domain.Wrap(domain.KindConfiguration, "config.validate", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s 校验失败(%s=%s): %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return domain.Errorf(domain.KindConfiguration, "config.validate", "%s", strings.Join(msgs, "; "))
}

func lookupEnv(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
