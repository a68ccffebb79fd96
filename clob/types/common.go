package types

import "strconv"

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType 订单类型
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // 一直有效直到取消
	OrderTypeFOK OrderType = "FOK" // 全部成交或全部取消
	OrderTypeFAK OrderType = "FAK" // 部分成交，剩余取消
)

// Chain 区块链网络
type Chain int

const (
	ChainPolygon Chain = 137
	ChainAmoy    Chain = 80002
)

// SignatureType 签名类型
type SignatureType int

const (
	SignatureTypeEOA        SignatureType = 0 // 普通 EOA 钱包
	SignatureTypePolyProxy  SignatureType = 1 // Magic Link 代理钱包
	SignatureTypeGnosisSafe SignatureType = 2 // Gnosis Safe 代理钱包
)

// ParseSignatureType 解析 0/1/2，非法值返回 false
func ParseSignatureType(s string) (SignatureType, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 2 {
		return 0, false
	}
	return SignatureType(n), true
}

// TickSize 价格精度
type TickSize string

const (
	TickSize01    TickSize = "0.1"
	TickSize001   TickSize = "0.01"
	TickSize0001  TickSize = "0.001"
	TickSize00001 TickSize = "0.0001"
)

// Valid 是否为交易所支持的精度
func (t TickSize) Valid() bool {
	switch t {
	case TickSize01, TickSize001, TickSize0001, TickSize00001:
		return true
	}
	return false
}

// Float64 数值形式，无效精度返回 0
func (t TickSize) Float64() float64 {
	f, err := strconv.ParseFloat(string(t), 64)
	if err != nil || !t.Valid() {
		return 0
	}
	return f
}

// ParseTickSize 由数值解析精度
func ParseTickSize(f float64) (TickSize, bool) {
	t := TickSize(strconv.FormatFloat(f, 'f', -1, 64))
	return t, t.Valid()
}

// ApiKeyCreds API 密钥凭证
type ApiKeyCreds struct {
	Key        string `json:"key"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Complete 三个字段是否都已填写
func (c *ApiKeyCreds) Complete() bool {
	return c != nil && c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// ApiKeyRaw 原始 API 密钥（API 返回格式）
type ApiKeyRaw struct {
	ApiKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Creds 转换为内部凭证格式
func (r ApiKeyRaw) Creds() ApiKeyCreds {
	return ApiKeyCreds{Key: r.ApiKey, Secret: r.Secret, Passphrase: r.Passphrase}
}
