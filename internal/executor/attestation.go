package executor

import (
	"crypto/ecdsa"
	"encoding/json"
	"strconv"
	"time"

	"github.com/betbot/copybot/clob/signing"
	"github.com/betbot/copybot/internal/domain"
)

// Attestation 操作者对拟执行交易的签名记录；不是交易所订单签名，随订单一起用于审计
type Attestation struct {
	Market    string
	Outcome   string
	Side      domain.Action
	Price     float64
	Size      float64
	Timestamp time.Time
}

// attestationPayload 固定签名 JSON 的字段顺序
type attestationPayload struct {
	Market    string `json:"market"`
	Outcome   string `json:"outcome"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp int64  `json:"timestamp"`
}

// Payload 返回规范化的待签消息
func (a Attestation) Payload() ([]byte, error) {
	return json.Marshal(attestationPayload{
		Market:    a.Market,
		Outcome:   a.Outcome,
		Side:      string(a.Side),
		Price:     strconv.FormatFloat(a.Price, 'f', -1, 64),
		Size:      strconv.FormatFloat(a.Size, 'f', -1, 64),
		Timestamp: a.Timestamp.UnixMilli(),
	})
}

// Sign 对 Payload 做 EIP-191 personal_sign 签名
func (a Attestation) Sign(key *ecdsa.PrivateKey) (string, error) {
	msg, err := a.Payload()
	if err != nil {
		return "", err
	}
	return signing.SignPersonalMessage(key, msg)
}
