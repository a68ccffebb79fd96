package client

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"

	"github.com/betbot/copybot/clob/types"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// RoundConfig 各 tick size 对应的小数位数
type RoundConfig struct {
	Price  int32
	Size   int32
	Amount int32
}

// RoundingConfig 根据 tick size 返回舍入配置
var RoundingConfig = map[types.TickSize]RoundConfig{
	types.TickSize01:    {Price: 1, Size: 2, Amount: 3},
	types.TickSize001:   {Price: 2, Size: 2, Amount: 4},
	types.TickSize0001:  {Price: 3, Size: 2, Amount: 5},
	types.TickSize00001: {Price: 4, Size: 2, Amount: 6},
}

// OrderBuilder 构建并签名限价订单，签名由 go-order-utils 完成
type OrderBuilder struct {
	privateKey    *ecdsa.PrivateKey
	chainID       types.Chain
	signatureType types.SignatureType
	funderAddress string
	exchange      *builder.ExchangeOrderBuilderImpl
}

// NewOrderBuilder 创建订单构建器
func NewOrderBuilder(privateKey *ecdsa.PrivateKey, chainID types.Chain, signatureType types.SignatureType, funderAddress string) *OrderBuilder {
	return &OrderBuilder{
		privateKey:    privateKey,
		chainID:       chainID,
		signatureType: signatureType,
		funderAddress: funderAddress,
		exchange:      builder.NewExchangeOrderBuilderImpl(big.NewInt(int64(chainID)), nil),
	}
}

// BuildOrder 构建并签名订单
func (ob *OrderBuilder) BuildOrder(order *types.UserOrder, options types.CreateOrderOptions) (*types.SignedOrder, error) {
	rc, ok := RoundingConfig[options.TickSize]
	if !ok {
		return nil, fmt.Errorf("不支持的 tick size: %s", options.TickSize)
	}
	if order.Price <= 0 || order.Price >= 1 {
		return nil, fmt.Errorf("价格超出范围 (0,1): %v", order.Price)
	}

	makerAmt, takerAmt := getOrderRawAmounts(order.Side, decimal.NewFromFloat(order.Size), decimal.NewFromFloat(order.Price), rc)
	if makerAmt.Sign() <= 0 || takerAmt.Sign() <= 0 {
		return nil, fmt.Errorf("订单数量过小: size=%v price=%v", order.Size, order.Price)
	}

	signer := crypto.PubkeyToAddress(ob.privateKey.PublicKey).Hex()
	maker := signer
	if ob.funderAddress != "" {
		maker = ob.funderAddress
	}

	side := model.BUY
	if order.Side == types.SideSell {
		side = model.SELL
	}

	sigType := model.EOA
	switch ob.signatureType {
	case types.SignatureTypePolyProxy:
		sigType = model.POLY_PROXY
	case types.SignatureTypeGnosisSafe:
		sigType = model.POLY_GNOSIS_SAFE
	}

	contract := model.CTFExchange
	if options.NegRisk {
		contract = model.NegRiskCTFExchange
	}

	signed, err := ob.exchange.BuildSignedOrder(ob.privateKey, &model.OrderData{
		Maker:         maker,
		Signer:        signer,
		Taker:         zeroAddress,
		TokenId:       order.TokenID,
		MakerAmount:   toUnits(makerAmt),
		TakerAmount:   toUnits(takerAmt),
		Side:          side,
		FeeRateBps:    fmt.Sprint(order.FeeRateBps),
		Nonce:         fmt.Sprint(order.Nonce),
		Expiration:    fmt.Sprint(order.Expiration),
		SignatureType: sigType,
	}, contract)
	if err != nil {
		return nil, fmt.Errorf("签名订单失败: %w", err)
	}

	sideStr := types.SideBuy
	if signed.Order.Side.Int64() == 1 {
		sideStr = types.SideSell
	}

	return &types.SignedOrder{
		Salt:          signed.Order.Salt.Int64(),
		Maker:         signed.Order.Maker.Hex(),
		Signer:        signed.Order.Signer.Hex(),
		Taker:         signed.Order.Taker.Hex(),
		TokenID:       signed.Order.TokenId.String(),
		MakerAmount:   signed.Order.MakerAmount.String(),
		TakerAmount:   signed.Order.TakerAmount.String(),
		Expiration:    signed.Order.Expiration.String(),
		Nonce:         signed.Order.Nonce.String(),
		FeeRateBps:    signed.Order.FeeRateBps.String(),
		Side:          sideStr,
		SignatureType: int(signed.Order.SignatureType.Int64()),
		Signature:     hexutil.Encode(signed.Signature),
	}, nil
}

// getOrderRawAmounts 计算 maker/taker 金额（买单 maker 付 USDC，卖单 maker 付代币）
func getOrderRawAmounts(side types.Side, size, price decimal.Decimal, rc RoundConfig) (maker, taker decimal.Decimal) {
	rawPrice := price.Round(rc.Price)
	shares := size.RoundDown(rc.Size)
	notional := fitAmount(shares.Mul(rawPrice), rc.Amount)

	if side == types.SideBuy {
		return notional, shares
	}
	return shares, notional
}

// fitAmount 超出 Amount 位小数时先向上取到 Amount+4 位，仍超出则向下截断
func fitAmount(v decimal.Decimal, places int32) decimal.Decimal {
	if v.Equal(v.Truncate(places)) {
		return v
	}
	v = v.RoundUp(places + 4)
	if v.Equal(v.Truncate(places)) {
		return v
	}
	return v.RoundDown(places)
}

// toUnits 转换为 6 位精度的整数字符串
func toUnits(v decimal.Decimal) string {
	return v.Shift(CollateralTokenDecimals).Truncate(0).String()
}

// RoundPriceToTick 价格按 tick 精度四舍五入
func RoundPriceToTick(price float64, tick types.TickSize) float64 {
	rc, ok := RoundingConfig[tick]
	if !ok {
		rc = RoundingConfig[types.TickSize00001]
	}
	f, _ := decimal.NewFromFloat(price).Round(rc.Price).Float64()
	return f
}
