package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/betbot/copybot/clob/types"
)

// ChainBackend CTF 客户端需要的链上能力，*ethclient.Client 满足该接口
type ChainBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// CTFClient CTF 合约客户端
type CTFClient struct {
	backend         ChainBackend
	ctfAddress      common.Address
	collateralToken common.Address
	privateKey      *ecdsa.PrivateKey
	chainID         *big.Int
	ctfABI          abi.ABI
}

// NewCTFClient 连接 RPC 节点并创建 CTF 客户端
func NewCTFClient(rpcURL string, chainID types.Chain, privateKey *ecdsa.PrivateKey) (*CTFClient, error) {
	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接RPC节点失败: %w", err)
	}
	return NewCTFClientWithBackend(ec, chainID, privateKey)
}

// NewCTFClientWithBackend 使用给定的链后端创建 CTF 客户端
func NewCTFClientWithBackend(backend ChainBackend, chainID types.Chain, privateKey *ecdsa.PrivateKey) (*CTFClient, error) {
	config, err := GetContractConfig(chainID)
	if err != nil {
		return nil, fmt.Errorf("获取合约配置失败: %w", err)
	}
	ctfABI, err := abi.JSON(strings.NewReader(CTFABI))
	if err != nil {
		return nil, fmt.Errorf("解析CTF ABI失败: %w", err)
	}
	return &CTFClient{
		backend:         backend,
		ctfAddress:      common.HexToAddress(config.ConditionalTokens),
		collateralToken: common.HexToAddress(config.Collateral),
		privateKey:      privateKey,
		chainID:         big.NewInt(int64(chainID)),
		ctfABI:          ctfABI,
	}, nil
}

// IsResolved 条件是否已结算（payoutDenominator > 0）
func (c *CTFClient) IsResolved(ctx context.Context, conditionID string) (bool, error) {
	cid := common.HexToHash(conditionID)
	data, err := c.ctfABI.Pack("payoutDenominator", cid)
	if err != nil {
		return false, fmt.Errorf("打包payoutDenominator参数失败: %w", err)
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.ctfAddress, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("查询payoutDenominator失败: %w", err)
	}
	vals, err := c.ctfABI.Unpack("payoutDenominator", out)
	if err != nil || len(vals) != 1 {
		return false, fmt.Errorf("解析payoutDenominator失败: %v", err)
	}
	den, ok := vals[0].(*big.Int)
	return ok && den.Sign() > 0, nil
}

// RedeemPositions 赎回二元市场的全部仓位（indexSets = [1, 2]），返回交易哈希
func (c *CTFClient) RedeemPositions(ctx context.Context, conditionID string) (common.Hash, error) {
	cid := common.HexToHash(conditionID)
	if cid == (common.Hash{}) {
		return common.Hash{}, fmt.Errorf("无效的conditionId: %s", conditionID)
	}

	// Polymarket 二元市场 parentCollectionId 恒为 bytes32(0)
	data, err := c.ctfABI.Pack("redeemPositions",
		c.collateralToken,
		common.Hash{},
		cid,
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("打包redeemPositions参数失败: %w", err)
	}

	tx, err := c.buildTx(ctx, data)
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("发送交易失败: %w", err)
	}
	return tx.Hash(), nil
}

func (c *CTFClient) buildTx(ctx context.Context, data []byte) (*ethtypes.Transaction, error) {
	from := crypto.PubkeyToAddress(c.privateKey.PublicKey)

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("获取nonce失败: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取gas价格失败: %w", err)
	}
	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &c.ctfAddress,
		Data:  data,
		Value: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("估算gas失败: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, c.ctfAddress, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("签名交易失败: %w", err)
	}
	return signed, nil
}
