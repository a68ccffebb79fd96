package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/betbot/copybot/clob/types"
	sdkhttp "github.com/betbot/copybot/pkg/sdk/http"
	"github.com/betbot/copybot/pkg/ratelimit"
)

// GetOrderBook 获取代币订单簿
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*types.OrderBookSummary, error) {
	if err := c.limiter.Wait(ctx, ratelimit.EndpointBookGet); err != nil {
		return nil, err
	}
	var book types.OrderBookSummary
	err := c.reads.Do(ctx, http.MethodGet, EndpointGetOrderBook, &sdkhttp.RequestOptions{
		Params: map[string]any{"token_id": tokenID},
	}, &book)
	if err != nil {
		return nil, fmt.Errorf("获取订单簿失败: %w", err)
	}
	return &book, nil
}

// GetTickSize 获取代币最小价格精度
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (types.TickSize, error) {
	var resp types.TickSizeResponse
	err := c.reads.Do(ctx, http.MethodGet, EndpointGetTickSize, &sdkhttp.RequestOptions{
		Params: map[string]any{"token_id": tokenID},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("获取 tick size 失败: %w", err)
	}
	tick := types.TickSize(strconv.FormatFloat(resp.MinimumTickSize, 'f', -1, 64))
	if !tick.Valid() {
		return "", fmt.Errorf("不支持的 tick size: %s", tick)
	}
	return tick, nil
}

// GetNegRisk 查询代币所在市场是否为负风险市场
func (c *Client) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	var resp types.NegRiskResponse
	err := c.reads.Do(ctx, http.MethodGet, EndpointGetNegRisk, &sdkhttp.RequestOptions{
		Params: map[string]any{"token_id": tokenID},
	}, &resp)
	if err != nil {
		return false, fmt.Errorf("获取 neg risk 失败: %w", err)
	}
	return resp.NegRisk, nil
}

// GetMarket 按 conditionId 获取市场（含各结果的 token id）
func (c *Client) GetMarket(ctx context.Context, conditionID string) (*types.Market, error) {
	if err := c.limiter.Wait(ctx, ratelimit.EndpointMarketGet); err != nil {
		return nil, err
	}
	var m types.Market
	if err := c.reads.Do(ctx, http.MethodGet, EndpointGetMarket+conditionID, nil, &m); err != nil {
		return nil, fmt.Errorf("获取市场失败: %w", err)
	}
	return &m, nil
}
