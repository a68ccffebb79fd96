package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/betbot/copybot/clob/signing"
	"github.com/betbot/copybot/clob/types"
	sdkhttp "github.com/betbot/copybot/pkg/sdk/http"
	"github.com/betbot/copybot/pkg/ratelimit"
)

var log = logrus.WithField("component", "clob")

// PostOrder 提交已签名订单（L2 认证，配置了 Builder 时附带归因头）
func (c *Client) PostOrder(ctx context.Context, order *types.SignedOrder, orderType types.OrderType) (*types.OrderResponse, error) {
	if err := c.CanL2Auth(); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx, ratelimit.EndpointOrderPost); err != nil {
		return nil, fmt.Errorf("速率限制等待失败: %w", err)
	}

	creds := c.Creds()
	body, err := json.Marshal(types.NewOrder{
		Order:     *order,
		Owner:     creds.Key,
		OrderType: orderType,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化订单载荷失败: %w", err)
	}

	ts := c.now().Unix()
	l2, err := signing.CreateL2Headers(c.authConfig.PrivateKey, creds, types.L2HeaderArgs{
		Method:      http.MethodPost,
		RequestPath: EndpointPostOrder,
		Body:        string(body),
	}, ts)
	if err != nil {
		return nil, fmt.Errorf("创建 L2 认证头失败: %w", err)
	}
	headers := l2.Map()

	if c.builder != nil {
		bh, err := c.builder.Sign(ctx, http.MethodPost, EndpointPostOrder, string(body), ts)
		if err != nil {
			return nil, fmt.Errorf("创建 Builder 归因头失败: %w", err)
		}
		for k, v := range bh {
			headers[k] = v
		}
	}

	var resp types.OrderResponse
	err = c.writes.Do(ctx, http.MethodPost, EndpointPostOrder, &sdkhttp.RequestOptions{
		Headers: headers,
		Data:    string(body),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("提交订单失败: %w", err)
	}

	log.Debugf("订单响应: success=%v orderID=%s status=%s err=%s", resp.Success, resp.OrderID, resp.Status, resp.ErrorMsg)
	return &resp, nil
}

// CreateOrder 构建并签名限价订单
func (c *Client) CreateOrder(order *types.UserOrder, options types.CreateOrderOptions) (*types.SignedOrder, error) {
	if c.orderBuilder == nil {
		return nil, fmt.Errorf("无法签名订单: %w", ErrL1AuthUnavailable)
	}
	return c.orderBuilder.BuildOrder(order, options)
}

// CreateAndPostOrder 构建、签名并提交限价订单
func (c *Client) CreateAndPostOrder(ctx context.Context, order *types.UserOrder, options types.CreateOrderOptions, orderType types.OrderType) (*types.OrderResponse, error) {
	signed, err := c.CreateOrder(order, options)
	if err != nil {
		return nil, err
	}
	return c.PostOrder(ctx, signed, orderType)
}
