package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/betbot/copybot/pkg/ratelimit"
	sdkhttp "github.com/betbot/copybot/pkg/sdk/http"
)

const (
	DefaultDataURL  = "https://data-api.polymarket.com"
	DefaultGammaURL = "https://gamma-api.polymarket.com"

	positionsPageSize = 500
	maxPositions      = 50000
)

// Client handles the public Polymarket data and gamma APIs.
type Client struct {
	data    *sdkhttp.Client
	gamma   *sdkhttp.Client
	limiter *ratelimit.Manager
}

// NewClient creates a client; empty URLs fall back to the public endpoints.
func NewClient(dataURL, gammaURL string, opts ...sdkhttp.Option) *Client {
	if dataURL == "" {
		dataURL = DefaultDataURL
	}
	if gammaURL == "" {
		gammaURL = DefaultGammaURL
	}
	return &Client{
		data:    sdkhttp.NewClient(dataURL, opts...),
		gamma:   sdkhttp.NewClient(gammaURL, opts...),
		limiter: ratelimit.NewManager(),
	}
}

// GetPositions fetches current holdings for a user from /positions.
func (c *Client) GetPositions(ctx context.Context, q PositionsQuery) ([]Position, error) {
	if strings.TrimSpace(q.User) == "" {
		return nil, fmt.Errorf("user address is required for positions")
	}
	if err := c.limiter.Wait(ctx, ratelimit.EndpointPositionsGet); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = positionsPageSize
	}
	params := map[string]any{
		"user":          q.User,
		"sizeThreshold": strconv.FormatFloat(q.SizeThreshold, 'f', -1, 64),
		"limit":         q.Limit,
	}
	if q.Offset > 0 {
		params["offset"] = q.Offset
	}
	if q.Redeemable != nil {
		params["redeemable"] = strconv.FormatBool(*q.Redeemable)
	}

	var positions []Position
	if err := c.data.Do(ctx, http.MethodGet, "/positions", &sdkhttp.RequestOptions{Params: params}, &positions); err != nil {
		return nil, fmt.Errorf("get positions for %s: %w", q.User, err)
	}
	return positions, nil
}

// GetAllPositions pages through /positions until a short page comes back.
// A partial list would read as closed positions, so hitting the cap is an
// error rather than a truncated result.
func (c *Client) GetAllPositions(ctx context.Context, q PositionsQuery) ([]Position, error) {
	if q.Limit <= 0 {
		q.Limit = positionsPageSize
	}
	var all []Position
	for offset := 0; ; offset += q.Limit {
		q.Offset = offset
		page, err := c.GetPositions(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fetch positions at offset %d: %w", offset, err)
		}
		all = append(all, page...)
		if len(page) < q.Limit {
			return all, nil
		}
		if len(all) >= maxPositions {
			return nil, fmt.Errorf("positions for %s exceed cap of %d", q.User, maxPositions)
		}
	}
}

// GetMarketBySlug fetches a single market from gamma /markets/slug/{slug}.
func (c *Client) GetMarketBySlug(ctx context.Context, slug string) (*GammaMarket, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("slug is required")
	}
	if err := c.limiter.Wait(ctx, ratelimit.EndpointGammaMarket); err != nil {
		return nil, err
	}
	var m GammaMarket
	if err := c.gamma.Do(ctx, http.MethodGet, "/markets/slug/"+url.PathEscape(slug), nil, &m); err != nil {
		return nil, fmt.Errorf("get market %s: %w", slug, err)
	}
	return &m, nil
}
