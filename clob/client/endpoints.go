package client

// API 端点常量
const (
	EndpointCreateAPIKey = "/auth/api-key"
	EndpointDeriveAPIKey = "/auth/derive-api-key"

	EndpointGetMarket    = "/markets/"
	EndpointGetOrderBook = "/book"
	EndpointGetTickSize  = "/tick-size"
	EndpointGetNegRisk   = "/neg-risk"

	EndpointPostOrder = "/order"
)
