package ports

import (
	"context"

	"github.com/moznion/go-optional"

	"github.com/betbot/copybot/internal/domain"
)

// Small capability interfaces shared across layers (monitor/executor/copybot/statusapi).

type PositionSource interface {
	// GetUserPositions returns a fresh snapshot of the account's holdings.
	GetUserPositions(ctx context.Context, address string) (domain.PositionSnapshot, error)
}

type PriceSource interface {
	// GetMarketPrice returns None when no usable quote exists.
	GetMarketPrice(ctx context.Context, market, outcome string) optional.Option[float64]
}

type OrderPlacer interface {
	PlaceBuyOrder(ctx context.Context, market, outcome string, price, size float64, signature string) (*domain.OrderAck, error)
	PlaceSellOrder(ctx context.Context, market, outcome string, price, size float64, signature string) (*domain.OrderAck, error)
}

// OrderGateway is what the trade executor needs from the exchange.
type OrderGateway interface {
	PriceSource
	OrderPlacer
}

type RedeemableSource interface {
	GetRedeemablePositions(ctx context.Context, address string) ([]domain.RedeemablePosition, error)
}

type TradeRecorder interface {
	Record(ctx context.Context, result domain.TradeResult) error
}
