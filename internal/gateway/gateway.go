// Package gateway defines the collaborator contracts the session core
// consumes. Implementations own their retry and transport policy; the core
// only distinguishes transient failures from authentication failures.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/devvrat-hans/algo-trading-bot/internal/market"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
)

// ErrUnauthorized marks failures that no retry at the data/order layer can
// fix; the controller escalates them instead of retrying the tick.
var ErrUnauthorized = errors.New("broker session unauthorized")

// Session describes an authenticated broker session.
type Session struct {
	UserID   string
	UserName string
	Broker   string
	IssuedAt time.Time
}

type Authenticator interface {
	Authenticate(ctx context.Context) (Session, error)
}

type PriceFeed interface {
	// LTP returns the last traded price for the instrument.
	LTP(ctx context.Context, instrumentKey string) (float64, error)
	// Candles returns intraday candles ordered oldest first.
	Candles(ctx context.Context, instrumentKey, unit string, interval int) ([]market.Candle, error)
}

// OrderRequest is a market order. ClientOrderID is the idempotency key: a
// retried request with the same id must not produce a second fill.
type OrderRequest struct {
	InstrumentKey string
	Direction     position.Direction
	Quantity      int64
	ClientOrderID string
}

type ExecutionGateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (position.Fill, error)
}
