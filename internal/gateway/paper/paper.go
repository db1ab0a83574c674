// Package paper is an in-memory execution gateway for dry runs. Orders fill
// instantly at the latest known price and never touch the broker. Market data
// can still come from a real feed; without one, a synthetic random walk keeps
// the loop alive.
package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devvrat-hans/algo-trading-bot/internal/gateway"
	"github.com/devvrat-hans/algo-trading-bot/internal/market"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
)

type Gateway struct {
	feed gateway.PriceFeed // optional, synthetic walk when nil

	mu        sync.Mutex
	lastPrice float64
	fills     map[string]position.Fill // client order id -> fill, for retry dedup
	rng       *rand.Rand
}

func New(feed gateway.PriceFeed, bootstrapPrice float64) *Gateway {
	if bootstrapPrice <= 0 {
		bootstrapPrice = 50000
	}
	return &Gateway{
		feed:      feed,
		lastPrice: bootstrapPrice,
		fills:     make(map[string]position.Fill),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (g *Gateway) Authenticate(ctx context.Context) (gateway.Session, error) {
	return gateway.Session{
		UserID:   "paper",
		UserName: "paper trader",
		Broker:   "paper",
		IssuedAt: time.Now(),
	}, nil
}

func (g *Gateway) LTP(ctx context.Context, instrumentKey string) (float64, error) {
	if g.feed != nil {
		price, err := g.feed.LTP(ctx, instrumentKey)
		if err != nil {
			return 0, err
		}
		g.mu.Lock()
		g.lastPrice = price
		g.mu.Unlock()
		return price, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// 0.1% step random walk.
	g.lastPrice *= 1 + (g.rng.Float64()-0.5)*0.002
	return g.lastPrice, nil
}

func (g *Gateway) Candles(ctx context.Context, instrumentKey, unit string, interval int) ([]market.Candle, error) {
	if g.feed != nil {
		return g.feed.Candles(ctx, instrumentKey, unit, interval)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now().Truncate(time.Minute)
	step := time.Duration(interval) * time.Minute
	price := g.lastPrice
	const count = 120
	out := make([]market.Candle, count)
	// Walk forward in time so each candle opens where the previous closed
	// and the newest close becomes the quoted price.
	for i := 0; i < count; i++ {
		open := price
		price *= 1 + (g.rng.Float64()-0.5)*0.002
		out[i] = market.Candle{
			Timestamp: now.Add(-time.Duration(count-1-i) * step),
			Open:      open,
			High:      max(open, price),
			Low:       min(open, price),
			Close:     price,
			Volume:    float64(100 + g.rng.Intn(900)),
		}
	}
	g.lastPrice = out[count-1].Close
	return out, nil
}

// PlaceOrder fills at the latest price. A repeated client order id returns
// the original fill, mirroring broker-side deduplication under retry.
func (g *Gateway) PlaceOrder(ctx context.Context, req gateway.OrderRequest) (position.Fill, error) {
	if req.Quantity <= 0 {
		return position.Fill{}, fmt.Errorf("order quantity must be > 0")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if req.ClientOrderID != "" {
		if fill, ok := g.fills[req.ClientOrderID]; ok {
			return fill, nil
		}
	}

	fill := position.Fill{
		ID:            uuid.NewString(),
		ClientOrderID: req.ClientOrderID,
		InstrumentKey: req.InstrumentKey,
		Direction:     req.Direction,
		Quantity:      req.Quantity,
		Price:         g.lastPrice,
		Timestamp:     time.Now(),
	}
	if req.ClientOrderID != "" {
		g.fills[req.ClientOrderID] = fill
	}
	return fill, nil
}

// SetPrice pins the simulated price; used by tests.
func (g *Gateway) SetPrice(price float64) {
	g.mu.Lock()
	g.lastPrice = price
	g.mu.Unlock()
}
