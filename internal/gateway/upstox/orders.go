package upstox

import (
	"context"
	"fmt"
	"time"

	"github.com/devvrat-hans/algo-trading-bot/internal/gateway"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
)

type orderPayload struct {
	InstrumentToken   string  `json:"instrument_token"`
	Quantity          int64   `json:"quantity"`
	Product           string  `json:"product"`
	Validity          string  `json:"validity"`
	Price             float64 `json:"price"`
	Tag               string  `json:"tag"`
	OrderType         string  `json:"order_type"`
	TransactionType   string  `json:"transaction_type"`
	DisclosedQuantity int64   `json:"disclosed_quantity"`
	TriggerPrice      float64 `json:"trigger_price"`
	IsAMO             bool    `json:"is_amo"`
}

// PlaceOrder submits an intraday market order. The client order id travels as
// the order tag so a retried request can be matched to its first acceptance
// by the broker. The fill price is read back as LTP, the same way the
// original flow confirms entries.
func (c *Client) PlaceOrder(ctx context.Context, req gateway.OrderRequest) (position.Fill, error) {
	if req.Quantity <= 0 {
		return position.Fill{}, fmt.Errorf("order quantity must be > 0")
	}

	payload := orderPayload{
		InstrumentToken: req.InstrumentKey,
		Quantity:        req.Quantity,
		Product:         "I",
		Validity:        "DAY",
		Tag:             req.ClientOrderID,
		OrderType:       "MARKET",
		TransactionType: string(req.Direction),
	}

	res, err := c.postJSON(ctx, "/v2/order/place", payload)
	if err != nil {
		return position.Fill{}, err
	}
	orderID := res.Get("data.order_id").String()
	if orderID == "" {
		return position.Fill{}, fmt.Errorf("order accepted without order_id")
	}

	price, err := c.LTP(ctx, req.InstrumentKey)
	if err != nil {
		return position.Fill{}, fmt.Errorf("order %s placed but fill price unavailable: %w", orderID, err)
	}

	return position.Fill{
		ID:            orderID,
		ClientOrderID: req.ClientOrderID,
		InstrumentKey: req.InstrumentKey,
		Direction:     req.Direction,
		Quantity:      req.Quantity,
		Price:         price,
		Timestamp:     time.Now(),
	}, nil
}
