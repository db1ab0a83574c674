package position

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
	SideFlat  Side = "FLAT"
)

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Opposite returns the direction that reduces a position opened by d.
func (d Direction) Opposite() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// Position is the tracker-owned open position. Quantity > 0 iff Side != FLAT
// iff EntryPrice is set.
type Position struct {
	InstrumentKey string    `json:"instrument_key"`
	Side          Side      `json:"side"`
	Quantity      int64     `json:"quantity"`
	EntryPrice    float64   `json:"entry_price,omitempty"`
	OpenedAt      time.Time `json:"opened_at,omitempty"`
}

func (p Position) Flat() bool {
	return p.Side == SideFlat || p.Quantity == 0
}

// UnrealizedPnL values the open quantity at price. Long gains when price
// rises, short gains when it falls.
func (p Position) UnrealizedPnL(price float64) float64 {
	if p.Flat() || price <= 0 {
		return 0
	}
	diff := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(p.EntryPrice))
	pnl := diff.Mul(decimal.NewFromInt(p.Quantity))
	if p.Side == SideShort {
		pnl = pnl.Neg()
	}
	f, _ := pnl.Float64()
	return f
}

// Stats is the per-session aggregate the risk governor reads. Reset only at
// session start, never mid-day on its own.
type Stats struct {
	TradesToday      int       `json:"trades_today"`
	RealizedPnLToday float64   `json:"realized_pnl_today"`
	SessionStartedAt time.Time `json:"session_started_at"`
	LastTickAt       time.Time `json:"last_tick_at"`
}

// Fill is the execution gateway's report of a completed market order.
type Fill struct {
	ID            string    `json:"id"`
	ClientOrderID string    `json:"client_order_id"`
	InstrumentKey string    `json:"instrument_key"`
	Direction     Direction `json:"direction"`
	Quantity      int64     `json:"quantity"`
	Price         float64   `json:"price"`
	Timestamp     time.Time `json:"timestamp"`
}

// TradeRecord is the append-only audit entry, one per applied fill.
type TradeRecord struct {
	ID               string    `json:"id"`
	FillID           string    `json:"fill_id"`
	Direction        Direction `json:"direction"`
	Quantity         int64     `json:"quantity"`
	Price            float64   `json:"price"`
	Timestamp        time.Time `json:"timestamp"`
	Resulting        Position  `json:"resulting_position"`
	RealizedPnLDelta float64   `json:"realized_pnl_delta"`
	RoundTripClosed  bool      `json:"round_trip_closed"`
}
