package position

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tracker is the only writer of Position and Stats. The controller applies
// fills through it; the governor and status surfaces only read snapshots.
type Tracker struct {
	mu        sync.RWMutex
	pos       Position
	stats     Stats
	records   []TradeRecord
	seenFills map[string]struct{}
}

func NewTracker(instrumentKey string, startedAt time.Time) *Tracker {
	return &Tracker{
		pos: Position{InstrumentKey: instrumentKey, Side: SideFlat},
		stats: Stats{
			SessionStartedAt: startedAt,
		},
		seenFills: make(map[string]struct{}),
	}
}

// OnFill applies a fill notification. Applying the same fill id twice is a
// no-op (applied=false). TradesToday counts round trips: it increments only
// on the fill that returns the position to flat.
func (t *Tracker) OnFill(f Fill) (TradeRecord, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f.ID == "" {
		return TradeRecord{}, false, fmt.Errorf("fill without id")
	}
	if f.Quantity <= 0 {
		return TradeRecord{}, false, fmt.Errorf("fill quantity must be > 0, got %d", f.Quantity)
	}
	if _, dup := t.seenFills[f.ID]; dup {
		return TradeRecord{}, false, nil
	}

	var rec TradeRecord
	switch {
	case t.pos.Flat():
		rec = t.applyOpen(f)
	case opensSide(f.Direction) == t.pos.Side:
		rec = t.applyScaleIn(f)
	default:
		rec = t.applyClose(f)
	}

	t.seenFills[f.ID] = struct{}{}
	t.records = append(t.records, rec)
	return rec, true, nil
}

func opensSide(d Direction) Side {
	if d == DirectionBuy {
		return SideLong
	}
	return SideShort
}

func (t *Tracker) applyOpen(f Fill) TradeRecord {
	t.pos = Position{
		InstrumentKey: f.InstrumentKey,
		Side:          opensSide(f.Direction),
		Quantity:      f.Quantity,
		EntryPrice:    f.Price,
		OpenedAt:      f.Timestamp,
	}
	return t.newRecord(f, 0, false)
}

// applyScaleIn folds a same-direction fill into the open position at a
// volume-weighted entry price.
func (t *Tracker) applyScaleIn(f Fill) TradeRecord {
	oldQty := decimal.NewFromInt(t.pos.Quantity)
	addQty := decimal.NewFromInt(f.Quantity)
	totalQty := oldQty.Add(addQty)
	weighted := decimal.NewFromFloat(t.pos.EntryPrice).Mul(oldQty).
		Add(decimal.NewFromFloat(f.Price).Mul(addQty)).
		Div(totalQty)
	t.pos.Quantity += f.Quantity
	t.pos.EntryPrice, _ = weighted.Float64()
	return t.newRecord(f, 0, false)
}

// applyClose realizes P&L for the closed quantity. A partial close keeps the
// remainder open at the original entry price. Quantity beyond the open
// position is ignored rather than flipping the side.
func (t *Tracker) applyClose(f Fill) TradeRecord {
	closeQty := f.Quantity
	if closeQty > t.pos.Quantity {
		closeQty = t.pos.Quantity
	}

	diff := decimal.NewFromFloat(f.Price).Sub(decimal.NewFromFloat(t.pos.EntryPrice))
	delta := diff.Mul(decimal.NewFromInt(closeQty))
	if t.pos.Side == SideShort {
		delta = delta.Neg()
	}
	deltaF, _ := delta.Float64()

	realized := decimal.NewFromFloat(t.stats.RealizedPnLToday).Add(delta)
	t.stats.RealizedPnLToday, _ = realized.Float64()

	t.pos.Quantity -= closeQty
	closed := t.pos.Quantity == 0
	if closed {
		t.pos = Position{InstrumentKey: t.pos.InstrumentKey, Side: SideFlat}
		t.stats.TradesToday++
	}
	return t.newRecord(f, deltaF, closed)
}

func (t *Tracker) newRecord(f Fill, pnlDelta float64, closed bool) TradeRecord {
	return TradeRecord{
		ID:               uuid.NewString(),
		FillID:           f.ID,
		Direction:        f.Direction,
		Quantity:         f.Quantity,
		Price:            f.Price,
		Timestamp:        f.Timestamp,
		Resulting:        t.pos,
		RealizedPnLDelta: pnlDelta,
		RoundTripClosed:  closed,
	}
}

func (t *Tracker) MarkTick(at time.Time) {
	t.mu.Lock()
	t.stats.LastTickAt = at
	t.mu.Unlock()
}

func (t *Tracker) Position() Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pos
}

func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

func (t *Tracker) Records() []TradeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]TradeRecord, len(t.records))
	copy(out, t.records)
	return out
}

// ResetDay clears daily aggregates. Only called explicitly for multi-day
// runs, never automatically.
func (t *Tracker) ResetDay(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TradesToday = 0
	t.stats.RealizedPnLToday = 0
	t.stats.SessionStartedAt = at
	t.records = nil
	t.seenFills = make(map[string]struct{})
}
