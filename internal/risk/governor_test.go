package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devvrat-hans/algo-trading-bot/internal/config"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
)

func testLimits() config.RiskConfig {
	return config.RiskConfig{
		StopLoss:        1000,
		TakeProfit:      2000,
		MaxTradesPerDay: 5,
		MaxDailyLoss:    3000,
	}
}

func longPosition(qty int64, entry float64) position.Position {
	return position.Position{
		InstrumentKey: "NSE_FO|12345",
		Side:          position.SideLong,
		Quantity:      qty,
		EntryPrice:    entry,
		OpenedAt:      time.Now(),
	}
}

func TestContinuous(t *testing.T) {
	limits := testLimits()

	t.Run("flat position holds", func(t *testing.T) {
		dec := Continuous(position.Position{Side: position.SideFlat}, 100, position.Stats{}, limits)
		assert.Equal(t, VerdictHold, dec.Verdict)
	})

	t.Run("stop loss at exact threshold", func(t *testing.T) {
		// 100 * (440 - 450) = -1000, exactly the limit.
		dec := Continuous(longPosition(100, 450), 440, position.Stats{}, limits)
		assert.Equal(t, VerdictClose, dec.Verdict)
		assert.Equal(t, ReasonStopLoss, dec.Reason)
		assert.InDelta(t, -1000, dec.UnrealizedPnL, 1e-9)
	})

	t.Run("one tick above stop loss holds", func(t *testing.T) {
		dec := Continuous(longPosition(100, 450), 440.05, position.Stats{}, limits)
		assert.Equal(t, VerdictHold, dec.Verdict)
	})

	t.Run("take profit at exact threshold", func(t *testing.T) {
		dec := Continuous(longPosition(100, 450), 470, position.Stats{}, limits)
		assert.Equal(t, VerdictClose, dec.Verdict)
		assert.Equal(t, ReasonTakeProfit, dec.Reason)
	})

	t.Run("stop loss wins over daily loss", func(t *testing.T) {
		stats := position.Stats{RealizedPnLToday: -2500}
		dec := Continuous(longPosition(100, 450), 440, stats, limits)
		assert.Equal(t, VerdictClose, dec.Verdict)
		assert.Equal(t, ReasonStopLoss, dec.Reason)
	})

	t.Run("projected daily loss closes before realization", func(t *testing.T) {
		// Unrealized -600 alone is inside the stop, but realized -2500
		// projects to -3100.
		stats := position.Stats{RealizedPnLToday: -2500}
		dec := Continuous(longPosition(100, 450), 444, stats, limits)
		assert.Equal(t, VerdictClose, dec.Verdict)
		assert.Equal(t, ReasonMaxDailyLoss, dec.Reason)
	})

	t.Run("short position pnl sign", func(t *testing.T) {
		pos := position.Position{Side: position.SideShort, Quantity: 100, EntryPrice: 450}
		dec := Continuous(pos, 460, position.Stats{}, limits)
		assert.Equal(t, VerdictClose, dec.Verdict)
		assert.Equal(t, ReasonStopLoss, dec.Reason)
	})

	t.Run("healthy position holds", func(t *testing.T) {
		dec := Continuous(longPosition(100, 450), 455, position.Stats{}, limits)
		assert.Equal(t, VerdictHold, dec.Verdict)
		assert.InDelta(t, 500, dec.UnrealizedPnL, 1e-9)
	})
}

func TestPreTrade(t *testing.T) {
	limits := testLimits()

	t.Run("allows within limits", func(t *testing.T) {
		dec := PreTrade(position.Stats{TradesToday: 4, RealizedPnLToday: -2999}, limits)
		assert.Equal(t, VerdictAllow, dec.Verdict)
	})

	t.Run("denies at trade cap", func(t *testing.T) {
		dec := PreTrade(position.Stats{TradesToday: 5}, limits)
		assert.Equal(t, VerdictDeny, dec.Verdict)
		assert.Equal(t, ReasonMaxTrades, dec.Reason)
	})

	t.Run("denies at daily loss", func(t *testing.T) {
		dec := PreTrade(position.Stats{RealizedPnLToday: -3000}, limits)
		assert.Equal(t, VerdictDeny, dec.Verdict)
		assert.Equal(t, ReasonMaxDailyLoss, dec.Reason)
	})

	t.Run("trade cap checked before daily loss", func(t *testing.T) {
		dec := PreTrade(position.Stats{TradesToday: 5, RealizedPnLToday: -5000}, limits)
		assert.Equal(t, ReasonMaxTrades, dec.Reason)
	})
}
