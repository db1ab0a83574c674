// Package risk is the stateless decision authority of the session. It owns no
// mutable state: every check is a pure function of the tracker snapshot, the
// current price and the configured limits. No other component may override a
// CLOSE or DENY outcome.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/devvrat-hans/algo-trading-bot/internal/config"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
)

// Continuous evaluates an open position every tick, independent of signals.
// When both the per-trade stop and the daily ceiling are breached at once,
// the more specific STOP_LOSS is reported; the action is the same full close.
func Continuous(pos position.Position, price float64, stats position.Stats, limits config.RiskConfig) Decision {
	if pos.Flat() {
		return Decision{Verdict: VerdictHold}
	}

	unrealized := pos.UnrealizedPnL(price)
	unrealizedDec := decimal.NewFromFloat(unrealized)

	if unrealizedDec.LessThanOrEqual(decimal.NewFromFloat(-limits.StopLoss)) {
		return Decision{Verdict: VerdictClose, Reason: ReasonStopLoss, UnrealizedPnL: unrealized}
	}
	if unrealizedDec.GreaterThanOrEqual(decimal.NewFromFloat(limits.TakeProfit)) {
		return Decision{Verdict: VerdictClose, Reason: ReasonTakeProfit, UnrealizedPnL: unrealized}
	}

	// A daily-loss breach that is about to happen must close before it is
	// realized, not after.
	projected := decimal.NewFromFloat(stats.RealizedPnLToday).Add(unrealizedDec)
	if projected.LessThanOrEqual(decimal.NewFromFloat(-limits.MaxDailyLoss)) {
		return Decision{Verdict: VerdictClose, Reason: ReasonMaxDailyLoss, UnrealizedPnL: unrealized}
	}

	return Decision{Verdict: VerdictHold, UnrealizedPnL: unrealized}
}

// PreTrade gates a new entry while flat. Trade counting is round trips, so
// the cap bounds completed entry+exit pairs, not individual orders.
func PreTrade(stats position.Stats, limits config.RiskConfig) Decision {
	if stats.TradesToday >= limits.MaxTradesPerDay {
		return Decision{Verdict: VerdictDeny, Reason: ReasonMaxTrades}
	}
	realized := decimal.NewFromFloat(stats.RealizedPnLToday)
	if realized.LessThanOrEqual(decimal.NewFromFloat(-limits.MaxDailyLoss)) {
		return Decision{Verdict: VerdictDeny, Reason: ReasonMaxDailyLoss}
	}
	return Decision{Verdict: VerdictAllow}
}
