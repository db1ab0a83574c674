package strategy

import (
	"github.com/markcheno/go-talib"

	"github.com/devvrat-hans/algo-trading-bot/internal/market"
)

type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Strategy derives a trading signal from closed candles. The controller
// treats it as an external collaborator and never inspects how the signal
// was produced.
type Strategy interface {
	Signal(candles []market.Candle) Signal
}

// EMACrossover signals BUY when the fast EMA crosses above the slow EMA on
// the latest closed candle and SELL when it crosses below. No cross, or not
// enough history, means HOLD.
type EMACrossover struct {
	FastPeriod int
	SlowPeriod int
}

func NewEMACrossover(fast, slow int) *EMACrossover {
	if fast <= 0 {
		fast = 9
	}
	if slow <= fast {
		slow = fast * 3
	}
	return &EMACrossover{FastPeriod: fast, SlowPeriod: slow}
}

func (s *EMACrossover) Signal(candles []market.Candle) Signal {
	closes := market.Closes(candles)
	// talib needs slow+1 points for a defined value on both of the last two
	// bars.
	if len(closes) < s.SlowPeriod+2 {
		return SignalHold
	}
	fast := talib.Ema(closes, s.FastPeriod)
	slow := talib.Ema(closes, s.SlowPeriod)

	last := len(closes) - 1
	prev := last - 1

	prevAbove := fast[prev] > slow[prev]
	lastAbove := fast[last] > slow[last]

	switch {
	case !prevAbove && lastAbove:
		return SignalBuy
	case prevAbove && !lastAbove:
		return SignalSell
	default:
		return SignalHold
	}
}
