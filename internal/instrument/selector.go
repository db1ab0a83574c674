package instrument

import (
	"fmt"

	"github.com/devvrat-hans/algo-trading-bot/internal/position"
	"github.com/devvrat-hans/algo-trading-bot/internal/strategy"
)

// UnderlyingSelector trades the underlying instrument directly: a BUY signal
// opens long, a SELL signal opens short.
type UnderlyingSelector struct {
	InstrumentKey string
}

func (s UnderlyingSelector) SelectEntry(sig strategy.Signal, underlyingPrice float64) (string, position.Direction, error) {
	switch sig {
	case strategy.SignalBuy:
		return s.InstrumentKey, position.DirectionBuy, nil
	case strategy.SignalSell:
		return s.InstrumentKey, position.DirectionSell, nil
	default:
		return "", "", fmt.Errorf("no entry for signal %s", sig)
	}
}

// ATMOptionSelector expresses both signal directions as long option
// positions: BUY opens the at-the-money call, SELL the at-the-money put.
// Either way the order direction is BUY, the way the original options flow
// trades.
type ATMOptionSelector struct {
	Master     *Master
	StrikeStep float64
}

func (s ATMOptionSelector) SelectEntry(sig strategy.Signal, underlyingPrice float64) (string, position.Direction, error) {
	var optionType string
	switch sig {
	case strategy.SignalBuy:
		optionType = TypeCall
	case strategy.SignalSell:
		optionType = TypePut
	default:
		return "", "", fmt.Errorf("no entry for signal %s", sig)
	}
	contract, err := s.Master.ResolveATM(optionType, underlyingPrice, s.StrikeStep)
	if err != nil {
		return "", "", err
	}
	return contract.InstrumentKey, position.DirectionBuy, nil
}
