package session

import "github.com/devvrat-hans/algo-trading-bot/internal/risk"

type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateRunning
	StateFlattening
	StateHalted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateRunning:
		return "RUNNING"
	case StateFlattening:
		return "FLATTENING"
	case StateHalted:
		return "HALTED"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateHalted || s == StateTerminated
}

// Cause names why the session flattened or ended.
type Cause string

const (
	CauseNone            Cause = ""
	CauseStopLoss        Cause = "STOP_LOSS"
	CauseTakeProfit      Cause = "TAKE_PROFIT"
	CauseMaxDailyLoss    Cause = "MAX_DAILY_LOSS"
	CauseMaxTrades       Cause = "MAX_TRADES"
	CauseRuntimeExceeded Cause = "RUNTIME_EXCEEDED"
	CauseAuthFailure     Cause = "AUTH_FAILURE"
	CauseOperatorStop    Cause = "OPERATOR_STOP"
	CauseDataFailure     Cause = "DATA_FAILURE"
	CauseSignalReversal  Cause = "SIGNAL_REVERSAL"
)

func causeFromReason(r risk.Reason) Cause {
	return Cause(r)
}

// perTrade reports whether the cause closes one trade rather than the whole
// session: after a stop-loss, take-profit or signal-reversal flatten the loop
// returns to RUNNING, everything else ends in a terminal state.
func (c Cause) perTrade() bool {
	return c == CauseStopLoss || c == CauseTakeProfit || c == CauseSignalReversal
}

// clean distinguishes TERMINATED (orderly end of runtime or operator stop)
// from HALTED (a limit was breached or the session became unsafe).
func (c Cause) clean() bool {
	return c == CauseRuntimeExceeded || c == CauseOperatorStop
}
