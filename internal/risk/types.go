package risk

// Reason names the limit behind a CLOSE or DENY outcome. These are control
// flow, not errors: the controller turns them into flatten-and-halt causes.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonStopLoss     Reason = "STOP_LOSS"
	ReasonTakeProfit   Reason = "TAKE_PROFIT"
	ReasonMaxDailyLoss Reason = "MAX_DAILY_LOSS"
	ReasonMaxTrades    Reason = "MAX_TRADES"
)

type Verdict int

const (
	VerdictHold Verdict = iota
	VerdictClose
	VerdictAllow
	VerdictDeny
)

func (v Verdict) String() string {
	switch v {
	case VerdictHold:
		return "HOLD"
	case VerdictClose:
		return "CLOSE"
	case VerdictAllow:
		return "ALLOW"
	case VerdictDeny:
		return "DENY"
	default:
		return "UNKNOWN"
	}
}

// Decision is the governor's answer for one check. UnrealizedPnL carries the
// valuation the continuous check was made against, for event reporting.
type Decision struct {
	Verdict       Verdict
	Reason        Reason
	UnrealizedPnL float64
}
