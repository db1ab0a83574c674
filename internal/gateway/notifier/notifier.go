package notifier

import (
	"github.com/devvrat-hans/algo-trading-bot/internal/logger"
)

// Notifier is intentionally small so components can depend on it without
// importing concrete sinks.
type Notifier interface {
	Publish(evt Event)
}

// Fanout delivers each event to every sink. Sink failures are the sink's
// problem; publishing never blocks the trading loop on a slow channel.
type Fanout struct {
	sinks []Notifier
}

func NewFanout(sinks ...Notifier) *Fanout {
	out := make([]Notifier, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Publish(evt Event) {
	for _, s := range f.sinks {
		s.Publish(evt)
	}
}

// LogSink writes every event to the structured log. Always installed so a
// session is auditable even with no external sink configured.
type LogSink struct{}

func (LogSink) Publish(evt Event) {
	switch evt.Kind {
	case EventStateChanged:
		logger.Infof("event=%s state=%s prev=%s cause=%s", evt.Kind, evt.State, evt.PrevState, evt.Cause)
	case EventRiskDecision:
		logger.Infof("event=%s verdict=%s reason=%s price=%.2f unrealized=%.2f",
			evt.Kind, evt.Verdict, evt.Reason, evt.Price, evt.UnrealizedPnL)
	case EventOrderPlaced:
		logger.Infof("event=%s instrument=%s direction=%s qty=%d",
			evt.Kind, evt.InstrumentKey, evt.Direction, evt.Quantity)
	case EventFillApplied:
		if evt.Trade != nil {
			logger.Infof("event=%s fill=%s direction=%s qty=%d price=%.2f pnl_delta=%.2f round_trip=%v",
				evt.Kind, evt.Trade.FillID, evt.Trade.Direction, evt.Trade.Quantity,
				evt.Trade.Price, evt.Trade.RealizedPnLDelta, evt.Trade.RoundTripClosed)
		}
	case EventSessionEnded:
		if evt.Stats != nil {
			logger.Infof("event=%s cause=%s trades=%d realized_pnl=%.2f",
				evt.Kind, evt.Cause, evt.Stats.TradesToday, evt.Stats.RealizedPnLToday)
		}
	default:
		logger.Debugf("event=%s state=%s", evt.Kind, evt.State)
	}
}
