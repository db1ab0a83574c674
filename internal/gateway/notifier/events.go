// Package notifier carries structured session events to presentation sinks.
// The core never formats human-readable text itself; sinks decide rendering.
package notifier

import (
	"time"

	"github.com/devvrat-hans/algo-trading-bot/internal/position"
)

type EventKind string

const (
	EventSessionStarted EventKind = "SESSION_STARTED"
	EventStateChanged   EventKind = "STATE_CHANGED"
	EventTickSummary    EventKind = "TICK_SUMMARY"
	EventOrderPlaced    EventKind = "ORDER_PLACED"
	EventFillApplied    EventKind = "FILL_APPLIED"
	EventRiskDecision   EventKind = "RISK_DECISION"
	EventSessionEnded   EventKind = "SESSION_ENDED"
)

// Event is one structured notification. Only the fields relevant to the kind
// are populated.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`

	State     string         `json:"state,omitempty"`
	PrevState string         `json:"prev_state,omitempty"`
	Cause     string         `json:"cause,omitempty"`

	Verdict       string  `json:"verdict,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	Price         float64 `json:"price,omitempty"`
	UnrealizedPnL float64 `json:"unrealized_pnl,omitempty"`

	InstrumentKey string             `json:"instrument_key,omitempty"`
	Direction     position.Direction `json:"direction,omitempty"`
	Quantity      int64              `json:"quantity,omitempty"`

	Position *position.Position    `json:"position,omitempty"`
	Stats    *position.Stats       `json:"stats,omitempty"`
	Trade    *position.TradeRecord `json:"trade,omitempty"`
}
