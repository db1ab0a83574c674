// Package session drives the trading day as a tick-based state machine:
// INITIALIZING -> AUTHENTICATED -> RUNNING <-> FLATTENING -> HALTED or
// TERMINATED. The controller owns session lifecycle state exclusively; the
// tracker owns position state; the risk governor decides, the controller
// obeys.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devvrat-hans/algo-trading-bot/internal/config"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway/notifier"
	"github.com/devvrat-hans/algo-trading-bot/internal/logger"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
	"github.com/devvrat-hans/algo-trading-bot/internal/risk"
	"github.com/devvrat-hans/algo-trading-bot/internal/strategy"
)

const tickSummaryEvery = 10

// EntrySelector maps an actionable signal onto the contract to trade and the
// order direction. Index-option sessions buy an ATM call or put; direct
// sessions go long or short the underlying.
type EntrySelector interface {
	SelectEntry(sig strategy.Signal, underlyingPrice float64) (string, position.Direction, error)
}

// TradeSink receives every applied trade record for persistence. Failures
// are logged and never block the loop.
type TradeSink interface {
	Save(ctx context.Context, rec position.TradeRecord) error
}

type ControllerParams struct {
	Config   *config.Config
	Auth     gateway.Authenticator
	Feed     gateway.PriceFeed
	Exec     gateway.ExecutionGateway
	Strategy strategy.Strategy
	Selector EntrySelector
	Events   notifier.Notifier
	Trades   TradeSink
}

type Controller struct {
	cfg      *config.Config
	auth     gateway.Authenticator
	feed     gateway.PriceFeed
	exec     gateway.ExecutionGateway
	strat    strategy.Strategy
	selector EntrySelector
	events   notifier.Notifier
	trades   TradeSink
	tracker  *position.Tracker

	mu            sync.RWMutex
	state         State
	cause         Cause
	lastPrice     float64
	ticks         int
	lastSignal    strategy.Signal
	priceFailures int

	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration) error
}

func NewController(p ControllerParams) *Controller {
	c := &Controller{
		cfg:      p.Config,
		auth:     p.Auth,
		feed:     p.Feed,
		exec:     p.Exec,
		strat:    p.Strategy,
		selector: p.Selector,
		events:   p.Events,
		trades:   p.Trades,
		state:    StateInitializing,
		nowFn:    time.Now,
		sleepFn:  sleepContext,
	}
	if c.events == nil {
		c.events = notifier.NewFanout(notifier.LogSink{})
	}
	if p.Config != nil {
		c.tracker = position.NewTracker(p.Config.Instrument.UnderlyingKey, time.Time{})
	}
	return c
}

// Tracker exposes the session's tracker for read-only surfaces.
func (c *Controller) Tracker() *position.Tracker { return c.tracker }

// Run executes the session to a terminal state. The returned error is only
// non-nil when the session could not start (config or auth); risk halts are
// an orderly outcome, reported through events.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.initialize(); err != nil {
		return err
	}

	if err := c.authenticate(ctx); err != nil {
		c.setState(StateHalted, CauseAuthFailure)
		c.reportEnd()
		return err
	}
	c.setState(StateAuthenticated, CauseNone)

	start := c.nowFn()
	c.tracker.ResetDay(start)
	c.publish(notifier.Event{
		Kind:          notifier.EventSessionStarted,
		Timestamp:     start,
		InstrumentKey: c.cfg.Instrument.UnderlyingKey,
	})

	c.setState(StateRunning, CauseNone)
	for {
		c.tick(ctx)
		if c.State().Terminal() {
			break
		}
		// Sleep errors mean cancellation; the next tick's top turns that
		// into an OPERATOR_STOP flatten.
		_ = c.sleepFn(ctx, c.cfg.Risk.TickInterval())
	}

	c.reportEnd()
	return nil
}

func (c *Controller) initialize() error {
	if c.cfg == nil {
		return fmt.Errorf("session config is nil")
	}
	if err := config.Validate(c.cfg); err != nil {
		return fmt.Errorf("session refused to start: %w", err)
	}
	if c.auth == nil || c.feed == nil || c.exec == nil || c.strat == nil || c.selector == nil {
		return fmt.Errorf("session refused to start: missing collaborator")
	}
	return nil
}

func (c *Controller) authenticate(ctx context.Context) error {
	attempts := c.cfg.Risk.AuthAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		sess, err := c.auth.Authenticate(ctx)
		if err == nil {
			logger.Infof("authenticated user=%s broker=%s", sess.UserID, sess.Broker)
			return nil
		}
		lastErr = err
		logger.Warnf("authentication attempt %d/%d failed: %v", attempt, attempts, err)
		if attempt < attempts {
			if serr := c.sleepFn(ctx, time.Duration(attempt)*time.Second); serr != nil {
				return fmt.Errorf("authentication aborted: %w", serr)
			}
		}
	}
	return fmt.Errorf("authentication failed after %d attempts: %w", attempts, lastErr)
}

// tick runs one loop iteration: runtime check, price fetch, continuous risk
// check, then the signal path. While flat the signal can open a position;
// while open a reversed signal closes it so the new side can enter on the
// next tick. At most one order per tick.
func (c *Controller) tick(ctx context.Context) {
	now := c.nowFn()
	c.tracker.MarkTick(now)

	c.mu.Lock()
	c.ticks++
	ticks := c.ticks
	c.mu.Unlock()

	if ctx.Err() != nil {
		c.flatten(ctx, CauseOperatorStop)
		return
	}

	stats := c.tracker.Stats()
	if now.Sub(stats.SessionStartedAt) >= c.cfg.Risk.MaxRuntime() {
		c.flatten(ctx, CauseRuntimeExceeded)
		return
	}

	pos := c.tracker.Position()
	if !pos.Flat() {
		if c.monitorOpenPosition(ctx, pos, stats) {
			c.checkReversal(ctx)
		}
	} else {
		c.seekEntry(ctx, stats)
	}

	if ticks%tickSummaryEvery == 0 {
		p := c.tracker.Position()
		s := c.tracker.Stats()
		c.publish(notifier.Event{
			Kind:      notifier.EventTickSummary,
			Timestamp: now,
			State:     c.State().String(),
			Price:     c.LastPrice(),
			Position:  &p,
			Stats:     &s,
		})
	}
}

// monitorOpenPosition prices the position and obeys the continuous check.
// A position that cannot be priced for priceFailureLimit consecutive ticks
// is closed protectively: an un-monitorable position is itself a breach.
// Returns true when the position is still open and was priced this tick.
func (c *Controller) monitorOpenPosition(ctx context.Context, pos position.Position, stats position.Stats) bool {
	price, err := c.feed.LTP(ctx, pos.InstrumentKey)
	if err != nil {
		c.mu.Lock()
		c.priceFailures++
		failures := c.priceFailures
		c.mu.Unlock()
		logger.Warnf("pricing open position failed (%d/%d): %v", failures, c.cfg.Risk.PriceFailureLimit, err)
		if failures >= c.cfg.Risk.PriceFailureLimit {
			c.flatten(ctx, CauseDataFailure)
		}
		return false
	}

	c.mu.Lock()
	c.priceFailures = 0
	c.lastPrice = price
	c.mu.Unlock()

	dec := risk.Continuous(pos, price, stats, c.cfg.Risk)
	c.publishRisk(dec, price)
	if dec.Verdict == risk.VerdictClose {
		c.flatten(ctx, causeFromReason(dec.Reason))
		return false
	}
	return true
}

// checkReversal consults the strategy while a position is open. A fresh
// signal opposing the one that opened the trade closes it; the guard is left
// untouched so the next flat tick can enter the new side through the
// pre-trade check.
func (c *Controller) checkReversal(ctx context.Context) {
	underlying := c.cfg.Instrument.UnderlyingKey
	candles, err := c.feed.Candles(ctx, underlying, c.cfg.Instrument.Unit, c.cfg.Instrument.Interval)
	if err != nil {
		logger.Warnf("candle fetch failed, reversal check skipped: %v", err)
		return
	}

	sig := c.strat.Signal(candles)

	c.mu.Lock()
	prev := c.lastSignal
	c.mu.Unlock()

	if sig == strategy.SignalHold || sig == prev {
		return
	}
	logger.Infof("signal reversed %s -> %s with open position, closing", prev, sig)
	c.flatten(ctx, CauseSignalReversal)
}

// seekEntry fetches a fresh signal and, when permitted, places one entry
// order. A signal only triggers when it differs from the last acted-on
// signal, so a persisting BUY does not re-enter every tick.
func (c *Controller) seekEntry(ctx context.Context, stats position.Stats) {
	underlying := c.cfg.Instrument.UnderlyingKey
	price, err := c.feed.LTP(ctx, underlying)
	if err != nil {
		logger.Warnf("underlying price fetch failed, tick aborted: %v", err)
		return
	}

	candles, err := c.feed.Candles(ctx, underlying, c.cfg.Instrument.Unit, c.cfg.Instrument.Interval)
	if err != nil {
		logger.Warnf("candle fetch failed, tick aborted: %v", err)
		return
	}

	sig := c.strat.Signal(candles)

	c.mu.Lock()
	prev := c.lastSignal
	c.lastSignal = sig
	c.mu.Unlock()

	// Act only on a change of signal: a persisting BUY must not re-enter
	// every tick. The guard records every evaluation, so a HOLD in between
	// lets the same side trigger again.
	if sig == strategy.SignalHold || sig == prev {
		return
	}

	dec := risk.PreTrade(stats, c.cfg.Risk)
	c.publishRisk(dec, price)
	if dec.Verdict == risk.VerdictDeny {
		// Neither deny reason can clear before tomorrow; stop the day.
		c.flatten(ctx, causeFromReason(dec.Reason))
		return
	}

	instrumentKey, dir, err := c.selector.SelectEntry(sig, price)
	if err != nil {
		logger.Warnf("entry selection failed, tick aborted: %v", err)
		return
	}
	c.placeEntry(ctx, instrumentKey, dir)
}

func (c *Controller) placeEntry(ctx context.Context, instrumentKey string, dir position.Direction) {
	req := gateway.OrderRequest{
		InstrumentKey: instrumentKey,
		Direction:     dir,
		Quantity:      c.cfg.Instrument.Quantity,
		ClientOrderID: uuid.NewString(),
	}
	c.publish(notifier.Event{
		Kind:          notifier.EventOrderPlaced,
		Timestamp:     c.nowFn(),
		InstrumentKey: req.InstrumentKey,
		Direction:     req.Direction,
		Quantity:      req.Quantity,
	})
	fill, err := c.exec.PlaceOrder(ctx, req)
	if err != nil {
		logger.Warnf("entry order failed, tick aborted: %v", err)
		return
	}
	c.applyFill(ctx, fill)
}

// flatten issues a close order for the full open quantity and then settles
// the session state for the cause: stop-loss and take-profit closes return
// to RUNNING, clean stops TERMINATE, breaches HALT. The close order keeps
// one client order id across retries so the gateway can deduplicate.
func (c *Controller) flatten(ctx context.Context, cause Cause) {
	c.setState(StateFlattening, cause)

	pos := c.tracker.Position()
	if !pos.Flat() {
		// The close must survive operator cancellation.
		base := context.WithoutCancel(ctx)
		req := gateway.OrderRequest{
			InstrumentKey: pos.InstrumentKey,
			Direction:     directionToClose(pos.Side),
			Quantity:      pos.Quantity,
			ClientOrderID: uuid.NewString(),
		}
		attempts := c.cfg.Risk.FlattenAttempts
		for attempt := 1; attempt <= attempts; attempt++ {
			fill, err := c.exec.PlaceOrder(base, req)
			if err == nil {
				c.applyFill(base, fill)
				break
			}
			logger.Errorf("flatten attempt %d/%d failed: %v", attempt, attempts, err)
			if attempt < attempts {
				_ = c.sleepFn(base, time.Duration(attempt)*c.cfg.Risk.FlattenBackoff())
			}
		}
	}

	flat := c.tracker.Position().Flat()
	switch {
	case !flat:
		logger.Errorf("position still open after %d close attempts, halting", c.cfg.Risk.FlattenAttempts)
		c.setState(StateHalted, cause)
	case cause.perTrade():
		c.setState(StateRunning, CauseNone)
	case cause.clean():
		c.setState(StateTerminated, cause)
	default:
		c.setState(StateHalted, cause)
	}
}

func directionToClose(side position.Side) position.Direction {
	if side == position.SideShort {
		return position.DirectionBuy
	}
	return position.DirectionSell
}

func (c *Controller) applyFill(ctx context.Context, fill position.Fill) {
	rec, applied, err := c.tracker.OnFill(fill)
	if err != nil {
		logger.Errorf("rejected fill %s: %v", fill.ID, err)
		return
	}
	if !applied {
		logger.Warnf("duplicate fill %s ignored", fill.ID)
		return
	}
	c.mu.Lock()
	c.lastPrice = fill.Price
	c.mu.Unlock()

	c.publish(notifier.Event{
		Kind:      notifier.EventFillApplied,
		Timestamp: fill.Timestamp,
		Trade:     &rec,
	})
	if c.trades != nil {
		if err := c.trades.Save(ctx, rec); err != nil {
			logger.Errorf("persisting trade record %s failed: %v", rec.ID, err)
		}
	}
}

func (c *Controller) publishRisk(dec risk.Decision, price float64) {
	c.publish(notifier.Event{
		Kind:          notifier.EventRiskDecision,
		Timestamp:     c.nowFn(),
		Verdict:       dec.Verdict.String(),
		Reason:        string(dec.Reason),
		Price:         price,
		UnrealizedPnL: dec.UnrealizedPnL,
	})
}

func (c *Controller) setState(next State, cause Cause) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	// A per-trade close re-enters RUNNING with no cause; the stale one must
	// not linger on the status surface.
	c.cause = cause
	c.mu.Unlock()
	if prev == next {
		return
	}
	c.publish(notifier.Event{
		Kind:      notifier.EventStateChanged,
		Timestamp: c.nowFn(),
		State:     next.String(),
		PrevState: prev.String(),
		Cause:     string(cause),
	})
}

func (c *Controller) reportEnd() {
	stats := c.tracker.Stats()
	c.publish(notifier.Event{
		Kind:      notifier.EventSessionEnded,
		Timestamp: c.nowFn(),
		State:     c.State().String(),
		Cause:     string(c.TerminalCause()),
		Stats:     &stats,
	})
}

func (c *Controller) publish(evt notifier.Event) {
	c.events.Publish(evt)
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) TerminalCause() Cause {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cause
}

func (c *Controller) LastPrice() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastPrice
}

// Snapshot is the read-only view served by the status endpoint.
type Snapshot struct {
	State     string            `json:"state"`
	Cause     string            `json:"cause,omitempty"`
	Position  position.Position `json:"position"`
	Stats     position.Stats    `json:"stats"`
	LastPrice float64           `json:"last_price,omitempty"`
	Ticks     int               `json:"ticks"`
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	state := c.state
	cause := c.cause
	price := c.lastPrice
	ticks := c.ticks
	c.mu.RUnlock()
	return Snapshot{
		State:     state.String(),
		Cause:     string(cause),
		Position:  c.tracker.Position(),
		Stats:     c.tracker.Stats(),
		LastPrice: price,
		Ticks:     ticks,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
