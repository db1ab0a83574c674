package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devvrat-hans/algo-trading-bot/internal/config"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway"
	"github.com/devvrat-hans/algo-trading-bot/internal/market"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
	"github.com/devvrat-hans/algo-trading-bot/internal/strategy"
)

const (
	underlyingKey = "NSE_INDEX|Nifty Bank"
	optionKey     = "NSE_FO|BANKNIFTY-ATM-CE"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{LogLevel: "error"},
		Instrument: config.InstrumentConfig{
			UnderlyingKey: underlyingKey,
			Quantity:      100,
			Unit:          "minutes",
			Interval:      5,
		},
		Risk: config.RiskConfig{
			StopLoss:              1000,
			TakeProfit:            2000,
			MaxTradesPerDay:       5,
			MaxDailyLoss:          3000,
			MaxRuntimeSeconds:     300,
			TickIntervalSeconds:   60,
			AuthAttempts:          1,
			FlattenAttempts:       2,
			FlattenBackoffSeconds: 1,
			PriceFailureLimit:     2,
		},
		Strategy: config.StrategyConfig{FastPeriod: 9, SlowPeriod: 21},
		Broker:   config.BrokerConfig{Mode: "paper"},
	}
}

type fakeAuth struct{ err error }

func (a fakeAuth) Authenticate(ctx context.Context) (gateway.Session, error) {
	if a.err != nil {
		return gateway.Session{}, a.err
	}
	return gateway.Session{UserID: "test", Broker: "test"}, nil
}

type fakeFeed struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{prices: map[string]float64{}, errs: map[string]error{}}
}

func (f *fakeFeed) set(key string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[key] = price
	delete(f.errs, key)
}

func (f *fakeFeed) fail(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

func (f *fakeFeed) LTP(ctx context.Context, key string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[key]; err != nil {
		return 0, err
	}
	price, ok := f.prices[key]
	if !ok {
		return 0, fmt.Errorf("no price for %s", key)
	}
	return price, nil
}

func (f *fakeFeed) Candles(ctx context.Context, key, unit string, interval int) ([]market.Candle, error) {
	return make([]market.Candle, 30), nil
}

type fakeExec struct {
	mu     sync.Mutex
	feed   *fakeFeed
	orders []gateway.OrderRequest
	fail   bool
	seq    int
}

func (e *fakeExec) setFail(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = fail
}

func (e *fakeExec) orderCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.orders)
}

func (e *fakeExec) order(i int) gateway.OrderRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders[i]
}

func (e *fakeExec) PlaceOrder(ctx context.Context, req gateway.OrderRequest) (position.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders = append(e.orders, req)
	if e.fail {
		return position.Fill{}, errors.New("order rejected")
	}
	price, err := func() (float64, error) {
		e.feed.mu.Lock()
		defer e.feed.mu.Unlock()
		if p, ok := e.feed.prices[req.InstrumentKey]; ok {
			return p, nil
		}
		return 0, fmt.Errorf("no fill price for %s", req.InstrumentKey)
	}()
	if err != nil {
		return position.Fill{}, err
	}
	e.seq++
	return position.Fill{
		ID:            fmt.Sprintf("fill-%d", e.seq),
		ClientOrderID: req.ClientOrderID,
		InstrumentKey: req.InstrumentKey,
		Direction:     req.Direction,
		Quantity:      req.Quantity,
		Price:         price,
		Timestamp:     time.Now(),
	}, nil
}

type fakeStrategy struct {
	mu      sync.Mutex
	signals []strategy.Signal
}

func (s *fakeStrategy) Signal(candles []market.Candle) strategy.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.signals) == 0 {
		return strategy.SignalHold
	}
	sig := s.signals[0]
	if len(s.signals) > 1 {
		s.signals = s.signals[1:]
	}
	return sig
}

type fakeSelector struct{}

func (fakeSelector) SelectEntry(sig strategy.Signal, price float64) (string, position.Direction, error) {
	if sig == strategy.SignalHold {
		return "", "", fmt.Errorf("no entry for HOLD")
	}
	return optionKey, position.DirectionBuy, nil
}

// harness drives the controller with a simulated clock: each sleep advances
// time by the full duration and runs the next scripted step.
type harness struct {
	ctrl *Controller
	feed *fakeFeed
	exec *fakeExec

	mu     sync.Mutex
	now    time.Time
	script []func()
}

func newHarness(t *testing.T, cfg *config.Config, strat strategy.Strategy, auth gateway.Authenticator) *harness {
	t.Helper()
	feed := newFakeFeed()
	exec := &fakeExec{feed: feed}
	ctrl := NewController(ControllerParams{
		Config:   cfg,
		Auth:     auth,
		Feed:     feed,
		Exec:     exec,
		Strategy: strat,
		Selector: fakeSelector{},
	})
	h := &harness{ctrl: ctrl, feed: feed, exec: exec, now: time.Unix(1700000000, 0)}
	ctrl.nowFn = func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.now
	}
	ctrl.sleepFn = func(ctx context.Context, d time.Duration) error {
		h.mu.Lock()
		h.now = h.now.Add(d)
		var step func()
		if len(h.script) > 0 {
			step = h.script[0]
			h.script = h.script[1:]
		}
		h.mu.Unlock()
		if step != nil {
			step()
		}
		return ctx.Err()
	}
	return h
}

func (h *harness) afterTicks(steps ...func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.script = append(h.script, steps...)
}

func TestControllerStopLossRoundTripThenRuntimeEnd(t *testing.T) {
	cfg := testConfig()
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	// After the entry tick the option drops exactly to the stop.
	h.afterTicks(func() { h.feed.set(optionKey, 440) })

	require.NoError(t, h.ctrl.Run(context.Background()))

	assert.Equal(t, StateTerminated, h.ctrl.State())
	assert.Equal(t, CauseRuntimeExceeded, h.ctrl.TerminalCause())

	stats := h.ctrl.Tracker().Stats()
	assert.Equal(t, 1, stats.TradesToday)
	assert.InDelta(t, -1000, stats.RealizedPnLToday, 1e-9)
	assert.True(t, h.ctrl.Tracker().Position().Flat())

	// One entry, one close. The persisting BUY signal after the round trip
	// must not re-enter.
	assert.Equal(t, 2, h.exec.orderCount())
}

func TestControllerSignalReversalFlattensAndReenters(t *testing.T) {
	cfg := testConfig()
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy, strategy.SignalSell}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	require.NoError(t, h.ctrl.Run(context.Background()))

	// BUY opens, the flip to SELL closes the long while it is still open, and
	// the next tick enters the new side. Runtime expiry closes the second
	// trade: entry, reversal close, re-entry, runtime close.
	assert.Equal(t, StateTerminated, h.ctrl.State())
	assert.Equal(t, CauseRuntimeExceeded, h.ctrl.TerminalCause())
	require.Equal(t, 4, h.exec.orderCount())
	assert.Equal(t, position.DirectionBuy, h.exec.order(0).Direction)
	assert.Equal(t, position.DirectionSell, h.exec.order(1).Direction)
	assert.Equal(t, position.DirectionBuy, h.exec.order(2).Direction)

	stats := h.ctrl.Tracker().Stats()
	assert.Equal(t, 2, stats.TradesToday)
	assert.InDelta(t, 0, stats.RealizedPnLToday, 1e-9)
	assert.True(t, h.ctrl.Tracker().Position().Flat())
}

func TestControllerHoldClearsSignalGuard(t *testing.T) {
	cfg := testConfig()
	strat := &fakeStrategy{signals: []strategy.Signal{
		strategy.SignalBuy, strategy.SignalHold, strategy.SignalBuy,
	}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	// The stop takes the first trade out; a HOLD tick then releases the
	// guard, so the returning BUY may enter again.
	h.afterTicks(func() { h.feed.set(optionKey, 440) })

	require.NoError(t, h.ctrl.Run(context.Background()))

	assert.Equal(t, StateTerminated, h.ctrl.State())
	assert.Equal(t, CauseRuntimeExceeded, h.ctrl.TerminalCause())
	assert.Equal(t, 4, h.exec.orderCount())
	assert.Equal(t, 2, h.ctrl.Tracker().Stats().TradesToday)
	assert.InDelta(t, -1000, h.ctrl.Tracker().Stats().RealizedPnLToday, 1e-9)
}

func TestControllerCauseClearsAfterPerTradeClose(t *testing.T) {
	cfg := testConfig()
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	var afterClose Snapshot
	h.afterTicks(
		func() { h.feed.set(optionKey, 440) },
		func() { afterClose = h.ctrl.Snapshot() },
	)

	require.NoError(t, h.ctrl.Run(context.Background()))

	// Back in RUNNING after the stop-loss round trip the status surface must
	// not still show STOP_LOSS.
	assert.Equal(t, "RUNNING", afterClose.State)
	assert.Empty(t, afterClose.Cause)
	assert.Equal(t, CauseRuntimeExceeded, h.ctrl.TerminalCause())
}

func TestControllerTakeProfitThenMaxTradesHalt(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxTradesPerDay = 1
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy, strategy.SignalSell}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	h.afterTicks(func() { h.feed.set(optionKey, 470) })

	require.NoError(t, h.ctrl.Run(context.Background()))

	// The SELL signal after the completed round trip hits the trade cap.
	assert.Equal(t, StateHalted, h.ctrl.State())
	assert.Equal(t, CauseMaxTrades, h.ctrl.TerminalCause())

	stats := h.ctrl.Tracker().Stats()
	assert.Equal(t, 1, stats.TradesToday)
	assert.InDelta(t, 2000, stats.RealizedPnLToday, 1e-9)
	assert.Equal(t, 2, h.exec.orderCount())
}

func TestControllerAuthFailureHalts(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg, &fakeStrategy{}, fakeAuth{err: gateway.ErrUnauthorized})

	err := h.ctrl.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.Equal(t, StateHalted, h.ctrl.State())
	assert.Equal(t, CauseAuthFailure, h.ctrl.TerminalCause())
	assert.Zero(t, h.exec.orderCount())
}

func TestControllerDataFailureProtectiveClose(t *testing.T) {
	cfg := testConfig()
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	// The option stops pricing after entry. Fills still go through at the
	// last known price held by the exec fake.
	h.afterTicks(func() { h.feed.fail(optionKey, errors.New("quote timeout")) })

	require.NoError(t, h.ctrl.Run(context.Background()))

	assert.Equal(t, StateHalted, h.ctrl.State())
	assert.Equal(t, CauseDataFailure, h.ctrl.TerminalCause())
	assert.True(t, h.ctrl.Tracker().Position().Flat())
	assert.Equal(t, 1, h.ctrl.Tracker().Stats().TradesToday)
}

func TestControllerFlattenFailureAlwaysHalts(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.MaxRuntimeSeconds = 60
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	h.afterTicks(func() { h.exec.setFail(true) })

	require.NoError(t, h.ctrl.Run(context.Background()))

	// Runtime ran out cleanly, but the position could not be closed: that is
	// never TERMINATED.
	assert.Equal(t, StateHalted, h.ctrl.State())
	assert.Equal(t, CauseRuntimeExceeded, h.ctrl.TerminalCause())
	assert.False(t, h.ctrl.Tracker().Position().Flat())
	// One entry plus both close attempts.
	assert.Equal(t, 3, h.exec.orderCount())
}

func TestControllerOperatorStopFlattensAndTerminates(t *testing.T) {
	cfg := testConfig()
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	ctx, cancel := context.WithCancel(context.Background())
	h.afterTicks(func() { cancel() })

	require.NoError(t, h.ctrl.Run(ctx))

	assert.Equal(t, StateTerminated, h.ctrl.State())
	assert.Equal(t, CauseOperatorStop, h.ctrl.TerminalCause())
	assert.True(t, h.ctrl.Tracker().Position().Flat())
	assert.Equal(t, 2, h.exec.orderCount())
}

func TestControllerRefusesInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.StopLoss = 0
	h := newHarness(t, cfg, &fakeStrategy{}, fakeAuth{})

	err := h.ctrl.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateInitializing, h.ctrl.State())
	assert.Zero(t, h.exec.orderCount())
}

func TestControllerMaxDailyLossClosesAndHalts(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.StopLoss = 5000 // keep the per-trade stop out of the way
	cfg.Risk.MaxDailyLoss = 900
	strat := &fakeStrategy{signals: []strategy.Signal{strategy.SignalBuy}}
	h := newHarness(t, cfg, strat, fakeAuth{})
	h.feed.set(underlyingKey, 45000)
	h.feed.set(optionKey, 450)

	// Projected loss (0 realized - 1000 unrealized) breaches the ceiling.
	h.afterTicks(func() { h.feed.set(optionKey, 440) })

	require.NoError(t, h.ctrl.Run(context.Background()))

	assert.Equal(t, StateHalted, h.ctrl.State())
	assert.Equal(t, CauseMaxDailyLoss, h.ctrl.TerminalCause())
	assert.True(t, h.ctrl.Tracker().Position().Flat())
	assert.InDelta(t, -1000, h.ctrl.Tracker().Stats().RealizedPnLToday, 1e-9)
}

func TestControllerSnapshot(t *testing.T) {
	cfg := testConfig()
	h := newHarness(t, cfg, &fakeStrategy{}, fakeAuth{})

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "INITIALIZING", snap.State)
	assert.True(t, snap.Position.Flat())
	assert.Zero(t, snap.Ticks)
}
