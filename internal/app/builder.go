package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/devvrat-hans/algo-trading-bot/internal/config"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway/notifier"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway/paper"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway/upstox"
	"github.com/devvrat-hans/algo-trading-bot/internal/instrument"
	"github.com/devvrat-hans/algo-trading-bot/internal/logger"
	"github.com/devvrat-hans/algo-trading-bot/internal/session"
	"github.com/devvrat-hans/algo-trading-bot/internal/store/riskevents"
	"github.com/devvrat-hans/algo-trading-bot/internal/store/sqlite"
	"github.com/devvrat-hans/algo-trading-bot/internal/strategy"
	"github.com/devvrat-hans/algo-trading-bot/internal/transport/http/status"
)

// brokerStack groups the three broker-facing collaborators, which a single
// gateway usually implements together.
type brokerStack struct {
	auth   gateway.Authenticator
	feed   gateway.PriceFeed
	exec   gateway.ExecutionGateway
	tokens *upstox.TokenSource
}

type AppBuilder struct {
	cfg *config.Config

	brokerStackFn func(config.BrokerConfig) (*brokerStack, error)
	selectorFn    func(config.InstrumentConfig) (session.EntrySelector, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		brokerStackFn: buildBrokerStack,
		selectorFn:    buildSelector,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithBrokerStack replaces the broker collaborators, for harnesses that
// script the feed and execution.
func WithBrokerStack(auth gateway.Authenticator, feed gateway.PriceFeed, exec gateway.ExecutionGateway) AppBuilderOption {
	return func(b *AppBuilder) {
		b.brokerStackFn = func(config.BrokerConfig) (*brokerStack, error) {
			return &brokerStack{auth: auth, feed: feed, exec: exec}, nil
		}
	}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	broker, err := b.brokerStackFn(cfg.Broker)
	if err != nil {
		return nil, err
	}

	selector, err := b.selectorFn(cfg.Instrument)
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, tokens: broker.tokens}

	sinks := []notifier.Notifier{notifier.LogSink{}}
	if cfg.Notify.Telegram.Enabled {
		sinks = append(sinks, notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID))
	}

	var trades session.TradeSink
	var tradeLister status.TradeLister
	if cfg.Store.Enabled {
		tradeStore, err := sqlite.NewTradeStore(cfg.Store.TradesPath)
		if err != nil {
			return nil, fmt.Errorf("opening trade store failed: %w", err)
		}
		app.closers = append(app.closers, tradeStore.Close)
		trades = tradeStore
		tradeLister = tradeStore

		eventStore, err := riskevents.New(cfg.Store.EventsPath)
		if err != nil {
			return nil, fmt.Errorf("opening risk event store failed: %w", err)
		}
		app.closers = append(app.closers, eventStore.Close)
		sinks = append(sinks, eventStore)
	}

	controller := session.NewController(session.ControllerParams{
		Config:   cfg,
		Auth:     broker.auth,
		Feed:     broker.feed,
		Exec:     broker.exec,
		Strategy: strategy.NewEMACrossover(cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod),
		Selector: selector,
		Events:   notifier.NewFanout(sinks...),
		Trades:   trades,
	})
	app.controller = controller

	if strings.TrimSpace(cfg.App.HTTPAddr) != "" {
		srv, err := status.NewServer(status.ServerConfig{
			Addr:    cfg.App.HTTPAddr,
			Session: controller,
			Trades:  tradeLister,
		})
		if err != nil {
			return nil, err
		}
		app.statusHTTP = srv
	}

	logger.Infof("session built mode=%s instrument=%s http=%s store=%v",
		cfg.Broker.Mode, cfg.Instrument.UnderlyingKey, cfg.App.HTTPAddr, cfg.Store.Enabled)
	return app, nil
}

func buildBrokerStack(cfg config.BrokerConfig) (*brokerStack, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "live":
		tokens, err := upstox.NewTokenSource(cfg.TokenPath)
		if err != nil {
			return nil, fmt.Errorf("loading access token failed: %w", err)
		}
		client := upstox.NewClient(cfg, tokens)
		return &brokerStack{auth: client, feed: client, exec: client, tokens: tokens}, nil
	default:
		pg := paper.New(nil, 0)
		return &brokerStack{auth: pg, feed: pg, exec: pg}, nil
	}
}

// buildSelector picks how signals turn into orders: ATM options when an
// instrument master is configured, the underlying itself otherwise.
func buildSelector(cfg config.InstrumentConfig) (session.EntrySelector, error) {
	if strings.TrimSpace(cfg.MasterPath) == "" {
		return instrument.UnderlyingSelector{InstrumentKey: cfg.UnderlyingKey}, nil
	}
	master, err := instrument.LoadMasterFile(cfg.MasterPath)
	if err != nil {
		return nil, err
	}
	return instrument.ATMOptionSelector{Master: master, StrikeStep: cfg.StrikeStep}, nil
}
