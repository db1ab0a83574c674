// Package app wires configuration into a runnable trading session: broker
// collaborators, event sinks, stores, the controller and the status server.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/devvrat-hans/algo-trading-bot/internal/config"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway/upstox"
	"github.com/devvrat-hans/algo-trading-bot/internal/logger"
	"github.com/devvrat-hans/algo-trading-bot/internal/session"
	"github.com/devvrat-hans/algo-trading-bot/internal/transport/http/status"
)

type App struct {
	cfg        *config.Config
	controller *session.Controller
	statusHTTP *status.Server
	tokens     *upstox.TokenSource
	closers    []func() error
}

// NewApp builds the application from a validated config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run drives the session to its terminal state. The status server and token
// watcher run alongside and stop when the session ends.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	// Child context so the supporting goroutines stop once the session
	// reaches a terminal state, not only on operator cancel.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, runCtx := errgroup.WithContext(runCtx)

	if a.statusHTTP != nil {
		group.Go(func() error {
			if err := a.statusHTTP.Start(runCtx); err != nil {
				return fmt.Errorf("status http server error: %w", err)
			}
			return nil
		})
	}

	if a.tokens != nil {
		group.Go(func() error {
			err := a.tokens.Watch(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("token watcher error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		defer cancel()
		return a.controller.Run(runCtx)
	})

	return group.Wait()
}

// Controller exposes the session controller for harnesses.
func (a *App) Controller() *session.Controller {
	if a == nil {
		return nil
	}
	return a.controller
}

func (a *App) close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			logger.Warnf("close failed: %v", err)
		}
	}
}
