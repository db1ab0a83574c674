package upstox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devvrat-hans/algo-trading-bot/internal/gateway"
	"github.com/devvrat-hans/algo-trading-bot/internal/logger"
)

// TokenSource serves the broker access token from a file that an out-of-band
// login flow refreshes. The file is watched so a token rotated mid-session is
// picked up without a restart.
type TokenSource struct {
	path string

	mu    sync.RWMutex
	token string
}

func NewTokenSource(path string) (*TokenSource, error) {
	ts := &TokenSource{path: path}
	if err := ts.reload(); err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *TokenSource) Token() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.token
}

func (ts *TokenSource) reload() error {
	raw, err := os.ReadFile(ts.path)
	if err != nil {
		return fmt.Errorf("reading access token failed: %w", err)
	}
	tok := strings.TrimSpace(string(raw))
	if tok == "" {
		return fmt.Errorf("access token file %s is empty", ts.path)
	}
	ts.mu.Lock()
	ts.token = tok
	ts.mu.Unlock()
	return nil
}

// Watch reloads the token whenever the file is rewritten. Blocks until ctx is
// done.
func (ts *TokenSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors and login scripts typically replace the
	// file rather than write it in place.
	if err := watcher.Add(filepath.Dir(ts.path)); err != nil {
		return err
	}

	target := filepath.Clean(ts.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			if err := ts.reload(); err != nil {
				logger.Errorf("token reload failed: %v", err)
				continue
			}
			logger.Infof("access token reloaded from %s", ts.path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("token watcher error: %v", err)
		}
	}
}

// Authenticate probes the profile endpoint to confirm the token is usable.
func (c *Client) Authenticate(ctx context.Context) (gateway.Session, error) {
	res, err := c.get(ctx, "/v2/user/profile", nil)
	if err != nil {
		return gateway.Session{}, err
	}
	data := res.Get("data")
	if !data.Exists() {
		return gateway.Session{}, fmt.Errorf("profile response missing data: %w", gateway.ErrUnauthorized)
	}
	return gateway.Session{
		UserID:   data.Get("user_id").String(),
		UserName: data.Get("user_name").String(),
		Broker:   data.Get("broker").String(),
		IssuedAt: time.Now(),
	}, nil
}
