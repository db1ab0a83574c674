// Package upstox implements the broker collaborators against an Upstox-style
// REST API: bearer-token sessions, LTP/candle quotes and market orders.
package upstox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/devvrat-hans/algo-trading-bot/internal/config"
	"github.com/devvrat-hans/algo-trading-bot/internal/gateway"
	"github.com/devvrat-hans/algo-trading-bot/internal/pkg/circuit"
)

type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenSource
	breaker *circuit.CircuitBreaker
}

func NewClient(cfg config.BrokerConfig, tokens *TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    &http.Client{Timeout: cfg.Timeout()},
		tokens:  tokens,
		breaker: circuit.NewCircuitBreaker("upstox", 5, 2*time.Minute),
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (gjson.Result, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return gjson.Result{}, err
	}
	return c.do(ctx, http.MethodPost, path, nil, raw)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (gjson.Result, error) {
	if !c.breaker.Allow() {
		return gjson.Result{}, fmt.Errorf("upstox circuit open, refusing %s %s", method, path)
	}
	res, err := c.doOnce(ctx, method, path, query, body)
	if err != nil {
		c.breaker.RecordFailure()
		return gjson.Result{}, err
	}
	c.breaker.RecordSuccess()
	return res, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte) (gjson.Result, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading %s response failed: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return gjson.Result{}, fmt.Errorf("%s %s: %w (status=%d)", method, path, gateway.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg := gjson.GetBytes(payload, "errors.0.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(payload))
		}
		return gjson.Result{}, fmt.Errorf("%s %s: status=%d %s", method, path, resp.StatusCode, msg)
	}

	parsed := gjson.ParseBytes(payload)
	if status := parsed.Get("status").String(); status != "" && status != "success" {
		return gjson.Result{}, fmt.Errorf("%s %s: broker status=%s", method, path, status)
	}
	return parsed, nil
}
