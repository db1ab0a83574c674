package upstox

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/devvrat-hans/algo-trading-bot/internal/market"
)

// LTP fetches the last traded price. The quote payload is keyed by the
// exchange's own symbol spelling, so the first entry under data is taken.
func (c *Client) LTP(ctx context.Context, instrumentKey string) (float64, error) {
	query := url.Values{"instrument_key": {instrumentKey}}
	res, err := c.get(ctx, "/v2/market-quote/ltp", query)
	if err != nil {
		return 0, err
	}

	var price float64
	var found bool
	res.Get("data").ForEach(func(_, value gjson.Result) bool {
		price = value.Get("last_price").Float()
		found = true
		return false
	})
	if !found || price <= 0 {
		return 0, fmt.Errorf("no quote for %s", instrumentKey)
	}
	return price, nil
}

// Candles fetches intraday candles and returns them oldest first.
func (c *Client) Candles(ctx context.Context, instrumentKey, unit string, interval int) ([]market.Candle, error) {
	path := fmt.Sprintf("/v2/historical-candle/intraday/%s/%s/%s",
		url.PathEscape(instrumentKey), url.PathEscape(unit), strconv.Itoa(interval))
	res, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	rows := res.Get("data.candles")
	if !rows.Exists() {
		return nil, fmt.Errorf("no candles for %s", instrumentKey)
	}

	var out []market.Candle
	var parseErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		cols := row.Array()
		if len(cols) < 6 {
			parseErr = fmt.Errorf("candle row has %d columns, want >= 6", len(cols))
			return false
		}
		ts, err := time.Parse(time.RFC3339, cols[0].String())
		if err != nil {
			parseErr = fmt.Errorf("parsing candle timestamp failed: %w", err)
			return false
		}
		candle := market.Candle{
			Timestamp: ts,
			Open:      cols[1].Float(),
			High:      cols[2].Float(),
			Low:       cols[3].Float(),
			Close:     cols[4].Float(),
			Volume:    cols[5].Float(),
		}
		if len(cols) > 6 {
			candle.OpenInterest = cols[6].Float()
		}
		out = append(out, candle)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	// Broker returns newest first.
	if !market.SortAscending(out) {
		market.Reverse(out)
	}
	return out, nil
}
