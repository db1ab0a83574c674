package market

import "time"

type Candle struct {
	Timestamp    time.Time `json:"timestamp"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	OpenInterest float64   `json:"open_interest"`
}

// Closes extracts the close series in chronological order.
func Closes(candles []Candle) []float64 {
	if len(candles) == 0 {
		return nil
	}
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SortAscending returns true when candles are ordered oldest first.
func SortAscending(candles []Candle) bool {
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp.Before(candles[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// Reverse flips candle order in place. Broker intraday endpoints return
// newest-first rows, indicators want oldest-first.
func Reverse(candles []Candle) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}
