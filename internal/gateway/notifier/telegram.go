package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/devvrat-hans/algo-trading-bot/internal/logger"
)

// Telegram pushes the session-level events (start, halts, fills) to a chat.
// Tick summaries are skipped to keep the channel readable.
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{BotToken: botToken, ChatID: chatID, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (t *Telegram) Publish(evt Event) {
	text := renderEvent(evt)
	if text == "" {
		return
	}
	if err := t.sendText(text); err != nil {
		logger.Warnf("telegram publish failed: %v", err)
	}
}

func renderEvent(evt Event) string {
	switch evt.Kind {
	case EventSessionStarted:
		return fmt.Sprintf("session started %s", evt.InstrumentKey)
	case EventStateChanged:
		if evt.Cause != "" {
			return fmt.Sprintf("state %s -> %s (%s)", evt.PrevState, evt.State, evt.Cause)
		}
		return fmt.Sprintf("state %s -> %s", evt.PrevState, evt.State)
	case EventFillApplied:
		if evt.Trade == nil {
			return ""
		}
		return fmt.Sprintf("%s %d @ %.2f pnl %.2f",
			evt.Trade.Direction, evt.Trade.Quantity, evt.Trade.Price, evt.Trade.RealizedPnLDelta)
	case EventSessionEnded:
		if evt.Stats == nil {
			return fmt.Sprintf("session ended (%s)", evt.Cause)
		}
		return fmt.Sprintf("session ended (%s): trades=%d pnl=%.2f",
			evt.Cause, evt.Stats.TradesToday, evt.Stats.RealizedPnLToday)
	default:
		return ""
	}
}

// sendText posts with up to 3 retries.
func (t *Telegram) sendText(text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)

	payload := map[string]any{
		"chat_id": t.ChatID,
		"text":    text,
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}
