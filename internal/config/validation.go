package config

import (
	"fmt"
	"strings"
)

// Validate enforces the hard startup contract: every risk limit explicitly
// positive, no silent fallbacks. Load runs it; the controller runs it again
// at INITIALIZING so a hand-built config cannot bypass it.
func Validate(c *Config) error {
	return validate(c)
}

func validate(c *Config) error {
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Instrument.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Broker.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.StopLoss <= 0 {
		return fmt.Errorf("risk.stop_loss must be > 0")
	}
	if r.TakeProfit <= 0 {
		return fmt.Errorf("risk.take_profit must be > 0")
	}
	if r.MaxTradesPerDay < 1 {
		return fmt.Errorf("risk.max_trades_per_day must be >= 1")
	}
	if r.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be > 0")
	}
	if r.MaxRuntimeSeconds <= 0 {
		return fmt.Errorf("risk.max_runtime_seconds must be > 0")
	}
	if r.TickIntervalSeconds <= 0 {
		return fmt.Errorf("risk.tick_interval_seconds must be > 0")
	}
	return nil
}

func (i *InstrumentConfig) validate() error {
	if strings.TrimSpace(i.UnderlyingKey) == "" {
		return fmt.Errorf("instrument.underlying_key cannot be empty")
	}
	if i.Quantity <= 0 {
		return fmt.Errorf("instrument.quantity must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(i.Unit)) {
	case "minutes", "hours", "days":
	default:
		return fmt.Errorf("instrument.unit must be minutes, hours or days")
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 {
		return fmt.Errorf("strategy periods must be > 0")
	}
	if s.SlowPeriod <= s.FastPeriod {
		return fmt.Errorf("strategy.slow_period must be > strategy.fast_period")
	}
	return nil
}

func (b *BrokerConfig) validate() error {
	mode := strings.ToLower(strings.TrimSpace(b.Mode))
	switch mode {
	case "live":
		if strings.TrimSpace(b.TokenPath) == "" {
			return fmt.Errorf("broker.token_path required when broker.mode=live")
		}
		if strings.TrimSpace(b.BaseURL) == "" {
			return fmt.Errorf("broker.base_url cannot be empty")
		}
	case "paper":
	default:
		return fmt.Errorf("broker.mode must be live or paper, got %q", b.Mode)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if strings.TrimSpace(n.Telegram.BotToken) == "" {
			return fmt.Errorf("notify.telegram.bot_token required when telegram enabled")
		}
		if strings.TrimSpace(n.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram.chat_id required when telegram enabled")
		}
	}
	return nil
}
