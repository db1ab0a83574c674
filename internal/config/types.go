package config

import "time"

// Config is the validated configuration handed to the session controller.
type Config struct {
	App        AppConfig        `toml:"app"`
	Instrument InstrumentConfig `toml:"instrument"`
	Risk       RiskConfig       `toml:"risk"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Broker     BrokerConfig     `toml:"broker"`
	Notify     NotifyConfig     `toml:"notify"`
	Store      StoreConfig      `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// InstrumentConfig identifies the underlying index and how its option legs
// are sized and selected.
type InstrumentConfig struct {
	UnderlyingKey string  `toml:"underlying_key"`
	Quantity      int64   `toml:"quantity"`
	Unit          string  `toml:"unit"`
	Interval      int     `toml:"interval"`
	StrikeStep    float64 `toml:"strike_step"`
	MasterPath    string  `toml:"master_path"`
}

// RiskConfig carries the hard session limits. The core limits (stop loss,
// take profit, trade count, daily loss, runtime, tick interval) have no
// defaults: a missing or non-positive value refuses session startup.
type RiskConfig struct {
	StopLoss              float64 `toml:"stop_loss"`
	TakeProfit            float64 `toml:"take_profit"`
	MaxTradesPerDay       int     `toml:"max_trades_per_day"`
	MaxDailyLoss          float64 `toml:"max_daily_loss"`
	MaxRuntimeSeconds     int     `toml:"max_runtime_seconds"`
	TickIntervalSeconds   int     `toml:"tick_interval_seconds"`
	AuthAttempts          int     `toml:"auth_attempts"`
	FlattenAttempts       int     `toml:"flatten_attempts"`
	FlattenBackoffSeconds int     `toml:"flatten_backoff_seconds"`
	PriceFailureLimit     int     `toml:"price_failure_limit"`
}

func (r RiskConfig) MaxRuntime() time.Duration {
	return time.Duration(r.MaxRuntimeSeconds) * time.Second
}

func (r RiskConfig) TickInterval() time.Duration {
	return time.Duration(r.TickIntervalSeconds) * time.Second
}

func (r RiskConfig) FlattenBackoff() time.Duration {
	return time.Duration(r.FlattenBackoffSeconds) * time.Second
}

// StrategyConfig tunes the signal generator. Periods in candles.
type StrategyConfig struct {
	FastPeriod int `toml:"fast_period"`
	SlowPeriod int `toml:"slow_period"`
}

type BrokerConfig struct {
	Mode           string `toml:"mode"`
	BaseURL        string `toml:"base_url"`
	TokenPath      string `toml:"token_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (b BrokerConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

type StoreConfig struct {
	Enabled    bool   `toml:"enabled"`
	TradesPath string `toml:"trades_path"`
	EventsPath string `toml:"events_path"`
}
