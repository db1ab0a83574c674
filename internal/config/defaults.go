package config

import "strings"

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppLogPath       = "data/logs/session.log"
	defaultAppHTTPAddr      = ":9881"
	defaultInstrumentUnit   = "minutes"
	defaultInstrumentIvl    = 5
	defaultStrikeStep       = 50
	defaultBrokerMode       = "paper"
	defaultBrokerBaseURL    = "https://api.upstox.com"
	defaultBrokerTimeout    = 10
	defaultAuthAttempts     = 3
	defaultFlattenAttempts  = 5
	defaultFlattenBackoff   = 2
	defaultPriceFailLimit   = 3
	defaultStrategyFast     = 9
	defaultStrategySlow     = 21
	defaultStoreTradesPath  = "data/db/trades.db"
	defaultStoreEventsPath  = "data/db/risk_events.db"
)

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

// applyDefaults fills operational knobs only. Risk limits stay untouched so
// that validation can reject a config that never set them.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Instrument.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Broker.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (i *InstrumentConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("instrument.unit", &i.Unit, defaultInstrumentUnit),
		fieldDefault{
			key:   "instrument.interval",
			need:  func() bool { return i.Interval <= 0 },
			apply: func() { i.Interval = defaultInstrumentIvl },
		},
		fieldDefault{
			key:   "instrument.strike_step",
			need:  func() bool { return i.StrikeStep <= 0 },
			apply: func() { i.StrikeStep = defaultStrikeStep },
		},
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "risk.auth_attempts",
			need:  func() bool { return r.AuthAttempts <= 0 },
			apply: func() { r.AuthAttempts = defaultAuthAttempts },
		},
		fieldDefault{
			key:   "risk.flatten_attempts",
			need:  func() bool { return r.FlattenAttempts <= 0 },
			apply: func() { r.FlattenAttempts = defaultFlattenAttempts },
		},
		fieldDefault{
			key:   "risk.flatten_backoff_seconds",
			need:  func() bool { return r.FlattenBackoffSeconds <= 0 },
			apply: func() { r.FlattenBackoffSeconds = defaultFlattenBackoff },
		},
		fieldDefault{
			key:   "risk.price_failure_limit",
			need:  func() bool { return r.PriceFailureLimit <= 0 },
			apply: func() { r.PriceFailureLimit = defaultPriceFailLimit },
		},
	)
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "strategy.fast_period",
			need:  func() bool { return s.FastPeriod <= 0 },
			apply: func() { s.FastPeriod = defaultStrategyFast },
		},
		fieldDefault{
			key:   "strategy.slow_period",
			need:  func() bool { return s.SlowPeriod <= 0 },
			apply: func() { s.SlowPeriod = defaultStrategySlow },
		},
	)
}

func (b *BrokerConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("broker.mode", &b.Mode, defaultBrokerMode),
		stringFieldDefault("broker.base_url", &b.BaseURL, defaultBrokerBaseURL),
		fieldDefault{
			key:   "broker.timeout_seconds",
			need:  func() bool { return b.TimeoutSeconds <= 0 },
			apply: func() { b.TimeoutSeconds = defaultBrokerTimeout },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.trades_path", &s.TradesPath, defaultStoreTradesPath),
		stringFieldDefault("store.events_path", &s.EventsPath, defaultStoreEventsPath),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
