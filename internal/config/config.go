package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"TickerFeed/internal/collector"
	"TickerFeed/internal/model"
	"TickerFeed/internal/scheduler"
)

// Limits on the instrument list.
const (
	MaxInstruments   = 15
	MaxSymbolLen     = 11
	MaxProviderIDLen = 31
)

// InstrumentConfig is one entry of the instruments list.
type InstrumentConfig struct {
	Symbol         string  `yaml:"symbol"`
	APIID          string  `yaml:"api_id"`
	Type           string  `yaml:"type"`
	TimeMultiplier float64 `yaml:"time_multiplier"`
	Enabled        *bool   `yaml:"enabled"`
}

// Config holds all application configuration.
type Config struct {
	Instruments []InstrumentConfig `yaml:"instruments"`
	Providers   struct {
		TwelveData struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"twelvedata"`
		CoinGecko struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"coingecko"`
		CoinMarketCap struct {
			APIKey  string `yaml:"api_key"`
			BaseURL string `yaml:"base_url"`
		} `yaml:"coinmarketcap"`
	} `yaml:"providers"`
	Schedule struct {
		Tick           time.Duration `yaml:"tick"`
		BatchInterval  time.Duration `yaml:"batch_interval"`
		SingleInterval time.Duration `yaml:"single_interval"`
		SeriesInterval time.Duration `yaml:"series_interval"`
		SeriesWarmup   time.Duration `yaml:"series_warmup"`
		ConfigWatch    time.Duration `yaml:"config_watch"`
	} `yaml:"schedule"`
	Display struct {
		BaseTime time.Duration `yaml:"base_time"`
	} `yaml:"display"`
	CacheDir string `yaml:"cache_dir"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// DefaultInstruments is the instrument list used when the file names none.
func DefaultInstruments() []InstrumentConfig {
	defaults := []struct{ sym, id, typ string }{
		{"BTC", "bitcoin", "crypto"},
		{"ETH", "ethereum", "crypto"},
		{"SOL", "solana", "crypto"},
		{"LTC", "litecoin", "crypto"},
		{"DOGE", "dogecoin", "crypto"},
		{"XMR", "monero", "crypto"},
		{"MSTR", "MSTR", "stock"},
		{"NDX", "QQQ", "stock"},
		{"SPX", "SPY", "stock"},
		{"RUT", "IWM", "stock"},
		{"EUR", "EUR/USD", "forex"},
	}
	out := make([]InstrumentConfig, len(defaults))
	for i, d := range defaults {
		out[i] = InstrumentConfig{Symbol: d.sym, APIID: d.id, Type: d.typ, TimeMultiplier: 1}
	}
	return out
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		cfg.Providers.TwelveData.APIKey = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Providers.CoinGecko.APIKey = v
	}
	if v := os.Getenv("CMC_API_KEY"); v != "" {
		cfg.Providers.CoinMarketCap.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	// Defaults
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = DefaultInstruments()
	}
	for i := range cfg.Instruments {
		if cfg.Instruments[i].TimeMultiplier == 0 {
			cfg.Instruments[i].TimeMultiplier = 1
		}
	}
	periods := scheduler.DefaultConfig()
	if cfg.Schedule.Tick == 0 {
		cfg.Schedule.Tick = periods.Tick
	}
	if cfg.Schedule.BatchInterval == 0 {
		cfg.Schedule.BatchInterval = periods.BatchInterval
	}
	if cfg.Schedule.SingleInterval == 0 {
		cfg.Schedule.SingleInterval = periods.SingleInterval
	}
	if cfg.Schedule.SeriesInterval == 0 {
		cfg.Schedule.SeriesInterval = periods.SeriesInterval
	}
	if cfg.Schedule.SeriesWarmup == 0 {
		cfg.Schedule.SeriesWarmup = periods.SeriesWarmup
	}
	if cfg.Schedule.ConfigWatch == 0 {
		cfg.Schedule.ConfigWatch = 10 * time.Second
	}
	if cfg.Display.BaseTime == 0 {
		cfg.Display.BaseTime = 8 * time.Second
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "data/cache"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/tickerfeed.db"
	}

	return cfg, nil
}

// Validate checks the instrument list and periods.
func (c *Config) Validate() error {
	if len(c.Instruments) > MaxInstruments {
		return fmt.Errorf("at most %d instruments are supported, got %d", MaxInstruments, len(c.Instruments))
	}
	var errs []error
	for i, inst := range c.Instruments {
		switch {
		case inst.Symbol == "":
			errs = append(errs, fmt.Errorf("instruments[%d].symbol is required", i))
		case len(inst.Symbol) > MaxSymbolLen:
			errs = append(errs, fmt.Errorf("instruments[%d].symbol %q exceeds %d characters", i, inst.Symbol, MaxSymbolLen))
		}
		switch {
		case inst.APIID == "":
			errs = append(errs, fmt.Errorf("instruments[%d].api_id is required", i))
		case len(inst.APIID) > MaxProviderIDLen:
			errs = append(errs, fmt.Errorf("instruments[%d].api_id exceeds %d characters", i, MaxProviderIDLen))
		}
		if _, err := model.ParseClass(inst.Type); err != nil {
			errs = append(errs, fmt.Errorf("instruments[%d]: %w", i, err))
		}
		if inst.TimeMultiplier <= 0 {
			errs = append(errs, fmt.Errorf("instruments[%d].time_multiplier must be positive", i))
		}
	}
	if c.Schedule.Tick <= 0 || c.Schedule.BatchInterval <= 0 || c.Schedule.SingleInterval <= 0 ||
		c.Schedule.SeriesInterval <= 0 || c.Schedule.SeriesWarmup <= 0 {
		errs = append(errs, errors.New("schedule periods must be positive"))
	}
	return errors.Join(errs...)
}

// InstrumentList converts the validated entries to model instruments.
// Entries are enabled unless the file says otherwise.
func (c *Config) InstrumentList() []model.Instrument {
	out := make([]model.Instrument, 0, len(c.Instruments))
	for _, ic := range c.Instruments {
		class, err := model.ParseClass(ic.Type)
		if err != nil {
			continue
		}
		enabled := ic.Enabled == nil || *ic.Enabled
		out = append(out, model.Instrument{
			Symbol:         ic.Symbol,
			ProviderID:     ic.APIID,
			Class:          class,
			Enabled:        enabled,
			TimeMultiplier: ic.TimeMultiplier,
		})
	}
	return out
}

// ProviderSettings returns the credentials and endpoints for the fetchers.
func (c *Config) ProviderSettings() collector.Settings {
	return collector.Settings{
		TwelveDataKey:    c.Providers.TwelveData.APIKey,
		CoinGeckoKey:     c.Providers.CoinGecko.APIKey,
		CoinMarketCapKey: c.Providers.CoinMarketCap.APIKey,
		TwelveDataURL:    c.Providers.TwelveData.BaseURL,
		CoinGeckoURL:     c.Providers.CoinGecko.BaseURL,
		CoinMarketCapURL: c.Providers.CoinMarketCap.BaseURL,
		Proxy:            c.Proxy,
	}
}

// Periods returns the scheduler periods.
func (c *Config) Periods() scheduler.Config {
	return scheduler.Config{
		Tick:           c.Schedule.Tick,
		BatchInterval:  c.Schedule.BatchInterval,
		SingleInterval: c.Schedule.SingleInterval,
		SeriesInterval: c.Schedule.SeriesInterval,
		SeriesWarmup:   c.Schedule.SeriesWarmup,
	}
}
