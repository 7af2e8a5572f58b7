package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App struct {
		LogLevel       string `toml:"log_level"`
		DryRun         bool   `toml:"dry_run"`
		ReportEveryMin int    `toml:"report_every_min"`
		HistoryHours   int    `toml:"history_hours"`
		ChartDir       string `toml:"chart_dir"`
	} `toml:"app"`

	Ratio struct {
		AssetA    string  `toml:"asset_a"`
		AssetB    string  `toml:"asset_b"`
		Quote     string  `toml:"quote"`
		Threshold float64 `toml:"threshold"`
		UnitEUR   float64 `toml:"unit_eur"`
		StateFile string  `toml:"state_file"`
	} `toml:"ratio"`

	Coinbase struct {
		WsURL        string `toml:"ws_url"`
		RestURL      string `toml:"rest_url"`
		KeepaliveSec int    `toml:"keepalive_sec"`
		DialRetries  int    `toml:"dial_retries"`
	} `toml:"coinbase"`

	Telegram struct {
		Enabled bool   `toml:"enabled"`
		Token   string `toml:"token"`
		ChatID  string `toml:"chat_id"`
		APIURL  string `toml:"api_url"`
	} `toml:"telegram"`

	SQLite struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"sqlite"`

	Redis struct {
		Enabled       bool   `toml:"enabled"`
		Addr          string `toml:"addr"`
		Password      string `toml:"password"`
		DB            int    `toml:"db"`
		Prefix        string `toml:"prefix"`
		TTLSeconds    int    `toml:"ttl_seconds"`
		SignalStream  string `toml:"signal_stream"`
		SignalChannel string `toml:"signal_channel"`
	} `toml:"redis"`

	Postgres struct {
		Enabled bool   `toml:"enabled"`
		DSN     string `toml:"dsn"`
	} `toml:"postgres"`

	Metrics struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"metrics"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault 配置文件不存在时返回默认配置，found 为 false
func LoadOrDefault(path string) (cfg *Config, found bool, err error) {
	cfg, err = Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Default 没有配置文件时使用的配置（仅依赖默认值）
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.ReportEveryMin <= 0 {
		cfg.App.ReportEveryMin = 5
	}
	if cfg.App.HistoryHours <= 0 {
		cfg.App.HistoryHours = 6
	}
	if cfg.App.ChartDir == "" {
		cfg.App.ChartDir = "data/charts"
	}

	if cfg.Ratio.AssetA == "" {
		cfg.Ratio.AssetA = "BTC"
	}
	if cfg.Ratio.AssetB == "" {
		cfg.Ratio.AssetB = "ETH"
	}
	if cfg.Ratio.Quote == "" {
		cfg.Ratio.Quote = "EUR"
	}
	if cfg.Ratio.Threshold <= 0 {
		cfg.Ratio.Threshold = 0.01
	}
	if cfg.Ratio.UnitEUR <= 0 {
		cfg.Ratio.UnitEUR = 100
	}
	if cfg.Ratio.StateFile == "" {
		cfg.Ratio.StateFile = "data/ratio_state.json"
	}

	if cfg.Coinbase.WsURL == "" {
		cfg.Coinbase.WsURL = "wss://ws-feed.exchange.coinbase.com"
	}
	if cfg.Coinbase.RestURL == "" {
		cfg.Coinbase.RestURL = "https://api.exchange.coinbase.com"
	}
	if cfg.Coinbase.KeepaliveSec <= 0 {
		cfg.Coinbase.KeepaliveSec = 30
	}
	if cfg.Coinbase.DialRetries < 0 {
		cfg.Coinbase.DialRetries = 0
	}

	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = "https://api.telegram.org"
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = "data/ratiobot.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "ratiobot"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9100"
	}
}

// Validate 命令行覆盖配置后再次校验
func Validate(cfg *Config) error { return validate(cfg) }

func validate(cfg *Config) error {
	cfg.Ratio.AssetA = normalizeAsset(cfg.Ratio.AssetA)
	cfg.Ratio.AssetB = normalizeAsset(cfg.Ratio.AssetB)
	cfg.Ratio.Quote = normalizeAsset(cfg.Ratio.Quote)

	if cfg.Ratio.AssetA == cfg.Ratio.AssetB {
		return fmt.Errorf("ratio.asset_a and ratio.asset_b must differ (both %s)", cfg.Ratio.AssetA)
	}
	if cfg.Ratio.Quote == cfg.Ratio.AssetA || cfg.Ratio.Quote == cfg.Ratio.AssetB {
		return errors.New("ratio.quote must differ from the tracked assets")
	}
	if cfg.Ratio.Threshold <= 0 || cfg.Ratio.Threshold >= 1 {
		return fmt.Errorf("ratio.threshold must be in (0,1), got %v", cfg.Ratio.Threshold)
	}

	switch strings.ToLower(cfg.App.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level %q not supported", cfg.App.LogLevel)
	}

	if cfg.Telegram.Enabled && !cfg.App.DryRun {
		if strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "" {
			return errors.New("telegram.token / telegram.chat_id empty but telegram enabled")
		}
	}
	if cfg.Postgres.Enabled && strings.TrimSpace(cfg.Postgres.DSN) == "" {
		return errors.New("postgres.dsn empty but postgres enabled")
	}
	return nil
}

func normalizeAsset(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
