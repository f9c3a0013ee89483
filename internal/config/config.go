package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"BeliefSentinel/internal/model"

	"gopkg.in/yaml.v3"
)

const insecureDefaultSecret = "beliefsentinel_default_insecure_key_change_me"

// Config holds all application configuration.
type Config struct {
	Ledger struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"ledger"`
	Encryptor struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"encryptor"`
	Engine struct {
		ScanIntervalSec int `yaml:"scan_interval_sec"`
	} `yaml:"engine"`
	Store struct {
		SQLitePath string `yaml:"sqlite_path"`
		Secret     string `yaml:"secret"`
	} `yaml:"store"`
	Sources []model.DataSource `yaml:"sources"`
	Proxy   string             `yaml:"proxy"`
}

// ScanInterval returns the per-agent scan interval.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Engine.ScanIntervalSec) * time.Second
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
	if v := os.Getenv("LEDGER_BASE_URL"); v != "" {
		cfg.Ledger.BaseURL = v
	}
	if v := os.Getenv("LEDGER_API_KEY"); v != "" {
		cfg.Ledger.APIKey = v
	}
	if v := os.Getenv("ENCRYPTOR_ENDPOINT"); v != "" {
		cfg.Encryptor.Endpoint = v
	}
	if v := os.Getenv("STORAGE_SECRET"); v != "" {
		cfg.Store.Secret = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("SCAN_INTERVAL_SEC"); v != "" {
		var sec int
		if _, err := fmt.Sscanf(v, "%d", &sec); err == nil {
			cfg.Engine.ScanIntervalSec = sec
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Engine.ScanIntervalSec == 0 {
		cfg.Engine.ScanIntervalSec = 30
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "data/beliefsentinel.db"
	}
	if cfg.Store.Secret == "" {
		log.Println("[WARN] store secret not set, using insecure default")
		cfg.Store.Secret = insecureDefaultSecret
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("ledger.base_url is required")
	}
	if c.Engine.ScanIntervalSec <= 0 {
		return fmt.Errorf("engine.scan_interval_sec must be positive")
	}
	seen := map[int]bool{}
	for _, s := range c.Sources {
		if s.ID == 0 {
			return fmt.Errorf("source %q: id is required", s.Symbol)
		}
		if seen[s.ID] {
			return fmt.Errorf("source %q: duplicate id %d", s.Symbol, s.ID)
		}
		seen[s.ID] = true
		if s.DefaultPrice <= 0 {
			return fmt.Errorf("source %q: default_price must be positive", s.Symbol)
		}
	}
	return nil
}

// DefaultSources is the built-in DIA data-source catalog.
func DefaultSources() []model.DataSource {
	return []model.DataSource{
		{ID: 1, Name: "Natural Gas", Symbol: "NG/USD", AssetType: model.AssetCommodity,
			Endpoint: "https://api.diadata.org/v1/rwa/Commodities/NG-USD", DefaultPrice: 3.169},
		{ID: 2, Name: "Crude Oil", Symbol: "WTI/USD", AssetType: model.AssetCommodity,
			Endpoint: "https://api.diadata.org/v1/rwa/Commodities/WTI-USD", DefaultPrice: 58.78},
		{ID: 3, Name: "Brent Oil", Symbol: "XBR/USD", AssetType: model.AssetCommodity,
			Endpoint: "https://api.diadata.org/v1/rwa/Commodities/XBR-USD", DefaultPrice: 63.03},
		{ID: 4, Name: "Canadian Dollar", Symbol: "CAD/USD", AssetType: model.AssetFX,
			Endpoint: "https://api.diadata.org/v1/rwa/Fiat/CAD-USD", DefaultPrice: 0.7186},
		{ID: 5, Name: "Euro", Symbol: "EUR/USD", AssetType: model.AssetFX,
			Endpoint: "https://api.diadata.org/v1/rwa/Fiat/EUR-USD", DefaultPrice: 1.0823},
		{ID: 6, Name: "Gold ETF", Symbol: "GLD/USD", AssetType: model.AssetETF,
			Endpoint: "https://api.diadata.org/v1/rwa/ETF/GLD-USD", DefaultPrice: 312.45},
	}
}
