package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// RequestBudgetMs is the hard wall-clock ceiling the HTTP layer
	// races each scrape against. It must exceed the scraper's own
	// overall budget so the core can produce a classified failure
	// before the handler gives up.
	RequestBudgetMs int `yaml:"requestBudgetMs"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"apiKey"`
}

type ScraperConfig struct {
	// Engine selects the fetch strategy: http, rod, or rod-stealth.
	Engine    string `yaml:"engine"`
	TimeoutMs int    `yaml:"timeoutMs"`
	Retries   int    `yaml:"retries"`

	// OverallBudgetMs bounds a whole invocation (all attempts plus
	// backoff). Per-attempt timeouts are clamped below
	// OverallBudgetMs/(retries+1) so a terminating result is always
	// produced before the budget fires.
	OverallBudgetMs int `yaml:"overallBudgetMs"`

	// UserAgent pins the UA for every attempt. Empty means one is
	// drawn at random from the pool per attempt.
	UserAgent string `yaml:"userAgent"`

	InitialDelayMinMs int `yaml:"initialDelayMinMs"`
	InitialDelayMaxMs int `yaml:"initialDelayMaxMs"`
	SettleMs          int `yaml:"settleMs"`

	// Block-detector length thresholds. Plain-HTTP payloads carry
	// scripts and inline assets, so the bar is higher than for
	// rendered documents.
	MinHTMLLength     int `yaml:"minHtmlLength"`
	MinRenderedLength int `yaml:"minRenderedLength"`

	BlockBackoffBaseMs   int `yaml:"blockBackoffBaseMs"`
	BlockBackoffStepMs   int `yaml:"blockBackoffStepMs"`
	BlockBackoffJitterMs int `yaml:"blockBackoffJitterMs"`
	ErrorBackoffBaseMs   int `yaml:"errorBackoffBaseMs"`
}

// DefaultsConfig holds the region-specific fallback values used when a
// field cannot be extracted from the page.
type DefaultsConfig struct {
	Address   string `yaml:"address"`
	Locality  string `yaml:"locality"`
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
}

// SelectorsConfig overrides the built-in selector table. The target
// site's markup drifts, so selectors are configuration rather than
// code; empty lists fall back to the built-in defaults.
type SelectorsConfig struct {
	Version         string   `yaml:"version"`
	Name            []string `yaml:"name"`
	Rating          []string `yaml:"rating"`
	Price           []string `yaml:"price"`
	Description     []string `yaml:"description"`
	Address         []string `yaml:"address"`
	CuisineAreas    []string `yaml:"cuisineAreas"`
	PhoneContainers []string `yaml:"phoneContainers"`
	Landmarks       []string `yaml:"landmarks"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Selectors SelectorsConfig `yaml:"selectors"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	cfg.applyDefaults()
	return &cfg
}

// Default returns a configuration with every tunable at its built-in
// value, used by tests and as the base for partial YAML files.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestBudgetMs == 0 {
		c.Server.RequestBudgetMs = 30000
	}
	if c.Scraper.Engine == "" {
		c.Scraper.Engine = "http"
	}
	if c.Scraper.TimeoutMs == 0 {
		c.Scraper.TimeoutMs = 8000
	}
	if c.Scraper.Retries == 0 {
		c.Scraper.Retries = 2
	}
	if c.Scraper.OverallBudgetMs == 0 {
		c.Scraper.OverallBudgetMs = 27000
	}
	if c.Scraper.InitialDelayMaxMs == 0 {
		c.Scraper.InitialDelayMinMs = 500
		c.Scraper.InitialDelayMaxMs = 2000
	}
	if c.Scraper.SettleMs == 0 {
		c.Scraper.SettleMs = 800
	}
	if c.Scraper.MinHTMLLength == 0 {
		c.Scraper.MinHTMLLength = 3000
	}
	if c.Scraper.MinRenderedLength == 0 {
		c.Scraper.MinRenderedLength = 2000
	}
	if c.Scraper.BlockBackoffBaseMs == 0 {
		c.Scraper.BlockBackoffBaseMs = 2000
	}
	if c.Scraper.BlockBackoffStepMs == 0 {
		c.Scraper.BlockBackoffStepMs = 2000
	}
	if c.Scraper.BlockBackoffJitterMs == 0 {
		c.Scraper.BlockBackoffJitterMs = 3000
	}
	if c.Scraper.ErrorBackoffBaseMs == 0 {
		c.Scraper.ErrorBackoffBaseMs = 2000
	}
	if c.Defaults.Address == "" {
		c.Defaults.Address = "Salento, Puglia"
	}
	if c.Defaults.Locality == "" {
		c.Defaults.Locality = "Salento"
	}
	if c.Defaults.Latitude == "" {
		c.Defaults.Latitude = "40.3515"
	}
	if c.Defaults.Longitude == "" {
		c.Defaults.Longitude = "18.1750"
	}
}
