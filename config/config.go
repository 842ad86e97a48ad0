package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Selectors describes where summary fields live on the operator index page.
type Selectors struct {
	Card   string `yaml:"card"`
	Name   string `yaml:"name"`
	Banner string `yaml:"banner"`
	Icon   string `yaml:"icon"`
}

// Config holds scraper configuration.
type Config struct {
	IndexURL     string        `yaml:"index_url"`
	SiteOrigin   string        `yaml:"site_origin"`
	Parallelism  int           `yaml:"parallelism"`
	Timeout      time.Duration `yaml:"timeout"`
	OutputFile   string        `yaml:"output_file"`
	OutputFormat string        `yaml:"output_format"` // json, csv, or dual
	Pretty       bool          `yaml:"pretty"`
	UserAgent    string        `yaml:"user_agent"`
	Verbose      bool          `yaml:"verbose"`
	LogFile      string        `yaml:"log_file"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	DedupeSize   int           `yaml:"dedupe_size"`
	MaxBodySize  int           `yaml:"max_body_size"` // bytes, 0 reads whole responses

	RespectRobotsTxt bool      `yaml:"respect_robots_txt"`
	Selectors        Selectors `yaml:"selectors"`
}

// DefaultSelectors returns the markup classes used by the operator index page.
func DefaultSelectors() Selectors {
	return Selectors{
		Card:   ".oplist__card",
		Name:   "span",
		Banner: ".oplist__card__img",
		Icon:   ".oplist__card__icon",
	}
}

// DefaultConfig returns defaults matching a plain zero-argument run.
func DefaultConfig() *Config {
	return &Config{
		IndexURL:         "https://www.ubisoft.com/en-gb/game/rainbow-six/siege/game-info/operators",
		SiteOrigin:       "https://www.ubisoft.com",
		Parallelism:      1,
		Timeout:          30 * time.Second,
		OutputFile:       "data.json",
		OutputFormat:     "json",
		Pretty:           false,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:          false,
		DedupeSize:       1024,
		RespectRobotsTxt: false,
		Selectors:        DefaultSelectors(),
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.IndexURL == "" {
		return fmt.Errorf("index URL cannot be empty")
	}
	indexURL, err := url.Parse(c.IndexURL)
	if err != nil {
		return fmt.Errorf("invalid index URL: %w", err)
	}
	if indexURL.Host == "" {
		return fmt.Errorf("index URL must include a host")
	}

	if c.SiteOrigin == "" {
		return fmt.Errorf("site origin cannot be empty")
	}
	origin, err := url.Parse(c.SiteOrigin)
	if err != nil {
		return fmt.Errorf("invalid site origin: %w", err)
	}
	if origin.Host == "" {
		return fmt.Errorf("site origin must include a host")
	}

	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DedupeSize <= 0 {
		return fmt.Errorf("dedupe size must be positive")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max body size cannot be negative")
	}

	if c.Selectors.Card == "" {
		return fmt.Errorf("selectors.card is required")
	}
	if c.Selectors.Name == "" {
		return fmt.Errorf("selectors.name is required")
	}
	if c.Selectors.Banner == "" {
		return fmt.Errorf("selectors.banner is required")
	}
	if c.Selectors.Icon == "" {
		return fmt.Errorf("selectors.icon is required")
	}

	return nil
}

// AllowedHosts lists the hosts the fetcher may visit.
func (c *Config) AllowedHosts() []string {
	hosts := make([]string, 0, 2)
	for _, raw := range []string{c.IndexURL, c.SiteOrigin} {
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}
		if host := parsed.Hostname(); !contains(hosts, host) {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer when it is set.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}
