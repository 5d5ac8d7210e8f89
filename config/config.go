// Package config loads the process configuration from a .env file, an
// optional YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"szakszon.com/divgap"
	"szakszon.com/divgap/calendar"
)

const (
	EnvAPIKey     = "POLYGON_API_KEY"
	EnvSubscribed = "IS_POLYGON_SUBSCRIBED"
	EnvConfig     = "DIVGAP_CONFIG"
)

type Config struct {
	DataDir      string              `yaml:"data_dir" validate:"required"`
	Exchange     string              `yaml:"exchange" validate:"required"`
	LogLevel     string              `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	LookbackDays int                 `yaml:"lookback_days" validate:"gte=0"`
	Polygon      Polygon             `yaml:"polygon"`
	Screening    Screening           `yaml:"screening"`
	Calendars    map[string]Calendar `yaml:"calendars" validate:"dive"`
}

type Polygon struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// RequestsPerMinute throttles the free tier.
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"gt=0"`

	// SubscribedRequestsPerMinute applies with a paid plan. Zero means
	// unlimited.
	SubscribedRequestsPerMinute int           `yaml:"subscribed_requests_per_minute" validate:"gte=0"`
	Timeout                     time.Duration `yaml:"timeout" validate:"gt=0"`

	APIKey     string `yaml:"-"`
	Subscribed bool   `yaml:"-"`
}

type Screening struct {
	MinAnnualYield float64 `yaml:"min_annual_yield" validate:"gte=0"`
	DividendsFrom  string  `yaml:"dividends_from" validate:"omitempty,datetime=2006-01-02"`
	PriceYears     int     `yaml:"price_years" validate:"gt=0"`
}

// Calendar lists extra closures of an exchange keyed by date.
type Calendar struct {
	Closures map[string]string `yaml:"closures" validate:"dive,keys,datetime=2006-01-02,endkeys,required"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir:      "data",
		Exchange:     "XNYS",
		LogLevel:     "info",
		LookbackDays: calendar.MinLookbackDays,
		Polygon: Polygon{
			BaseURL:           "https://api.polygon.io",
			RequestsPerMinute: 5,
			Timeout:           30 * time.Second,
		},
		Screening: Screening{
			MinAnnualYield: 8,
			DividendsFrom:  "2014-01-01",
			PriceYears:     5,
		},
		Calendars: make(map[string]Calendar),
	}
}

// LoadEnv loads the given .env files, or .env in the working directory.
// Missing files are ignored and variables already set are kept.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML file at path over the defaults and applies the
// environment. An empty path falls back to $DIVGAP_CONFIG, and to the
// defaults alone when that is unset too.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Polygon.APIKey = os.Getenv(EnvAPIKey)
	cfg.Polygon.Subscribed = truthy(os.Getenv(EnvSubscribed))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func truthy(v string) bool {
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	supported := make(map[string]struct{})
	for _, mic := range calendar.Supported() {
		supported[mic] = struct{}{}
	}
	if _, ok := supported[c.Exchange]; !ok {
		return fmt.Errorf("invalid config: %w", &calendar.UnknownExchangeError{MIC: c.Exchange})
	}
	for mic := range c.Calendars {
		if _, ok := supported[strings.ToUpper(mic)]; !ok {
			return fmt.Errorf("invalid config: calendars: %w", &calendar.UnknownExchangeError{MIC: mic})
		}
	}
	return nil
}

// ClosureDates returns the configured extra closures per MIC.
func (c *Config) ClosureDates() (map[string]map[time.Time]string, error) {
	closures := make(map[string]map[time.Time]string, len(c.Calendars))
	for mic, cal := range c.Calendars {
		days := make(map[time.Time]string, len(cal.Closures))
		for s, reason := range cal.Closures {
			d, err := divgap.ParseDate(s)
			if err != nil {
				return nil, fmt.Errorf("calendars %s: %w", mic, err)
			}
			days[d] = reason
		}
		closures[strings.ToUpper(mic)] = days
	}
	return closures, nil
}

// DividendsFrom parses Screening.DividendsFrom.
func (c *Config) DividendsFrom() (time.Time, error) {
	return divgap.ParseDate(c.Screening.DividendsFrom)
}

// RateLimiter spaces Polygon requests according to the plan in use.
func (c *Config) RateLimiter() *rate.Limiter {
	n := c.Polygon.RequestsPerMinute
	if c.Polygon.Subscribed {
		n = c.Polygon.SubscribedRequestsPerMinute
		if n == 0 {
			return rate.NewLimiter(rate.Inf, 1)
		}
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
}
