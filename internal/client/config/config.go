package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultAppURL is the app location used when none is configured.
const DefaultAppURL = "http://localhost:3000/"

// Config holds runtime settings for the catalog CLI.
//
// Durations are time.Duration values; RateLimit is in requests per second
// and 0 disables client-side limiting.
type Config struct {
	APIURL         string
	KeycloakURL    string
	Realm          string
	ClientID       string
	AppURL         string
	StaleTime      time.Duration
	RequestTimeout time.Duration
	RateLimit      float64
	DBPath         string
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://localhost:8080"
	c.KeycloakURL = "http://localhost:8180"
	c.Realm = "microservice-realm"
	c.ClientID = "frontend"
	c.AppURL = DefaultAppURL
	c.StaleTime = 5 * time.Minute
	c.RequestTimeout = 30 * time.Second
	c.RateLimit = 0
	c.DBPath = "catalog.db"
	c.LogLevel = "warn"
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"api url":      c.APIURL,
		"keycloak url": c.KeycloakURL,
		"app url":      c.AppURL,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if strings.TrimSpace(c.Realm) == "" {
		return errors.New("realm cannot be empty")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("client id cannot be empty")
	}
	if c.StaleTime <= 0 {
		return errors.New("stale time must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("db path cannot be empty")
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute url", raw)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (and an optional .env file), a JSON file and command-line
// flags. Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	if err := parseJson(cfg); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseFlags(cfg); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
