package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/flagx"
	"github.com/joho/godotenv"
)

const (
	EnvAPIURL         = "CATALOG_API_URL"
	EnvKeycloakURL    = "CATALOG_KEYCLOAK_URL"
	EnvRealm          = "CATALOG_KEYCLOAK_REALM"
	EnvClientID       = "CATALOG_KEYCLOAK_CLIENT_ID"
	EnvAppURL         = "CATALOG_APP_URL"
	EnvStaleTime      = "CATALOG_STALE_TIME"
	EnvRequestTimeout = "CATALOG_REQUEST_TIMEOUT"
	EnvRateLimit      = "CATALOG_RATE_LIMIT"
	EnvDBPath         = "CATALOG_DB"
	EnvLogLevel       = "CATALOG_LOG_LEVEL"
)

// parseEnv overlays cfg with CATALOG_* environment variables. A dotenv file
// given with -e/-env is loaded first and must exist; otherwise ./.env is
// loaded when present. Variables already set in the environment win over
// the file.
func parseEnv(cfg *Config) error {
	if file := flagx.EnvFileFlags(); file != "" {
		if err := godotenv.Load(file); err != nil {
			return err
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	setString(&cfg.APIURL, EnvAPIURL)
	setString(&cfg.KeycloakURL, EnvKeycloakURL)
	setString(&cfg.Realm, EnvRealm)
	setString(&cfg.ClientID, EnvClientID)
	setString(&cfg.AppURL, EnvAppURL)
	setString(&cfg.DBPath, EnvDBPath)
	setString(&cfg.LogLevel, EnvLogLevel)

	if err := setDuration(&cfg.StaleTime, EnvStaleTime); err != nil {
		return err
	}
	if err := setDuration(&cfg.RequestTimeout, EnvRequestTimeout); err != nil {
		return err
	}
	if v := getEnv(EnvRateLimit); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRateLimit, err)
		}
		cfg.RateLimit = rps
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := getEnv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
