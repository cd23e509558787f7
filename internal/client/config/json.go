package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/prodcat/internal/flagx"
	"github.com/dmitrijs2005/prodcat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify durations either as
// strings like "5m" or as integer nanoseconds.
type JsonConfig struct {
	APIURL         string         `json:"api_url"`
	KeycloakURL    string         `json:"keycloak_url"`
	Realm          string         `json:"keycloak_realm"`
	ClientID       string         `json:"keycloak_client_id"`
	AppURL         string         `json:"app_url"`
	StaleTime      timex.Duration `json:"stale_time"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	RateLimit      *float64       `json:"rate_limit"`
	DBPath         string         `json:"db_path"`
	LogLevel       string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file named by -c or -config. Fields
// absent from the file keep their current value.
func parseJson(cfg *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	overlay(&cfg.APIURL, jc.APIURL)
	overlay(&cfg.KeycloakURL, jc.KeycloakURL)
	overlay(&cfg.Realm, jc.Realm)
	overlay(&cfg.ClientID, jc.ClientID)
	overlay(&cfg.AppURL, jc.AppURL)
	overlay(&cfg.DBPath, jc.DBPath)
	overlay(&cfg.LogLevel, jc.LogLevel)
	overlay(&cfg.StaleTime, jc.StaleTime.Duration)
	overlay(&cfg.RequestTimeout, jc.RequestTimeout.Duration)
	if jc.RateLimit != nil {
		cfg.RateLimit = *jc.RateLimit
	}
	return nil
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
