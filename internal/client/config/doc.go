// Package config loads runtime configuration for the catalog CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. CATALOG_* environment variables, optionally from a dotenv file given
//     with -e or -env (./.env is used when present).
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// # Supported flags
//
//	-a   catalog API base url          (CATALOG_API_URL)
//	-k   Keycloak base url             (CATALOG_KEYCLOAK_URL)
//	-r   default Keycloak realm        (CATALOG_KEYCLOAK_REALM)
//	-id  Keycloak client id            (CATALOG_KEYCLOAK_CLIENT_ID)
//	-u   app location                  (CATALOG_APP_URL)
//	-s   query cache stale time        (CATALOG_STALE_TIME)
//	-t   HTTP request timeout          (CATALOG_REQUEST_TIMEOUT)
//	-l   rate limit, requests/second   (CATALOG_RATE_LIMIT)
//	-d   session database path         (CATALOG_DB)
//	-v   log level                     (CATALOG_LOG_LEVEL)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "5m"
// or integer nanoseconds:
//
//	{
//	  "api_url": "http://localhost:8080",
//	  "keycloak_url": "http://localhost:8180",
//	  "keycloak_realm": "microservice-realm",
//	  "keycloak_client_id": "frontend",
//	  "app_url": "http://acme.shop.local/",
//	  "stale_time": "5m",
//	  "request_timeout": "30s",
//	  "rate_limit": 10,
//	  "db_path": "catalog.db",
//	  "log_level": "info"
//	}
package config
