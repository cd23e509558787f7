package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/prodcat/internal/flagx"
)

var ownFlags = []string{"-a", "-k", "-r", "-id", "-u", "-s", "-t", "-l", "-d", "-v"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string     catalog API base url
//	-k string     Keycloak base url
//	-r string     default Keycloak realm
//	-id string    Keycloak client id
//	-u string     app location used for tenant resolution
//	-s duration   query cache stale time
//	-t duration   HTTP request timeout
//	-l float      client-side rate limit in requests per second (0 = off)
//	-d string     session database path
//	-v string     log level
//
// os.Args is filtered with flagx.FilterArgs so that flags owned by other
// loaders (-c, -e) do not make parsing fail.
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], ownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "catalog API base url")
	fs.StringVar(&cfg.KeycloakURL, "k", cfg.KeycloakURL, "Keycloak base url")
	fs.StringVar(&cfg.Realm, "r", cfg.Realm, "default Keycloak realm")
	fs.StringVar(&cfg.ClientID, "id", cfg.ClientID, "Keycloak client id")
	fs.StringVar(&cfg.AppURL, "u", cfg.AppURL, "app location used for tenant resolution")
	fs.DurationVar(&cfg.StaleTime, "s", cfg.StaleTime, "query cache stale time")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "HTTP request timeout")
	fs.Float64Var(&cfg.RateLimit, "l", cfg.RateLimit, "rate limit in requests per second")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "session database path")
	fs.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "log level")

	return fs.Parse(args)
}
