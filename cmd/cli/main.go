package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/prodcat/internal/buildinfo"
	"github.com/dmitrijs2005/prodcat/internal/client/api"
	"github.com/dmitrijs2005/prodcat/internal/client/auth"
	"github.com/dmitrijs2005/prodcat/internal/client/cli"
	"github.com/dmitrijs2005/prodcat/internal/client/config"
	"github.com/dmitrijs2005/prodcat/internal/client/metrics"
	"github.com/dmitrijs2005/prodcat/internal/client/query"
	"github.com/dmitrijs2005/prodcat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/prodcat/internal/client/services"
	"github.com/dmitrijs2005/prodcat/internal/client/storage"
	"github.com/dmitrijs2005/prodcat/internal/client/tenant"
	"github.com/dmitrijs2005/prodcat/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	db, err := storage.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open session database: %w", err)
	}
	store := storage.NewStore(db)
	defer store.Close()

	location := cfg.AppURL
	if location == config.DefaultAppURL {
		if last, err := store.Preference(ctx, metadata.KeyLastLocation); err == nil && last != "" {
			location = last
		}
	}
	resolver, err := tenant.ParseResolver(location)
	if err != nil {
		return fmt.Errorf("app location: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	keycloak := auth.NewKeycloak(cfg.KeycloakURL, cfg.Realm, cfg.ClientID, httpClient)
	sessions := auth.NewSessions(ctx, func(realm string) *auth.Session {
		return auth.NewSession(keycloak.ForRealm(realm), realm,
			auth.WithStore(store),
			auth.WithLogger(logger.With("realm", realm)))
	})
	defer sessions.Close()

	otel.SetTextMapPropagator(propagation.TraceContext{})
	m := metrics.New()

	client := api.NewClient(cfg.APIURL, api.TokenFunc(sessions.Token), api.TenantFunc(resolver.Tenant),
		api.WithHTTPClient(httpClient),
		api.WithLogger(logger),
		api.WithMetrics(m),
		api.WithRateLimit(cfg.RateLimit, int(cfg.RateLimit)),
		api.WithPropagator(otel.GetTextMapPropagator()),
	)

	opts := query.DefaultOptions()
	opts.StaleTime = cfg.StaleTime
	opts.Metrics = m
	opts.Logger = logger
	cache := query.New(opts)

	service := services.NewProductService(client, cache, logger)

	app := cli.NewApp(service, cli.AuthSessions(sessions), resolver, cfg.Realm,
		cli.WithPreferences(store),
		cli.WithStats(m.Snapshot),
		cli.WithLogger(logger))

	errc := make(chan error, 1)
	go func() { errc <- app.Run(ctx) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		fmt.Println()
		return nil
	}
}
