// Package wiring turns configuration into a running object graph.
package wiring

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	server "brokerage_site/internal/adapters/http_server"
	"brokerage_site/internal/adapters/identity"
	"brokerage_site/internal/adapters/observability"
	redisad "brokerage_site/internal/adapters/redis"
	supabasead "brokerage_site/internal/adapters/supabase"
	"brokerage_site/internal/app"
	"brokerage_site/internal/domain"
	"brokerage_site/internal/shared"
	"brokerage_site/internal/storage/dynamo"
	"brokerage_site/internal/storage/memory"
	mysqlstore "brokerage_site/internal/storage/mysql"
)

type App struct {
	Catalog *app.Catalog
	Seeder  *app.Seeder
	Server  *server.Server
	// Registry backs /metrics and the optional standalone metrics listener.
	Registry *prometheus.Registry

	closers []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Backend is the store plus the seed lock that matches it.
type Backend struct {
	KV    domain.KVStore
	Lock  domain.SeedLock
	Close func() error
}

// OpenBackend connects the store selected by STORE_DRIVER.
func OpenBackend(ctx context.Context, cfg shared.Config) (*Backend, error) {
	noop := func() error { return nil }
	switch cfg.StoreDriver {
	case "memory":
		kv := memory.New()
		return &Backend{KV: kv, Lock: app.NewStoreLock(kv), Close: noop}, nil

	case "mysql":
		db, err := mysqlstore.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		kv := mysqlstore.New(db)
		return &Backend{KV: kv, Lock: app.NewStoreLock(kv), Close: db.Close}, nil

	case "redis":
		c := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &Backend{
			KV:    redisad.New(c, cfg.RedisPrefix),
			Lock:  redisad.NewLock(c, cfg.RedisPrefix, app.SeedLockKey),
			Close: c.Close,
		}, nil

	case "supabase":
		c, err := supabasead.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, err
		}
		kv := supabasead.New(c, cfg.KVTable)
		return &Backend{KV: kv, Lock: app.NewStoreLock(kv), Close: noop}, nil

	case "dynamodb":
		c, err := dynamo.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		kv := dynamo.New(c, cfg.DynamoTable)
		return &Backend{KV: kv, Lock: app.NewStoreLock(kv), Close: noop}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// NewVerifier picks how admin bearer tokens are checked.
func NewVerifier(cfg shared.Config) (domain.IdentityVerifier, error) {
	key := cfg.SupabaseAnon
	if key == "" {
		key = cfg.SupabaseKey
	}
	switch cfg.AuthMode {
	case "jwt":
		return identity.NewJWTVerifier(cfg.AuthJWTSecret)
	case "remote":
		return identity.New(cfg.SupabaseURL, key, cfg.AuthRPS)
	case "supabase":
		c, err := supabasead.NewClient(cfg.SupabaseURL, key)
		if err != nil {
			return nil, err
		}
		return supabasead.NewVerifier(c), nil
	}
	return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
}

// Build opens every external dependency named by cfg and assembles the app.
func Build(ctx context.Context, cfg shared.Config) (*App, error) {
	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	v, err := NewVerifier(cfg)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}
	a := Assemble(cfg, b.KV, b.Lock, v)
	a.closers = append(a.closers, b.Close)
	log.Info().Str("store", cfg.StoreDriver).Str("auth", cfg.AuthMode).Msg("backend ready")
	return a, nil
}

// Assemble builds the catalog, seeder and router over already-open dependencies.
func Assemble(cfg shared.Config, kv domain.KVStore, lock domain.SeedLock, v domain.IdentityVerifier) *App {
	cat := app.NewCatalog(kv)
	seeder := app.NewSeeder(kv, lock, cat.Targets(),
		app.WithWorkers(cfg.SeedWorkers),
		app.WithLockTTL(cfg.SeedLockTTL),
	)

	srv := server.New(server.Options{Timeout: cfg.RequestTimeout, CORSOrigins: cfg.CORSOrigins})
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Catalog: cat, Seeder: seeder, Auth: v})

	return &App{Catalog: cat, Seeder: seeder, Server: srv, Registry: reg}
}
