package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/shared"
	"brokerage_site/internal/wiring"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := wiring.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("close failed")
		}
	}()

	observability.Serve(cfg.MetricsAddr, a.Registry)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Server.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
