// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/config"
	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/logging"
	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/proxy"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Str("env_file", envFile).Msg("no env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logging.Setup(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.LogLevel).Msg("invalid log level")
	}

	proxyHandler, err := proxy.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct proxy")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/", proxyHandler)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("listen_addr", cfg.ListenAddr).
			Str("upstream", cfg.Endpoint.String()).
			Msg("starting edge proxy")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("proxy server exited unexpectedly")
		}
	}()

	waitForShutdown(context.Background(), server, cfg.GracefulShutdownTimeout)
}

func waitForShutdown(ctx context.Context, srv *http.Server, timeout time.Duration) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	log.Info().Msg("shutting down edge proxy")

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed; forcing close")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("forced close failed")
		}
	}

	log.Info().Msg("proxy stopped")
}
