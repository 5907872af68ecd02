// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

// Package handler exposes the edge function entrypoint served at /api/proxy.
package handler

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/config"
	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/logging"
	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/proxy"
)

var (
	setupOnce sync.Once
	proxyH    http.Handler
	setupErr  error
)

// setup runs once per cold start; the handler is reused by warm invocations.
func setup() {
	cfg, err := config.Load()
	if err != nil {
		setupErr = err
		return
	}
	if err := logging.Setup(cfg.LogLevel); err != nil {
		log.Warn().Err(err).Msg("keeping default log level")
	}
	proxyH, setupErr = proxy.New(cfg)
}

// Handler is the serverless function entrypoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	setupOnce.Do(setup)
	if setupErr != nil {
		log.Error().Err(setupErr).Msg("edge function is not configured")
		http.Error(w, "config error", http.StatusInternalServerError)
		return
	}
	proxyH.ServeHTTP(w, r)
}
