// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envUpstreamEndpoint       = "EDGE_UPSTREAM_ENDPOINT"
	envUpstreamKey            = "EDGE_UPSTREAM_KEY"
	envKeyParam               = "EDGE_KEY_PARAM"
	envListenAddr             = "EDGE_LISTEN_ADDR"
	envRequestTimeout         = "EDGE_REQUEST_TIMEOUT"
	envMaxBodyBytes           = "EDGE_MAX_BODY_BYTES"
	envPropagateStatus        = "EDGE_PROPAGATE_UPSTREAM_STATUS"
	envLogLevel               = "EDGE_LOG_LEVEL"
	envServerReadTimeout      = "EDGE_SERVER_READ_TIMEOUT"
	envServerWriteTimeout     = "EDGE_SERVER_WRITE_TIMEOUT"
	envServerIdleTimeout      = "EDGE_SERVER_IDLE_TIMEOUT"
	envGracefulShutdown       = "EDGE_GRACEFUL_SHUTDOWN"
	defaultKeyParam           = "key"
	defaultListenAddr         = "127.0.0.1:8080"
	defaultRequestTimeout     = 15 * time.Second
	defaultMaxBodyBytes       = 10 << 20
	defaultLogLevel           = "info"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 120 * time.Second
	defaultGracefulShutdown   = 10 * time.Second
)

// Config captures runtime settings for the edge function and its local server.
type Config struct {
	// Endpoint is the fixed upstream API the function relays.
	Endpoint *url.URL
	// APIKey is appended to every upstream call as a query parameter.
	APIKey string
	// KeyParam names the query parameter carrying APIKey.
	KeyParam string

	ListenAddr              string
	RequestTimeout          time.Duration
	MaxBodyBytes            int64
	PropagateUpstreamStatus bool
	LogLevel                string

	ServerReadTimeout       time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	GracefulShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and validates required values.
func Load() (Config, error) {
	endpointRaw := strings.TrimSpace(os.Getenv(envUpstreamEndpoint))
	if endpointRaw == "" {
		return Config{}, errors.New("EDGE_UPSTREAM_ENDPOINT is required")
	}

	endpoint, err := url.Parse(endpointRaw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid EDGE_UPSTREAM_ENDPOINT: %w", err)
	}
	if !endpoint.IsAbs() || endpoint.Host == "" {
		return Config{}, errors.New("EDGE_UPSTREAM_ENDPOINT must be absolute (scheme://host)")
	}

	apiKey := strings.TrimSpace(os.Getenv(envUpstreamKey))
	if apiKey == "" {
		return Config{}, errors.New("EDGE_UPSTREAM_KEY is required")
	}

	cfg := Config{
		Endpoint:                endpoint,
		APIKey:                  apiKey,
		KeyParam:                getString(envKeyParam, defaultKeyParam),
		ListenAddr:              getString(envListenAddr, defaultListenAddr),
		RequestTimeout:          getDuration(envRequestTimeout, defaultRequestTimeout),
		MaxBodyBytes:            getInt64(envMaxBodyBytes, defaultMaxBodyBytes),
		PropagateUpstreamStatus: getBool(envPropagateStatus, false),
		LogLevel:                strings.ToLower(getString(envLogLevel, defaultLogLevel)),
		ServerReadTimeout:       getDuration(envServerReadTimeout, defaultServerReadTimeout),
		ServerWriteTimeout:      getDuration(envServerWriteTimeout, defaultServerWriteTimeout),
		ServerIdleTimeout:       getDuration(envServerIdleTimeout, defaultServerIdleTimeout),
		GracefulShutdownTimeout: getDuration(envGracefulShutdown, defaultGracefulShutdown),
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getInt64 only accepts positive values; anything else keeps the fallback.
func getInt64(key string, fallback int64) int64 {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getDuration only accepts positive durations; anything else keeps the fallback.
func getDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
