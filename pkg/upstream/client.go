// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

// Package upstream performs the single keyed GET against the third-party API
// and turns the reply into either a parsed JSON payload or a typed Failure.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fastjson"

	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/auth"
	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/config"
)

const defaultMaxBodyBytes = 10 << 20

// Result is a successfully parsed upstream reply.
type Result struct {
	// Status is the upstream status code; the proxy decides whether to relay it.
	Status int
	// Value is the decoded JSON document, opaque to this package.
	Value *fastjson.Value
}

// Payload re-serializes Value as compact JSON.
func (r *Result) Payload() []byte {
	return r.Value.MarshalTo(nil)
}

// Client issues the upstream request. It holds no per-call state and is safe
// for concurrent use.
type Client struct {
	// target is the fully keyed upstream URL, identical for every call.
	target string
	// key masks the secret in anything that gets logged.
	key auth.KeyParam
	// http performs the outbound request.
	http *http.Client
	// maxBodyBytes caps both the raw and the decoded body.
	maxBodyBytes int64
	logger       zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the outbound round tripper, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// New builds a Client for the configured endpoint and key.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	key := auth.NewKeyParam(cfg.KeyParam, cfg.APIKey)
	target, err := key.URL(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("build upstream url: %w", err)
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	c := &Client{
		target:       target,
		key:          key,
		http:         &http.Client{Timeout: cfg.RequestTimeout, Transport: transport},
		maxBodyBytes: maxBody,
		logger:       log.With().Str("component", "upstream").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Target returns the upstream URL with the key redacted.
func (c *Client) Target() string {
	return c.key.Redact(c.target)
}

// Fetch performs one GET against the keyed endpoint and parses the body as
// JSON. The upstream status code never turns a parsable body into a failure.
func (c *Client) Fetch(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target, nil)
	if err != nil {
		return nil, &Failure{Kind: Unreachable, Err: fmt.Errorf("build upstream request: %w", c.redact(err))}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Failure{Kind: classify(err, Unreachable), Err: c.redact(err)}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Error().Err(closeErr).Msg("close upstream response body failed")
		}
	}()

	raw, err := readLimited(resp.Body, c.maxBodyBytes)
	if err != nil {
		return nil, &Failure{Kind: classify(err, InvalidBody), Err: fmt.Errorf("read body: %w", c.redact(err))}
	}

	body, err := decodeChain(resp.Header.Get("Content-Encoding"), raw, c.maxBodyBytes)
	if err != nil {
		return nil, &Failure{Kind: InvalidBody, Err: err}
	}

	// A fresh parser per call keeps the returned Value valid after Fetch returns.
	var p fastjson.Parser
	value, err := p.ParseBytes(body)
	if err != nil {
		return nil, &Failure{Kind: InvalidBody, Err: fmt.Errorf("parse json: %w", err)}
	}

	c.logger.Debug().
		Str("target", c.Target()).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("upstream payload decoded")

	return &Result{Status: resp.StatusCode, Value: value}, nil
}

// redact strips the key from URLs embedded in transport errors.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.key.Redact(urlErr.URL)
	}
	return err
}

// classify maps deadline and timeout errors to Timeout, anything else to fallback.
func classify(err error, fallback Kind) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	return fallback
}
