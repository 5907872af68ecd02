// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fastjson"

	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/config"
	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/upstream"
)

const contentTypeJSON = "application/json"

// PostProcessor may rewrite the decoded upstream document before it is sent
// back. Returning an error fails the invocation like an unparsable body.
type PostProcessor func(*fastjson.Value) (*fastjson.Value, error)

// Proxy relays the fixed upstream JSON document to every caller. The inbound
// method, path, headers and body never influence the upstream call.
type Proxy struct {
	// cfg keeps the status policy and the rest of the runtime knobs.
	cfg config.Config
	// client performs the keyed upstream GET.
	client *upstream.Client
	// postProcess is nil unless a caller installs a hook.
	postProcess PostProcessor
	logger      zerolog.Logger
}

// Option customises a Proxy.
type Option func(*options)

type options struct {
	postProcess PostProcessor
	upstream    []upstream.Option
}

// WithPostProcess installs a hook that sees each decoded payload.
func WithPostProcess(fn PostProcessor) Option {
	return func(o *options) {
		o.postProcess = fn
	}
}

// WithUpstreamOptions forwards options to the underlying upstream.Client.
func WithUpstreamOptions(opts ...upstream.Option) Option {
	return func(o *options) {
		o.upstream = append(o.upstream, opts...)
	}
}

// New constructs a Proxy from the provided runtime configuration.
func New(cfg config.Config, opts ...Option) (http.Handler, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	client, err := upstream.New(cfg, o.upstream...)
	if err != nil {
		return nil, fmt.Errorf("create upstream client: %w", err)
	}

	return &Proxy{
		cfg:         cfg,
		client:      client,
		postProcess: o.postProcess,
		logger:      log.With().Str("component", "proxy").Logger(),
	}, nil
}

// ServeHTTP fetches the upstream document and writes it back as JSON, or maps
// the failure to a JSON error response.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	event := p.logger.With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("remote_addr", r.RemoteAddr).
		Logger()

	payload, upstreamStatus, err := p.fetch(r)
	if err != nil {
		status, message := failureResponse(err)
		writeJSON(w, status, errorBody(message))
		event.Error().
			Err(err).
			Str("kind", failureKind(err).String()).
			Str("upstream", p.client.Target()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("upstream request failed")
		return
	}

	// The upstream status is only relayed when explicitly enabled.
	status := http.StatusOK
	if p.cfg.PropagateUpstreamStatus {
		status = upstreamStatus
	}

	if writeErr := writeJSON(w, status, payload); writeErr != nil {
		event.Error().
			Err(writeErr).
			Dur("duration", time.Since(start)).
			Msg("write response failed")
		return
	}

	event.Info().
		Int("status", status).
		Int("upstream_status", upstreamStatus).
		Dur("duration", time.Since(start)).
		Msg("request proxied")
}

// fetch runs the upstream call and the optional post-process hook.
func (p *Proxy) fetch(r *http.Request) ([]byte, int, error) {
	res, err := p.client.Fetch(r.Context())
	if err != nil {
		return nil, 0, err
	}

	if p.postProcess != nil {
		value, err := p.postProcess(res.Value)
		if err != nil {
			return nil, 0, &upstream.Failure{Kind: upstream.InvalidBody, Err: fmt.Errorf("post process: %w", err)}
		}
		if value == nil {
			return nil, 0, &upstream.Failure{Kind: upstream.InvalidBody, Err: errors.New("post process returned no value")}
		}
		res.Value = value
	}

	return res.Payload(), res.Status, nil
}

// failureResponse picks the status and caller-facing message for a failure.
// Unreachable and invalid-body failures look the same to the caller.
func failureResponse(err error) (int, string) {
	if failureKind(err) == upstream.Timeout {
		return http.StatusGatewayTimeout, "upstream request timed out"
	}
	return http.StatusBadGateway, "upstream request failed"
}

func failureKind(err error) upstream.Kind {
	var failure *upstream.Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return upstream.Unreachable
}

func errorBody(message string) []byte {
	var a fastjson.Arena
	obj := a.NewObject()
	obj.Set("error", a.NewString(message))
	return obj.MarshalTo(nil)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
