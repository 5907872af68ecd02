// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

package upstream

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simple-frontend-dev/vercel-functions-api-proxy/pkg/config"
)

func newTestConfig(t *testing.T, endpoint string) config.Config {
	t.Helper()
	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	return config.Config{
		Endpoint:       u,
		APIKey:         "secret-key",
		KeyParam:       "key",
		RequestTimeout: time.Second,
		MaxBodyBytes:   1024,
	}
}

func TestFetchBuildsKeyedURL(t *testing.T) {
	var gotURI, gotMethod, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.URL.RequestURI()
		gotMethod = r.Method
		gotAccept = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{ "a" : 1 }`)
	}))
	defer srv.Close()

	c, err := New(newTestConfig(t, srv.URL+"/v1/data"))
	require.NoError(t, err)

	res, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/v1/data?key=secret-key", gotURI)
	assert.Equal(t, acceptEncoding, gotAccept)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `{"a":1}`, string(res.Payload()))
}

func TestFetchKeepsParsableErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"not found"}`)
	}))
	defer srv.Close()

	c, err := New(newTestConfig(t, srv.URL))
	require.NoError(t, err)

	res, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, `{"error":"not found"}`, string(res.Payload()))
}

func TestFetchDecodesContentEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gzipCompress(t, []byte(`{"items":[1,2,3]}`)))
	}))
	defer srv.Close()

	c, err := New(newTestConfig(t, srv.URL))
	require.NoError(t, err)

	res, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"items":[1,2,3]}`, string(res.Payload()))
}

func TestFetchWithUncappedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gzipCompress(t, []byte(`{"a":1}`)))
	}))
	defer srv.Close()

	cfg := newTestConfig(t, srv.URL)
	cfg.MaxBodyBytes = math.MaxInt64
	c, err := New(cfg)
	require.NoError(t, err)

	res, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(res.Payload()))
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    Kind
	}{
		{
			name: "plain text body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, "oops")
			},
			want: InvalidBody,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			want: InvalidBody,
		},
		{
			name: "oversized body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `"`+strings.Repeat("x", 2048)+`"`)
			},
			want: InvalidBody,
		},
		{
			name: "unsupported encoding",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", "compress")
				_, _ = io.WriteString(w, `{}`)
			},
			want: InvalidBody,
		},
		{
			name: "slow upstream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			want: Timeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cfg := newTestConfig(t, srv.URL)
			cfg.RequestTimeout = 100 * time.Millisecond
			c, err := New(cfg)
			require.NoError(t, err)

			_, err = c.Fetch(context.Background())
			require.Error(t, err)

			var failure *Failure
			require.True(t, errors.As(err, &failure), "expected *Failure, got %T", err)
			assert.Equal(t, tt.want, failure.Kind)
		})
	}
}

func TestFetchUnreachableRedactsKey(t *testing.T) {
	c, err := New(newTestConfig(t, "https://upstream.invalid/v1"),
		WithTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})),
	)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background())
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, Unreachable, failure.Kind)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.Contains(t, err.Error(), "key=REDACTED")
}

func TestFetchIsIdempotent(t *testing.T) {
	var calls int32
	var urls []string
	c, err := New(newTestConfig(t, "https://upstream.example.com/v1"),
		WithTransport(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			urls = append(urls, req.URL.String())
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`[]`)),
			}, nil
		})),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	for _, u := range urls {
		assert.Equal(t, "https://upstream.example.com/v1?key=secret-key", u)
	}
	assert.Equal(t, "https://upstream.example.com/v1?key=REDACTED", c.Target())
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
