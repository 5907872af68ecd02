// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

package auth

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultParam is the query parameter the upstream API reads its key from.
	DefaultParam = "key"
	// Redacted replaces the key value wherever an upstream URL is logged.
	Redacted = "REDACTED"
)

// KeyParam carries the static API key appended to every upstream call.
type KeyParam struct {
	Name  string
	Value string
}

// NewKeyParam returns a KeyParam, defaulting the parameter name when empty.
func NewKeyParam(name, value string) KeyParam {
	if name == "" {
		name = DefaultParam
	}
	return KeyParam{Name: name, Value: value}
}

// URL returns <endpoint>?<name>=<value>. The key is joined with '&' when the
// endpoint already carries a query, and any fragment is dropped.
func (k KeyParam) URL(endpoint *url.URL) (string, error) {
	if endpoint == nil {
		return "", fmt.Errorf("upstream endpoint must be set")
	}
	if k.Value == "" {
		return "", fmt.Errorf("api key must be set")
	}

	base := *endpoint
	base.Fragment = ""
	base.RawFragment = ""
	base.ForceQuery = false

	sep := "?"
	if base.RawQuery != "" {
		sep = "&"
	}

	return base.String() + sep + k.pair(k.Value), nil
}

// Redact masks the key value in s so URLs and wrapped errors can be logged.
func (k KeyParam) Redact(s string) string {
	if k.Value == "" {
		return s
	}
	return strings.ReplaceAll(s, k.pair(k.Value), k.pair(Redacted))
}

func (k KeyParam) pair(value string) string {
	return url.QueryEscape(k.Name) + "=" + url.QueryEscape(value)
}
