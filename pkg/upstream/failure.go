// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

package upstream

import "fmt"

// Kind classifies why an upstream call did not yield a JSON payload.
type Kind int

const (
	// Unreachable covers transport failures: DNS, refused connections, TLS.
	Unreachable Kind = iota + 1
	// Timeout means the request deadline expired before a full body arrived.
	Timeout
	// InvalidBody means the body could not be read, decoded, or parsed as JSON.
	InvalidBody
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case InvalidBody:
		return "invalid_body"
	default:
		return "unknown"
	}
}

// Failure is the typed error returned by Client.Fetch.
type Failure struct {
	Kind Kind  // Kind drives the status code the boundary layer emits.
	Err  error // Err retains the original cause for logging.
}

// Error implements the error interface for Failure.
func (f *Failure) Error() string {
	return fmt.Sprintf("upstream %s: %v", f.Kind, f.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As checks.
func (f *Failure) Unwrap() error {
	return f.Err
}
