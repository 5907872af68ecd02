// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

// Package logging configures the process-wide zerolog logger shared by the
// serverless entrypoint and the local server.
package logging

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup applies the timestamp format and the minimum level to the global logger.
func Setup(level string) error {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.Logger = log.Level(parsed)
	return nil
}
