// Copyright © 2025 simple-frontend-dev, All Rights reserved
// Author: simple-frontend-dev maintainers

// Package proxy provides the HTTP handler behind the edge function. Every
// invocation issues the same keyed GET to a fixed third-party API and relays
// the JSON document it returns with content-type application/json.
//
// By default a parsable upstream body is answered with status 200 whatever
// status the upstream used; config.Config.PropagateUpstreamStatus relays the
// upstream status instead. Transport failures and unparsable bodies are logged
// and answered with 502, deadline overruns with 504.
package proxy
