// Package timeouts defines shared timeout constants used across the relay
// process. Centralizing these values prevents drift between transport
// boundaries and makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// ExecuteRequest caps a proxied code-execution call to the upstream
// execution API.
const ExecuteRequest = 15 * time.Second
