// Package timeouts defines shared timeout constants used by the gatehouse
// service and its outbound clients.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the identity backend, including
// its health check.
const GRPCDial = 2 * time.Second

// APIRequest caps a single outbound call to the application API.
const APIRequest = 5 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
