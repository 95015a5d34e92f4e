// Package timeouts defines shared timeout constants used across the host.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// RemoteFetch caps a single remote request when no explicit timeout is
// configured.
const RemoteFetch = 5 * time.Second

// HealthCheckInterval is the default period between remote health rounds.
const HealthCheckInterval = 15 * time.Second

// SidebarSession is how long an unused browser sidebar is kept before it is
// discarded.
const SidebarSession = 30 * time.Minute
