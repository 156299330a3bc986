// Package client is the single HTTP adapter used by every crawl phase.
//
// It issues GET and JSON POST requests through resty, attaches headers, and
// returns the status and raw body untouched. Only connection-level failures
// become errors, typed errors.ErrorTypeTransport, so each paginator applies
// its own status policy.
//
// Optional behaviour is wired through options: a rate limiter waited on
// before each request, a retry policy for transport failures, and Prometheus
// counters for every exchange.
package client
