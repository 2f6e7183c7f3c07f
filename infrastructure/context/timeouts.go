// Package context derives bounded contexts for the calls the service makes
// to its own dependencies.
package context

import (
	"context"
	"time"
)

const (
	// PingTimeout bounds connectivity checks at startup and in health probes.
	PingTimeout = 5 * time.Second
	// QueryTimeout bounds a single repository lookup on the request path.
	QueryTimeout = 3 * time.Second
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second
)

// WithPingTimeout returns a child of parent that expires after PingTimeout.
func WithPingTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, PingTimeout)
}

// WithQueryTimeout returns a child of parent bounded by d, or by
// QueryTimeout when d is not positive. An earlier parent deadline wins.
func WithQueryTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = QueryTimeout
	}
	return context.WithTimeout(parent, d)
}

// WithShutdownTimeout returns a context detached from parent's cancellation
// that expires after ShutdownTimeout, so cleanup runs after a signal.
func WithShutdownTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), ShutdownTimeout)
}
