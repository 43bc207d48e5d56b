package ws

import (
	"time"

	"github.com/emberlink/ember/pkg/logger"
)

// Option configures the Gateway.
type Option func(*Gateway)

// WithWriteTimeout caps a single outbound frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.writeTimeout = d
		}
	}
}

// WithPongTimeout sets the silence window before a connection is dropped.
func WithPongTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.pongTimeout = d
		}
	}
}

// WithPingInterval sets the keepalive ping cadence. Must stay under the
// pong timeout.
func WithPingInterval(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.pingInterval = d
		}
	}
}

// WithSendBuffer sets the per-connection outbound buffer.
func WithSendBuffer(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.sendBuffer = n
		}
	}
}

// WithLogger replaces the gateway's logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}
