package handler

// options.go handles setting of handler options

// Options are closures with the signature func(*Handler): each option
// function below captures its parameter and returns a closure that applies
// it.  New() runs them in order via SetOptions, so if the same option is
// given twice only the last use has any effect.

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gqldocs/gqldocs/internal/metrics"
)

const (
	defaultInitialTimeout = 10 * time.Second // how long to wait for the client hello after the WS is opened
	defaultPingFrequency  = 20 * time.Second // how often to send a ping message to a livereload client
	defaultPongTimeout    = 5 * time.Second  // how long to wait for a pong after sending a ping
)

// SetOptions takes a slice of handler options (closures) and executes them
func (h *Handler) SetOptions(options ...func(*Handler)) {
	for _, option := range options {
		option(h)
	}

	// Set any options that still have their unset (zero) value
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.initialTimeout == 0 {
		h.initialTimeout = defaultInitialTimeout
	}
	if h.pingFrequency == 0 {
		h.pingFrequency = defaultPingFrequency
	}
	if h.pongTimeout == 0 {
		h.pongTimeout = defaultPongTimeout
	}
	// Normalise the base path to "/prefix" form, empty meaning none.
	h.basePath = strings.TrimSuffix(h.basePath, "/")
	if h.basePath != "" && !strings.HasPrefix(h.basePath, "/") {
		h.basePath = "/" + h.basePath
	}
}

// WithLogger sets the logger used for request problems.  Without it the
// handler logs through slog.Default().
func WithLogger(logger *slog.Logger) func(*Handler) {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithMetrics sets the collectors updated while serving.  Without it
// nothing is recorded.
func WithMetrics(m *metrics.Metrics) func(*Handler) {
	return func(h *Handler) {
		h.metrics = m
	}
}

// PreviewSecret sets the HMAC key that preview tokens must be signed with.
// Without a secret draft pages are never served.
func PreviewSecret(secret []byte) func(*Handler) {
	return func(h *Handler) {
		h.previewSecret = secret
	}
}

// InitialTimeout sets the length of time to wait from when the livereload
// websocket is opened until the client's "hello" message is received.  If
// it does not arrive within the time limit the WS is closed.
func InitialTimeout(timeout time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.initialTimeout = timeout // timeout value is "captured" and returned as part of the func
	}
}

// PingFrequency says how often to send a "ping" message to a connected
// livereload client.
func PingFrequency(freq time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.pingFrequency = freq
	}
}

// PongTimeout sets the length of time to wait for a "pong" message from
// the client after a "ping" message is sent.  If the pong is not received
// within the time limit the client is dropped.
func PongTimeout(timeout time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.pongTimeout = timeout
	}
}

// NoLiveReload turns off the /livereload endpoint (static-ish serving).
func NoLiveReload(on bool) func(*Handler) {
	return func(h *Handler) {
		h.noLiveReload = on
	}
}

// NoSearch turns off the /search endpoint.
func NoSearch(on bool) func(*Handler) {
	return func(h *Handler) {
		h.noSearch = on
	}
}

// BasePath makes the handler answer under a URL prefix (for example
// "/docs").  The prefix is stripped before routing; links inside rendered
// pages are not rewritten.
func BasePath(prefix string) func(*Handler) {
	return func(h *Handler) {
		h.basePath = prefix
	}
}
