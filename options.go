package gqldocs

// options.go handles options that can be used to control how the site is
// assembled and served.  Most are just passed on to the internal packages.
// (See internal/handler/options.go for details on how closures are used to
// handle options.)

import (
	"time"

	"log/slog"
)

// Option adjusts how New builds the site.
type Option func(*options)

type options struct {
	configFile    string
	logger        *slog.Logger
	cacheDir      string
	includeDrafts bool
	liveReload    bool
	previewSecret []byte
	basePath      string

	// livereload websocket tuning, passed on to the handler
	initialTimeout, pingFrequency, pongTimeout time.Duration
}

// ConfigFile names the docs.yaml to load.  Without it (and without
// SetConfig) the defaults apply, so a conventional tree needs no file at
// all.  The file is read when the site is assembled, not here, so a broken
// file surfaces as an error from GetHandler, GetReport or Build.
func ConfigFile(path string) Option {
	return func(opt *options) {
		opt.configFile = path
	}
}

// WithLogger sets the logger used while assembling and serving.  Without it
// the packages fall back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(opt *options) {
		opt.logger = logger
	}
}

// CacheDir enables the on-disk render cache in the given directory.  The
// cache only saves time on reassembly; losing it costs nothing but a slower
// next run.
func CacheDir(dir string) Option {
	return func(opt *options) {
		opt.cacheDir = dir
	}
}

// IncludeDrafts puts draft pages in the nav, search index and manifest as
// if they were published.  Meant for local preview, not production.
func IncludeDrafts(on bool) Option {
	return func(opt *options) {
		opt.includeDrafts = on
	}
}

// LiveReload turns on the /livereload websocket endpoint and injects its
// client script into rendered pages.  Off by default; the serve command
// turns it on.
func LiveReload(on bool) Option {
	return func(opt *options) {
		opt.liveReload = on
	}
}

// PreviewSecret sets the HMAC key for draft preview tokens.  It overrides
// the configuration's previewSecret; with neither set, draft pages are
// simply not served.
func PreviewSecret(secret []byte) Option {
	return func(opt *options) {
		opt.previewSecret = secret
	}
}

// BasePath serves the site under a URL prefix such as "/docs".  The prefix
// is stripped before routing and added back on redirects.
func BasePath(prefix string) Option {
	return func(opt *options) {
		opt.basePath = prefix
	}
}

// InitialTimeout sets the length of time to wait from when the livereload
// websocket is opened until the "hello" message is received.  If the client
// says nothing within the limit the connection is closed.
func InitialTimeout(timeout time.Duration) Option {
	return func(opt *options) {
		opt.initialTimeout = timeout
	}
}

// PingFrequency says how often to ping an idle livereload client to check
// it is still there.
func PingFrequency(freq time.Duration) Option {
	return func(opt *options) {
		opt.pingFrequency = freq
	}
}

// PongTimeout sets the length of time to wait for the pong after a ping.
// A client that does not answer within the limit is dropped.
func PongTimeout(timeout time.Duration) Option {
	return func(opt *options) {
		opt.pongTimeout = timeout
	}
}
