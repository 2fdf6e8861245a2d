package links

// external.go probes http/https links.  Off by default: network checks make
// runs nondeterministic, so the caller opts in.  Each host gets a politeness
// rate limit, and every URL is probed at most once per run however many
// pages link to it.

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	clientTimeout         = 30 * time.Second
	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 15 * time.Second

	// defaults for the per-host limiter
	hostRate  = rate.Limit(1)
	hostBurst = 3
)

// External probes external links.  Safe for concurrent use.
type External struct {
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	seen     map[string]error
}

// NewExternal returns a probe with sensible timeouts at every network stage,
// so one dead host cannot stall a whole check run.
func NewExternal() *External {
	return &External{
		client: &http.Client{
			Timeout: clientTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   dialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   tlsHandshakeTimeout,
				ResponseHeaderTimeout: responseHeaderTimeout,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		limiters: make(map[string]*rate.Limiter),
		seen:     make(map[string]error),
	}
}

// SetTimeout caps how long one probe may take end to end.  Call before the
// first Check; values of zero or less keep the default.
func (e *External) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		e.client.Timeout = timeout
	}
}

// Check probes one URL.  A nil error means the link looked alive.
func (e *External) Check(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w parsing URL", err)
	}
	if u.Scheme == "" {
		u.Scheme = "https" // protocol-relative //host/path links
		raw = u.String()
	}

	e.mu.Lock()
	if res, done := e.seen[raw]; done {
		e.mu.Unlock()
		return res
	}
	lim := e.limiters[u.Host]
	if lim == nil {
		lim = rate.NewLimiter(hostRate, hostBurst)
		e.limiters[u.Host] = lim
	}
	e.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}
	res := e.probe(ctx, raw)

	e.mu.Lock()
	e.seen[raw] = res
	e.mu.Unlock()
	return res
}

// probe tries HEAD first and falls back to GET, since plenty of servers
// reject or mishandle HEAD.
func (e *External) probe(ctx context.Context, raw string) error {
	status, err := e.request(ctx, http.MethodHead, raw)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = e.request(ctx, http.MethodGet, raw)
	}
	if err != nil {
		status, err = e.request(ctx, http.MethodGet, raw)
	}
	if err != nil {
		return err
	}
	switch {
	case status >= 200 && status < 400:
		return nil
	case status == 999:
		// some sites answer bots with 999; that still means "exists"
		return nil
	default:
		return fmt.Errorf("status %d", status)
	}
}

func (e *External) request(ctx context.Context, method, raw string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, raw, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "gqldocs-linkcheck/1.0")
	resp, err := e.client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return 0, fmt.Errorf("%s: %v", method, uerr.Err)
		}
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
