// Package handler serves an assembled documentation site over HTTP: pages
// with ETag revalidation, alias redirects, static assets, JSON search, the
// page manifest, draft previews behind a signed token, and the livereload
// websocket used in serve mode.  The site it serves can be swapped
// atomically while requests are in flight, which is how rebuilds appear
// without a restart.
package handler

// handler.go implements the handler and its ServeHTTP routing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/gqldocs/gqldocs/internal/metrics"
	"github.com/gqldocs/gqldocs/internal/search"
	"github.com/gqldocs/gqldocs/internal/site"
)

const previewCookie = "gqldocs_preview"

type (
	// Handler routes documentation requests.  All fields are fixed after
	// New except the served site, which Swap replaces atomically.
	Handler struct {
		current atomic.Pointer[site.Site]

		logger  *slog.Logger
		metrics *metrics.Metrics
		hub     *wsHub

		previewSecret []byte
		basePath      string

		initialTimeout time.Duration
		pingFrequency  time.Duration
		pongTimeout    time.Duration

		noLiveReload bool
		noSearch     bool
	}

	// searchResponse is the JSON body of a /search reply.
	searchResponse struct {
		Query   string          `json:"query"`
		Results []search.Result `json:"results"`
	}
)

// New returns a handler serving the given site.  Options are applied in
// order; see options.go.
func New(s *site.Site, options ...func(*Handler)) *Handler {
	h := &Handler{}
	h.current.Store(s)
	h.SetOptions(options...)
	h.hub = newHub(h.logger, h.metrics)
	return h
}

// Site returns the site currently being served.
func (h *Handler) Site() *site.Site { return h.current.Load() }

// Swap replaces the served site.  Requests already running keep the site
// they started with.
func (h *Handler) Swap(s *site.Site) { h.current.Store(s) }

// Reload tells every connected livereload client to refresh, naming the
// source paths that changed.
func (h *Handler) Reload(paths []string) { h.hub.broadcast(paths) }

// Close disconnects all livereload clients.  The handler still serves
// pages afterwards; Close is for shutdown ordering.
func (h *Handler) Close() error {
	h.hub.closeAll()
	return nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := r.URL.Path
	if h.basePath != "" {
		rest, ok := strings.CutPrefix(p, h.basePath)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if rest == "" {
			http.Redirect(w, r, h.basePath+"/", http.StatusMovedPermanently)
			return
		}
		if !strings.HasPrefix(rest, "/") {
			http.NotFound(w, r)
			return
		}
		p = rest
	}

	switch p {
	case "/livereload":
		if h.noLiveReload {
			http.NotFound(w, r)
			return
		}
		h.serveWS(w, r)
	case "/search":
		if h.noSearch {
			http.NotFound(w, r)
			return
		}
		h.serveSearch(w, r)
	case "/api/manifest":
		h.serveManifest(w)
	default:
		h.servePage(w, r, p)
	}
}

// servePage resolves a URL path to a page, asset, alias or the 404 page.
func (h *Handler) servePage(w http.ResponseWriter, r *http.Request, route string) {
	s := h.current.Load()

	page := s.Page(route)
	if page == nil {
		if target, ok := s.Tree.Aliases[route]; ok {
			h.redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		// A page route missing only its trailing slash gets redirected to
		// the canonical form.
		if !strings.HasSuffix(route, "/") && s.Page(route+"/") != nil {
			h.redirect(w, r, route+"/", http.StatusMovedPermanently)
			return
		}
		if a := s.Asset(route); a != nil {
			http.ServeFile(w, r, a.Disk)
			return
		}
		h.notFound(w)
		return
	}

	if page.Meta.Draft && !h.previewAllowed(w, r) {
		h.notFound(w)
		return
	}

	// The page hash is the ETag, so an unchanged page costs one header
	// exchange after the first visit.
	w.Header().Set("ETag", `"`+page.Sum+`"`)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, page.Sum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	var buf bytes.Buffer
	if err := s.RenderPage(&buf, page); err != nil {
		h.logger.Error("page render failed", "route", page.Route, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// redirect keeps the query string (a preview token may ride on it) and
// re-adds the base path.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, route string, code int) {
	target := h.basePath + route
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, code)
}

func (h *Handler) serveSearch(w http.ResponseWriter, r *http.Request) {
	s := h.current.Load()
	q := r.URL.Query().Get("q")

	limit := search.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	resp := searchResponse{Query: q, Results: s.Index.Search(q, limit)}
	if resp.Results == nil {
		resp.Results = []search.Result{}
	}
	h.metrics.SearchServed()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("search encode failed", "query", q, "error", err)
	}
}

func (h *Handler) serveManifest(w http.ResponseWriter) {
	s := h.current.Load()
	buf, err := json.MarshalIndent(s.Manifest, "", "  ")
	if err != nil {
		h.logger.Error("manifest encode failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(buf, '\n'))
}

// notFound sends the rendered 404 page.
func (h *Handler) notFound(w http.ResponseWriter) {
	s := h.current.Load()
	var buf bytes.Buffer
	if err := s.RenderNotFound(&buf); err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(buf.Bytes())
}

// previewAllowed reports whether the request carries a valid preview token.
// Tokens arrive as a Bearer header, a preview query parameter (which is
// then remembered in a cookie so plain links keep working), or the cookie
// itself.  A bad token never errors - the draft just stays hidden.
func (h *Handler) previewAllowed(w http.ResponseWriter, r *http.Request) bool {
	if len(h.previewSecret) == 0 {
		return false
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if h.validPreview(auth[len("Bearer "):]) {
			return true
		}
	}

	if tok := r.URL.Query().Get("preview"); tok != "" && h.validPreview(tok) {
		http.SetCookie(w, &http.Cookie{
			Name:     previewCookie,
			Value:    tok,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		return true
	}

	if c, err := r.Cookie(previewCookie); err == nil && h.validPreview(c.Value) {
		return true
	}
	return false
}

// validPreview checks the signature, expiry and scope of a token.
func (h *Handler) validPreview(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return h.previewSecret, nil
	})
	if err != nil || !token.Valid {
		return false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return ok && claims["scope"] == "preview"
}

// PreviewToken mints a token that previewAllowed will accept, for tools
// that hand out draft access.
func PreviewToken(secret []byte, issuer string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   issuer,
		"exp":   time.Now().Add(ttl).Unix(),
		"scope": "preview",
	})
	return token.SignedString(secret)
}
