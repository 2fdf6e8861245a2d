package main

// serve.go runs the development server: assembled site, file watcher,
// livereload, request middleware and the /healthz and /metrics endpoints,
// all under one graceful lifecycle.

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gqldocs/gqldocs/internal/config"
	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/handler"
	"github.com/gqldocs/gqldocs/internal/metrics"
	"github.com/gqldocs/gqldocs/internal/middleware"
	"github.com/gqldocs/gqldocs/internal/rendercache"
	"github.com/gqldocs/gqldocs/internal/schemadoc"
	"github.com/gqldocs/gqldocs/internal/server"
	"github.com/gqldocs/gqldocs/internal/site"
	"github.com/gqldocs/gqldocs/internal/watch"
)

func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommon(fs)
	port := fs.Int("port", getEnvInt("GQLDOCS_PORT", 0),
		"Port to listen on, overriding the configuration (env: GQLDOCS_PORT)")
	cacheDir := fs.String("cache", getEnv("GQLDOCS_CACHE", ".gqldocs-cache"),
		"Render cache directory, empty to disable (env: GQLDOCS_CACHE)")
	fs.Parse(args)

	cfg, err := config.Load(common.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	common.apply(cfg)
	if *port > 0 {
		cfg.Server.Port = *port
	}
	logger := initLogger(os.Stdout, cfg.Server.LogLevel, cfg.Server.LogFormat)

	m := metrics.New()

	var cache *rendercache.Cache
	if *cacheDir != "" {
		if cache, err = rendercache.Open(*cacheDir); err != nil {
			logger.Warn("render cache unavailable, rendering everything", "dir", *cacheDir, "error", err)
			cache = nil
		}
	}

	s, err := assembleSite(context.Background(), cfg, cache)
	if err != nil {
		logger.Error("cannot assemble the site", "error", err)
		return 1
	}

	hopts := []func(*handler.Handler){handler.WithLogger(logger), handler.WithMetrics(m)}
	if cfg.Server.PreviewSecret != "" {
		hopts = append(hopts, handler.PreviewSecret([]byte(cfg.Server.PreviewSecret)))
	}
	h := handler.New(s, hopts...)

	rebuild := func(paths []string) {
		start := time.Now()
		ns, err := assembleSite(context.Background(), cfg, cache)
		if err != nil {
			logger.Error("rebuild failed, keeping the last good site", "error", err)
			m.RebuildDone("error", time.Since(start))
			return
		}
		h.Swap(ns)
		h.Reload(paths)
		m.RebuildDone("ok", time.Since(start))
		logger.Info("site rebuilt", "pages", len(ns.Published()), "elapsed", time.Since(start))
	}
	w := watch.New(cfg.ContentDir, cfg.Schema, rebuild, logger)
	if err := w.Start(context.Background()); err != nil {
		logger.Error("cannot start the watcher", "error", err)
		return 1
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	// Only document requests count as served pages, not probes and scrapes.
	r.With(m.Middleware).Handle("/*", h)

	srv := server.New(r, cfg.Server, logger)
	srv.OnShutdown("render cache", func(context.Context) error {
		if cache == nil {
			return nil
		}
		return cache.Close()
	})
	srv.OnShutdown("livereload hub", func(context.Context) error { return h.Close() })
	srv.OnShutdown("watcher", func(context.Context) error { return w.Stop() })

	logger.Info("serving docs", "port", cfg.Server.Port, "content", cfg.ContentDir, "pages", len(s.Published()))
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// assembleSite loads the tree, generates reference pages and renders
// everything.  It runs at startup and again on every watch event; the site
// it returns swaps into the handler atomically.
func assembleSite(ctx context.Context, cfg *config.Config, cache *rendercache.Cache) (*site.Site, error) {
	tree, err := content.Load(cfg.ContentDir)
	if err != nil {
		return nil, err
	}

	var ref []schemadoc.File
	if cfg.Reference.Enabled && len(cfg.Schema) > 0 {
		schema, err := schemadoc.Load(cfg.Schema...)
		if err != nil {
			return nil, err
		}
		if ref, err = schemadoc.Generate(schema, cfg.Reference.Section); err != nil {
			return nil, err
		}
	}

	return site.Assemble(ctx, tree, site.Options{
		Title:      cfg.Title,
		BaseURL:    cfg.BaseURL,
		LiveReload: true,
		Cache:      cache,
		Reference:  ref,
	})
}
