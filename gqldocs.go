package gqldocs

// gqldocs.go provides the docs type for turning a markdown content tree into
// an HTTP handler, a check report, or a static site

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/gqldocs/gqldocs/internal/check"
	"github.com/gqldocs/gqldocs/internal/config"
	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/handler"
	"github.com/gqldocs/gqldocs/internal/links"
	"github.com/gqldocs/gqldocs/internal/rendercache"
	"github.com/gqldocs/gqldocs/internal/schemadoc"
	"github.com/gqldocs/gqldocs/internal/site"
	"github.com/gqldocs/gqldocs/internal/snippets"
	"github.com/gqldocs/gqldocs/internal/spell"
)

type (
	docs struct {
		contentDir string
		cfg        *config.Config
		schema     []string
		opt        options
	}
)

// New creates a new instance for the given content directory (empty means
// whatever the configuration's contentDir says).  The configuration and
// schema may also be added or replaced later using the SetConfig and
// SetSchema methods.
func New(contentDir string, opts ...Option) docs {
	d := docs{contentDir: contentDir}
	for _, o := range opts {
		o(&d.opt)
	}
	return d
}

// SetConfig adds or replaces the whole configuration, instead of loading it
// from a file.  Callers that build a Config by hand should start from the
// defaults so the server block has sane values.
func (d *docs) SetConfig(cfg Config) {
	d.cfg = &cfg
}

// SetSchema adds or replaces the GraphQL schema files used for reference
// pages and snippet validation, overriding the configuration's list.
func (d *docs) SetSchema(paths ...string) {
	d.schema = paths
}

// GetHandler assembles the site and returns the HTTP handler that serves it.
func (d *docs) GetHandler() (http.Handler, error) {
	cfg, err := d.resolve()
	if err != nil {
		return nil, err
	}
	s, err := d.assemble(context.Background(), cfg, d.opt.includeDrafts, d.opt.liveReload)
	if err != nil {
		return nil, err
	}

	secret := d.opt.previewSecret
	if len(secret) == 0 && cfg.Server.PreviewSecret != "" {
		secret = []byte(cfg.Server.PreviewSecret)
	}

	var hopts []func(*handler.Handler)
	if d.opt.logger != nil {
		hopts = append(hopts, handler.WithLogger(d.opt.logger))
	}
	if len(secret) > 0 {
		hopts = append(hopts, handler.PreviewSecret(secret))
	}
	if d.opt.basePath != "" {
		hopts = append(hopts, handler.BasePath(d.opt.basePath))
	}
	if !d.opt.liveReload {
		hopts = append(hopts, handler.NoLiveReload(true))
	}
	if d.opt.initialTimeout != 0 {
		hopts = append(hopts, handler.InitialTimeout(d.opt.initialTimeout))
	}
	if d.opt.pingFrequency != 0 {
		hopts = append(hopts, handler.PingFrequency(d.opt.pingFrequency))
	}
	if d.opt.pongTimeout != 0 {
		hopts = append(hopts, handler.PongTimeout(d.opt.pongTimeout))
	}
	return handler.New(s, hopts...), nil
}

// GetReport loads the tree and runs every enabled checker over it.  Issues
// found in the content come back inside the Report; the error return is for
// failures of the run itself (unreadable tree, bad schema, cancellation).
func (d *docs) GetReport(ctx context.Context) (*Report, error) {
	cfg, err := d.resolve()
	if err != nil {
		return nil, err
	}
	tree, schema, err := d.loadTree(cfg)
	if err != nil {
		return nil, err
	}

	var spc *spell.Config
	if cfg.Spellcheck.Config != "" {
		if spc, err = spell.LoadConfig(cfg.Spellcheck.Config); err != nil {
			return nil, err
		}
	}
	sp, err := spell.NewChecker(spc)
	if err != nil {
		return nil, err
	}

	snips := snippets.New()
	if schema != nil {
		snips.SetSchema(schema)
	}

	var ext *links.External
	if cfg.Check.ExternalLinks {
		ext = links.NewExternal()
		ext.SetTimeout(time.Duration(cfg.Check.Timeout))
	}

	runner := &check.Runner{Tree: tree, Spell: sp, Snippets: snips, External: ext}
	return runner.Run(ctx)
}

// Build assembles the site and writes it out as static files.  An empty
// outDir means the configuration's build.outDir.
func (d *docs) Build(ctx context.Context, outDir string) error {
	cfg, err := d.resolve()
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = cfg.Build.OutDir
	}
	s, err := d.assemble(ctx, cfg, d.opt.includeDrafts || cfg.Build.IncludeDrafts, false)
	if err != nil {
		return err
	}
	return s.Build(ctx, outDir)
}

// PreviewToken mints a signed token that unlocks draft pages when presented
// to the serve handler (Authorization header, ?preview= query, or cookie).
func PreviewToken(secret []byte, issuer string, ttl time.Duration) (string, error) {
	return handler.PreviewToken(secret, issuer, ttl)
}

// resolve settles which configuration applies: SetConfig wins, then the
// ConfigFile option, then the defaults.
func (d *docs) resolve() (*config.Config, error) {
	if d.cfg != nil {
		return d.cfg, nil
	}
	if d.opt.configFile != "" {
		return config.Load(d.opt.configFile)
	}
	return config.Default(), nil
}

// loadTree reads the content directory, then parses the schema and inserts
// the generated reference pages (where no authored page owns the route).
// The parsed schema comes back too so snippet validation can use it.
func (d *docs) loadTree(cfg *config.Config) (*content.Tree, *ast.Schema, error) {
	dir := d.contentDir
	if dir == "" {
		dir = cfg.ContentDir
	}
	tree, err := content.Load(dir)
	if err != nil {
		return nil, nil, err
	}

	files := d.schema
	if len(files) == 0 {
		files = cfg.Schema
	}
	if len(files) == 0 {
		return tree, nil, nil
	}
	schema, err := schemadoc.Load(files...)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Reference.Enabled {
		return tree, schema, nil
	}

	gen, err := schemadoc.Generate(schema, cfg.Reference.Section)
	if err != nil {
		return nil, nil, err
	}
	var pages []*content.Page
	for _, f := range gen {
		page, err := content.FromBytes(f.Path, f.Raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w in generated reference page %s", err, f.Path)
		}
		if tree.Page(page.Route) != nil {
			continue // an authored page owns this route
		}
		pages = append(pages, page)
	}
	if len(pages) > 0 {
		if err := tree.Insert(pages...); err != nil {
			return nil, nil, err
		}
	}
	return tree, schema, nil
}

// assemble renders the whole site.  The render cache, if enabled, is only
// needed while assembling, so it is opened and closed here; a cache that
// fails to open is skipped rather than failing the run.
func (d *docs) assemble(ctx context.Context, cfg *config.Config, drafts, liveReload bool) (*site.Site, error) {
	tree, _, err := d.loadTree(cfg)
	if err != nil {
		return nil, err
	}

	opts := site.Options{
		Title:         cfg.Title,
		BaseURL:       cfg.BaseURL,
		IncludeDrafts: drafts,
		LiveReload:    liveReload,
	}
	if d.opt.cacheDir != "" {
		cache, err := rendercache.Open(d.opt.cacheDir)
		if err == nil {
			defer cache.Close()
			opts.Cache = cache
		} else if d.opt.logger != nil {
			d.opt.logger.Warn("render cache unavailable", "dir", d.opt.cacheDir, "error", err)
		}
	}
	return site.Assemble(ctx, tree, opts)
}
