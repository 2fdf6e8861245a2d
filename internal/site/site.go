// Package site assembles a loaded content tree into one servable, buildable
// site: every page rendered, navigation and breadcrumbs computed, the search
// index built and the manifest laid out in nav order.  The dev server holds
// a *Site and swaps it wholesale on rebuild; `gqldocs build` writes the same
// Site to disk.
package site

// site.go renders the tree and wires nav, search and manifest together

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/dolmen-go/jsonmap"
	"golang.org/x/sync/errgroup"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/markdown"
	"github.com/gqldocs/gqldocs/internal/rendercache"
	"github.com/gqldocs/gqldocs/internal/schemadoc"
	"github.com/gqldocs/gqldocs/internal/search"
)

//go:embed layout.html.tmpl
var layoutSrc string

var layout = template.Must(template.New("site").Funcs(template.FuncMap{
	"navctx": func(items []NavItem, current string) navCtx {
		return navCtx{Items: items, Current: current}
	},
	"isLast": func(i int, crumbs []Crumb) bool { return i == len(crumbs)-1 },
}).Parse(layoutSrc))

type (
	// NavItem is one sidebar entry.  A section that has no index page gets
	// an empty Route and renders as a plain label.
	NavItem struct {
		Title    string
		Route    string
		Children []NavItem
	}

	// Crumb is one breadcrumb step.
	Crumb struct {
		Title string
		Route string
	}

	// Site is one assembled build of the documentation.  It is read-only
	// once Assemble returns and safe to share between requests.
	Site struct {
		Title      string
		BaseURL    string
		Tree       *content.Tree
		Docs       map[string]*markdown.Doc // by route, drafts included
		Nav        []NavItem
		Index      *search.Index
		Manifest   jsonmap.Ordered
		LiveReload bool

		published []*content.Page
		assets    map[string]*content.Asset
	}

	// Options configure Assemble.  The zero value works: site titled after
	// the home page, no cache, no reference pages, drafts excluded.
	Options struct {
		Title         string
		BaseURL       string
		IncludeDrafts bool
		LiveReload    bool
		Cache         *rendercache.Cache
		Reference     []schemadoc.File
		Workers       int
	}
)

// Assemble renders every page of the tree (drafts included, so previews can
// be served) and computes the published view: nav, search index and manifest
// without drafts unless IncludeDrafts is set.  Reference files are inserted
// into the tree first; an authored page that already owns a route wins over
// the generated one.
func Assemble(ctx context.Context, tree *content.Tree, opts Options) (*Site, error) {
	var gen []*content.Page
	for _, f := range opts.Reference {
		page, err := content.FromBytes(f.Path, f.Raw)
		if err != nil {
			return nil, err
		}
		if tree.Page(page.Route) != nil {
			continue
		}
		gen = append(gen, page)
	}
	if len(gen) > 0 {
		if err := tree.Insert(gen...); err != nil {
			return nil, err
		}
	}

	s := &Site{
		Title:      opts.Title,
		BaseURL:    opts.BaseURL,
		Tree:       tree,
		Docs:       make(map[string]*markdown.Doc, len(tree.Pages)),
		LiveReload: opts.LiveReload,
		assets:     make(map[string]*content.Asset, len(tree.Assets)),
	}
	if s.Title == "" {
		if tree.Root.Index != nil && tree.Root.Index.Meta.Title != "" {
			s.Title = tree.Root.Index.Meta.Title
		} else {
			s.Title = "Documentation"
		}
	}
	for i := range tree.Assets {
		s.assets[tree.Assets[i].Route] = &tree.Assets[i]
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rend := markdown.New()
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, page := range tree.Pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := opts.Cache.Get(page.Sum)
			if err != nil {
				doc, err = rend.Render(page.Body, page.BodyLine)
				if err != nil {
					return fmt.Errorf("%w rendering %s", err, page.Path)
				}
				_ = opts.Cache.Put(page.Sum, doc) // a failed write just costs a re-render
			}
			mu.Lock()
			s.Docs[page.Route] = doc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, page := range tree.Pages {
		if page.Meta.Draft && !opts.IncludeDrafts {
			continue
		}
		s.published = append(s.published, page)
	}
	s.Nav = navFor(tree.Root, opts.IncludeDrafts)
	s.Index = search.Build(s.published, s.Docs)
	s.Manifest = manifestFor(s.published)
	return s, nil
}

// Page returns the page for a canonical route, drafts included; callers
// that care about draft visibility check Meta.Draft themselves.
func (s *Site) Page(route string) *content.Page { return s.Tree.Page(route) }

// Asset returns the asset served at a URL path, or nil.
func (s *Site) Asset(route string) *content.Asset { return s.assets[route] }

// Published lists the pages included in builds, search and the manifest,
// in nav order.
func (s *Site) Published() []*content.Page { return s.published }

func navInclude(p *content.Page, drafts bool) bool {
	return p != nil && (!p.Meta.Draft || drafts)
}

func navFor(root *content.Section, drafts bool) []NavItem {
	var items []NavItem
	if navInclude(root.Index, drafts) {
		items = append(items, NavItem{Title: root.Index.Meta.NavTitle(), Route: "/"})
	}
	for _, p := range root.Pages {
		if navInclude(p, drafts) {
			items = append(items, NavItem{Title: p.Meta.NavTitle(), Route: p.Route})
		}
	}
	for _, sub := range root.Subs {
		if item, ok := sectionNav(sub, drafts); ok {
			items = append(items, item)
		}
	}
	return items
}

// sectionNav flattens a section to one nav item: the section links to its
// index page and its pages and subsections become children.
func sectionNav(sec *content.Section, drafts bool) (NavItem, bool) {
	item := NavItem{Title: sec.Title()}
	if navInclude(sec.Index, drafts) {
		item.Route = sec.Route
	}
	for _, p := range sec.Pages {
		if navInclude(p, drafts) {
			item.Children = append(item.Children, NavItem{Title: p.Meta.NavTitle(), Route: p.Route})
		}
	}
	for _, sub := range sec.Subs {
		if child, ok := sectionNav(sub, drafts); ok {
			item.Children = append(item.Children, child)
		}
	}
	return item, item.Route != "" || len(item.Children) > 0
}

type manifestEntry struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	Sum    string `json:"sum"`
}

// manifestFor lists the published pages route by route, in nav order, which
// jsonmap keeps through marshalling.
func manifestFor(pages []*content.Page) jsonmap.Ordered {
	m := jsonmap.Ordered{
		Data:  make(map[string]interface{}, len(pages)),
		Order: make([]string, 0, len(pages)),
	}
	for _, p := range pages {
		m.Data[p.Route] = manifestEntry{Title: p.Meta.Title, Source: p.Path, Sum: p.Sum}
		m.Order = append(m.Order, p.Route)
	}
	return m
}

// renderData is what the layout template sees.
type renderData struct {
	Site        *Site
	Page        *content.Page
	Content     template.HTML
	TOC         []markdown.Heading
	Breadcrumbs []Crumb
	Nav         navCtx
	LiveReload  bool
}

type navCtx struct {
	Items   []NavItem
	Current string
}

// RenderPage executes the layout for one page.
func (s *Site) RenderPage(w io.Writer, page *content.Page) error {
	doc := s.Docs[page.Route]
	if doc == nil {
		return fmt.Errorf("no rendered doc for %s", page.Route)
	}
	data := renderData{
		Site:        s,
		Page:        page,
		Content:     template.HTML(doc.HTML),
		TOC:         toc(doc.Headings),
		Breadcrumbs: s.breadcrumbs(page),
		Nav:         navCtx{Items: s.Nav, Current: page.Route},
		LiveReload:  s.LiveReload,
	}
	if err := layout.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("%w rendering layout for %s", err, page.Route)
	}
	return nil
}

const notFoundHTML = `<h1>Page not found</h1>
<p>The page you asked for does not exist. Try the sidebar, the search box, or head <a href="/">home</a>.</p>`

// RenderNotFound writes the 404 page through the same layout, so even the
// error page carries the site's navigation.
func (s *Site) RenderNotFound(w io.Writer) error {
	page := &content.Page{Meta: content.Meta{Title: "Page not found"}}
	data := renderData{
		Site:       s,
		Page:       page,
		Content:    template.HTML(notFoundHTML),
		Nav:        navCtx{Items: s.Nav},
		LiveReload: s.LiveReload,
	}
	if err := layout.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("%w rendering the 404 page", err)
	}
	return nil
}

// toc keeps the heading levels worth showing in the side rail.
func toc(hs []markdown.Heading) []markdown.Heading {
	var out []markdown.Heading
	for _, h := range hs {
		if h.Level == 2 || h.Level == 3 {
			out = append(out, h)
		}
	}
	return out
}

func (s *Site) homeTitle() string {
	if s.Tree.Root.Index != nil {
		return s.Tree.Root.Index.Meta.NavTitle()
	}
	return s.Title
}

// breadcrumbs walks the route from the root down to the page.  Sections
// without an index page still appear, titled after their directory.
func (s *Site) breadcrumbs(page *content.Page) []Crumb {
	crumbs := []Crumb{{Title: s.homeTitle(), Route: "/"}}
	if page.Route == "/" {
		return crumbs
	}
	route := "/"
	for _, part := range strings.Split(strings.Trim(page.Route, "/"), "/") {
		route += part + "/"
		title := titleize(part)
		if p := s.Tree.Page(route); p != nil {
			title = p.Meta.NavTitle()
		}
		crumbs = append(crumbs, Crumb{Title: title, Route: route})
	}
	return crumbs
}

func titleize(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
