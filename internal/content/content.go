// Package content loads a documentation tree from disk.  Markdown files with
// front matter become Pages organised into Sections; everything else under
// the content directory is carried along as an asset.  The loader never
// aborts on a bad page - authoring mistakes (missing title, unclosed front
// matter, duplicate routes) are collected as positioned issues so the whole
// tree can be reported on in one pass.
package content

// content.go walks the content directory and builds the Tree

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gqldocs/gqldocs/internal/issue"
)

type (
	// Page is one markdown source file, split and decoded but not rendered.
	Page struct {
		Path     string // slash-separated path relative to the content dir
		Route    string // canonical URL path, always "/.../" form
		Meta     Meta
		Body     []byte
		BodyLine int            // 1-based line (in the file) of the first body line
		KeyLines map[string]int // 1-based line (in the file) of each front-matter key
		Section  string         // route of the owning section
		Sum      string         // hex sha256 of the raw file, used for caching and ETags
		ModTime  time.Time
		IsIndex  bool // true for _index.md section pages

		// Generated marks pages produced by the toolchain (schema
		// reference) rather than written by an author.  They are linked
		// and served like any other page but not spell checked.
		Generated bool
	}

	// Asset is a non-markdown file carried through to the built site.
	Asset struct {
		Path  string // relative to the content dir
		Route string // URL path (no trailing slash - it names a file)
		Disk  string // location on disk to read from
	}

	// Section is a directory of the content tree with its pages in nav order.
	Section struct {
		Name  string
		Route string
		Index *Page // the _index.md page, if the directory has one
		Pages []*Page
		Subs  []*Section
	}

	// Tree is the loaded content directory.
	Tree struct {
		Dir      string
		Root     *Section
		Pages    []*Page // every page (indexes included) in nav order
		ByRoute  map[string]*Page
		Aliases  map[string]string // alias route -> canonical route
		Assets   []Asset
		Problems []issue.Issue

		sections map[string]*Section
	}
)

// Load reads the documentation tree rooted at dir.  It returns an error only
// for real I/O failures; authoring problems end up in Tree.Problems.
func Load(dir string) (*Tree, error) {
	t := &Tree{
		Dir:     dir,
		Root:    &Section{Route: "/"},
		ByRoute: make(map[string]*Page),
		Aliases: make(map[string]string),
	}
	t.sections = map[string]*Section{"/": t.Root}

	var pageFiles []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if p != dir && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.EqualFold(path.Ext(name), ".md") {
			pageFiles = append(pageFiles, rel)
		} else {
			t.Assets = append(t.Assets, Asset{Path: rel, Route: "/" + rel, Disk: p})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w walking content dir %q", err, dir)
	}

	// Path order makes duplicate-route resolution (first file wins) and all
	// reported issues deterministic.
	sort.Strings(pageFiles)
	sort.Slice(t.Assets, func(i, j int) bool { return t.Assets[i].Path < t.Assets[j].Path })

	for _, rel := range pageFiles {
		page, err := loadPage(t, dir, rel)
		if err != nil {
			return nil, err
		}
		if page == nil {
			continue // problem already recorded
		}
		if prev, dup := t.ByRoute[page.Route]; dup {
			t.problem(rel, 0, issue.KindStructure, issue.Error,
				fmt.Sprintf("route %s already used by %s", page.Route, prev.Path))
			continue
		}
		t.ByRoute[page.Route] = page
		t.addAliases(page)
		attach(t, page)
	}

	// Aliases that shadow a real page are author errors, not redirects.
	for alias, target := range t.Aliases {
		if p, clash := t.ByRoute[alias]; clash {
			t.problem(p.Path, 0, issue.KindStructure, issue.Error,
				fmt.Sprintf("page route %s is shadowed by an alias of %s", alias, target))
			delete(t.Aliases, alias)
		}
	}

	sortSection(t.Root)
	t.Pages = flatten(t.Root, nil)
	issue.Sort(t.Problems)
	return t, nil
}

// Page returns the page for a canonical route, or nil.
func (t *Tree) Page(route string) *Page {
	return t.ByRoute[route]
}

// problem records an authoring issue against a file.
func (t *Tree) problem(file string, line int, kind issue.Kind, sev issue.Severity, msg string) {
	t.Problems = append(t.Problems, issue.Issue{File: file, Line: line, Kind: kind, Severity: sev, Message: msg})
}

var yamlLinePattern = regexp.MustCompile(`line (\d+):`)

// yamlLine digs the "line N" out of a yaml.v3 error string so the issue can
// point at the offending front-matter line.  Returns 0 when there is none.
func yamlLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// loadPage reads and decodes a single page file.  A nil page with nil error
// means the file was unusable and a problem has been recorded.
func loadPage(t *Tree, dir, rel string) (*Page, error) {
	full := filepath.Join(dir, filepath.FromSlash(rel))
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("%w reading page %q", err, rel)
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("%w stating page %q", err, rel)
	}

	sum := sha256.Sum256(raw)
	page := &Page{
		Path:    rel,
		Sum:     hex.EncodeToString(sum[:]),
		ModTime: info.ModTime(),
	}

	fm, body, bodyLine, err := Split(raw)
	switch err {
	case nil:
		meta, keyLines, merr := ParseMeta(fm)
		page.Meta = meta
		page.KeyLines = make(map[string]int, len(keyLines))
		for k, l := range keyLines {
			page.KeyLines[k] = l + 1 // front matter starts on file line 2
		}
		if merr != nil {
			line := yamlLine(merr)
			if line > 0 {
				line++ // same offset as the keys
			} else if l, ok := page.KeyLines["title"]; ok {
				line = l
			}
			t.problem(rel, line, issue.KindFrontMatter, issue.Error, merr.Error())
		}
	case ErrNoFrontMatter:
		t.problem(rel, 1, issue.KindFrontMatter, issue.Error, "page has no front matter")
	case ErrUnclosedFrontMatter:
		t.problem(rel, 1, issue.KindFrontMatter, issue.Error, "front matter is never closed")
		return nil, nil
	default:
		return nil, err
	}
	page.Body = body
	page.BodyLine = bodyLine

	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	if page.Meta.Title == "" {
		// keep the page usable; the missing title is already reported above
		// unless the whole front matter was missing
		page.Meta.Title = titleize(base)
	}

	if err := routePage(page, rel); err != nil {
		t.problem(rel, 0, issue.KindStructure, issue.Error, err.Error())
		return nil, nil
	}
	return page, nil
}

// routePage derives Route, Section and IsIndex from the page's file path,
// honouring the front-matter slug override.  Meta must be decoded first.
func routePage(page *Page, rel string) error {
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	dirPart := path.Dir(rel)
	if dirPart == "." {
		dirPart = ""
	}
	if base == "_index" {
		page.IsIndex = true
		page.Route = routeFor(dirPart, "")
	} else {
		element := page.Meta.Slug
		if element == "" {
			element = Slugify(base)
		}
		if element == "" {
			return errors.New("file name produces an empty URL slug")
		}
		page.Route = routeFor(dirPart, element)
	}
	page.Section = routeFor(dirPart, "")
	if page.IsIndex {
		page.Section = routeFor(path.Dir(dirPart), "")
		if dirPart == "" {
			page.Section = "/"
		}
	}
	return nil
}

// FromBytes builds a page from content that never touches disk, the way
// the schema reference generator produces pages.  Unlike Load it is strict:
// any front-matter problem is an error, since generated content has no
// author to report back to.
func FromBytes(rel string, raw []byte) (*Page, error) {
	fm, body, bodyLine, err := Split(raw)
	if err != nil {
		return nil, fmt.Errorf("%w in generated page %s", err, rel)
	}
	meta, keyLines, err := ParseMeta(fm)
	if err != nil {
		return nil, fmt.Errorf("%w in generated page %s", err, rel)
	}

	sum := sha256.Sum256(raw)
	page := &Page{
		Path:      rel,
		Meta:      meta,
		Body:      body,
		BodyLine:  bodyLine,
		KeyLines:  make(map[string]int, len(keyLines)),
		Sum:       hex.EncodeToString(sum[:]),
		Generated: true,
	}
	for k, l := range keyLines {
		page.KeyLines[k] = l + 1
	}
	if err := routePage(page, rel); err != nil {
		return nil, fmt.Errorf("%w in generated page %s", err, rel)
	}
	return page, nil
}

// Insert adds pages to an already loaded tree and reworks the nav order.
// It refuses to displace an authored page: a route clash is an error, not
// a problem entry, because inserted pages are generated and the generator
// should be fixed instead.
func (t *Tree) Insert(pages ...*Page) error {
	for _, page := range pages {
		if prev, dup := t.ByRoute[page.Route]; dup {
			return fmt.Errorf("generated page %s: route %s already used by %s", page.Path, page.Route, prev.Path)
		}
		t.ByRoute[page.Route] = page
		t.addAliases(page)
		attach(t, page)
	}
	sortSection(t.Root)
	t.Pages = flatten(t.Root, nil)
	return nil
}

// addAliases registers the page's aliases, reporting duplicates.
func (t *Tree) addAliases(page *Page) {
	for _, a := range page.Meta.Aliases {
		alias := a
		if !strings.HasSuffix(alias, "/") && path.Ext(alias) == "" {
			alias += "/"
		}
		if prev, dup := t.Aliases[alias]; dup {
			t.problem(page.Path, 0, issue.KindStructure, issue.Error,
				fmt.Sprintf("alias %s already points at %s", alias, prev))
			continue
		}
		t.Aliases[alias] = page.Route
	}
}

// routeFor builds the canonical route for a directory path plus an optional
// final element.  Every element goes through Slugify so links are stable no
// matter how the author cased the file names.
func routeFor(dirPart, element string) string {
	var parts []string
	for _, el := range strings.Split(dirPart, "/") {
		if el == "" || el == "." {
			continue
		}
		s := Slugify(el)
		if s == "" {
			s = el // never produce an empty route element
		}
		parts = append(parts, s)
	}
	if element != "" {
		parts = append(parts, element)
	}
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/") + "/"
}

// attach hangs the page off its section, creating parent sections as needed.
func attach(t *Tree, page *Page) {
	sec := t.sectionFor(page.Section)
	if page.IsIndex {
		if page.Route == "/" {
			t.Root.Index = page
			return
		}
		own := t.sectionFor(page.Route)
		own.Index = page
		return
	}
	sec.Pages = append(sec.Pages, page)
}

// sectionFor finds or creates the section with the given route, linking it to
// its parent (and so on up to the root).
func (t *Tree) sectionFor(route string) *Section {
	if s, ok := t.sections[route]; ok {
		return s
	}
	trimmed := strings.Trim(route, "/")
	parentRoute := "/"
	name := trimmed
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		parentRoute = "/" + trimmed[:i] + "/"
		name = trimmed[i+1:]
	}
	s := &Section{Name: name, Route: route}
	t.sections[route] = s
	parent := t.sectionFor(parentRoute)
	parent.Subs = append(parent.Subs, s)
	return s
}

// maxWeight sorts unweighted entries after weighted ones.
const maxWeight = int(^uint(0) >> 1)

func sortKey(w int) int {
	if w <= 0 {
		return maxWeight
	}
	return w
}

// sortSection orders a section's pages and subsections: weight first (missing
// weight goes last), then sidebar title, then path - stable and total, so
// builds are reproducible.
func sortSection(s *Section) {
	sort.SliceStable(s.Pages, func(i, j int) bool {
		a, b := s.Pages[i], s.Pages[j]
		if ka, kb := sortKey(a.Meta.Weight), sortKey(b.Meta.Weight); ka != kb {
			return ka < kb
		}
		if at, bt := a.Meta.NavTitle(), b.Meta.NavTitle(); at != bt {
			return at < bt
		}
		return a.Path < b.Path
	})
	sort.SliceStable(s.Subs, func(i, j int) bool {
		a, b := s.Subs[i], s.Subs[j]
		if ka, kb := sortKey(sectionWeight(a)), sortKey(sectionWeight(b)); ka != kb {
			return ka < kb
		}
		return a.Name < b.Name
	})
	for _, sub := range s.Subs {
		sortSection(sub)
	}
}

func sectionWeight(s *Section) int {
	if s.Index != nil {
		return s.Index.Meta.Weight
	}
	return 0
}

// Title returns what the sidebar should call this section.
func (s *Section) Title() string {
	if s.Index != nil {
		return s.Index.Meta.NavTitle()
	}
	return titleize(s.Name)
}

// flatten lists pages depth-first in nav order: a section's index page, then
// its pages, then its subsections.
func flatten(s *Section, out []*Page) []*Page {
	if s.Index != nil {
		out = append(out, s.Index)
	}
	out = append(out, s.Pages...)
	for _, sub := range s.Subs {
		out = flatten(sub, out)
	}
	return out
}

// titleize turns "getting-started" or "error_handling" into a readable title.
func titleize(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
