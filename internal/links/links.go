// Package links checks that every link in the documentation points at
// something that exists: a page route, a page anchor, an asset, or (when
// enabled) a live external URL.
package links

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/issue"
	"github.com/gqldocs/gqldocs/internal/markdown"
)

// Checker resolves the links of one tree.  Docs supplies the per-route
// anchors and link lists the renderer extracted.
type Checker struct {
	tree     *content.Tree
	docs     map[string]*markdown.Doc
	byPath   map[string]*content.Page
	assets   map[string]struct{}
	external *External // nil means external links are not checked
}

// New builds a Checker over a loaded tree and its rendered docs.
func New(tree *content.Tree, docs map[string]*markdown.Doc) *Checker {
	c := &Checker{
		tree:   tree,
		docs:   docs,
		byPath: make(map[string]*content.Page, len(tree.Pages)),
		assets: make(map[string]struct{}, len(tree.Assets)),
	}
	for _, p := range tree.Pages {
		c.byPath[p.Path] = p
	}
	for _, a := range tree.Assets {
		c.assets[a.Route] = struct{}{}
	}
	return c
}

// CheckExternal turns on live checking of http/https links.
func (c *Checker) CheckExternal(e *External) { c.external = e }

// CheckPage checks every link the renderer found in the page.
func (c *Checker) CheckPage(ctx context.Context, page *content.Page) []issue.Issue {
	doc := c.docs[page.Route]
	if doc == nil {
		return nil
	}
	var issues []issue.Issue
	report := func(l markdown.Link, sev issue.Severity, msg string) {
		issues = append(issues, issue.Issue{
			File: page.Path, Line: l.Line,
			Kind: issue.KindLink, Severity: sev, Message: msg,
		})
	}

	for _, l := range doc.Links {
		if l.Target == "" {
			report(l, issue.Warning, "empty link")
			continue
		}
		u, err := url.Parse(l.Target)
		if err != nil {
			report(l, issue.Error, fmt.Sprintf("invalid link %q", l.Target))
			continue
		}

		switch {
		case u.Scheme == "http" || u.Scheme == "https" || (u.Scheme == "" && u.Host != ""):
			if c.external == nil {
				continue
			}
			if err := c.external.Check(ctx, l.Target); err != nil {
				report(l, issue.Warning, fmt.Sprintf("external link %q: %v", l.Target, err))
			}
		case u.Scheme != "":
			// mailto:, tel:, and friends are not ours to verify
		case u.Path == "" && u.Fragment != "":
			if _, ok := doc.Anchors[u.Fragment]; !ok {
				report(l, issue.Error, fmt.Sprintf("no heading with anchor %q on this page", u.Fragment))
			}
		case u.Path == "":
			report(l, issue.Warning, "empty link")
		default:
			c.checkInternal(page, l, u, report)
		}
	}
	return issues
}

// checkInternal resolves a page-or-asset link and verifies what it hits.
func (c *Checker) checkInternal(page *content.Page, l markdown.Link,
	u *url.URL, report func(markdown.Link, issue.Severity, string)) {

	// *.md targets are written against the source tree, route them the way
	// the loader did
	if strings.HasSuffix(u.Path, ".md") {
		rel := u.Path
		if path.IsAbs(rel) {
			rel = strings.TrimPrefix(path.Clean(rel), "/")
		} else {
			rel = path.Join(path.Dir(page.Path), rel)
		}
		target, ok := c.byPath[rel]
		if !ok {
			report(l, issue.Error, fmt.Sprintf("broken link %q: no such page file", l.Target))
			return
		}
		c.checkResolved(target.Route, l, u, report)
		return
	}

	route := u.Path
	if !path.IsAbs(route) {
		route = path.Join(page.Route, route)
	} else {
		route = path.Clean(route)
	}
	// path.Join/Clean strip the trailing slash routes carry
	if path.Ext(route) == "" && !strings.HasSuffix(route, "/") {
		route += "/"
	}
	c.checkResolved(route, l, u, report)
}

// checkResolved inspects whatever the resolved route points at.
func (c *Checker) checkResolved(route string, l markdown.Link, u *url.URL,
	report func(markdown.Link, issue.Severity, string)) {

	if _, ok := c.assets[route]; ok {
		return
	}
	target := c.tree.Page(route)
	if target == nil {
		if canonical, ok := c.tree.Aliases[route]; ok {
			target = c.tree.Page(canonical)
		}
	}
	if target == nil {
		report(l, issue.Error, fmt.Sprintf("broken link %q resolves to %s which does not exist", l.Target, route))
		return
	}
	if target.Meta.Draft {
		report(l, issue.Warning, fmt.Sprintf("link %q points at a draft page", l.Target))
	}
	if u.Fragment != "" {
		targetDoc := c.docs[target.Route]
		if targetDoc == nil {
			return // nothing rendered to compare against
		}
		if _, ok := targetDoc.Anchors[u.Fragment]; !ok {
			report(l, issue.Error, fmt.Sprintf("link %q: page %s has no anchor %q", l.Target, target.Route, u.Fragment))
		}
	}
}
