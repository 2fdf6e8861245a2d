package links_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/issue"
	"github.com/gqldocs/gqldocs/internal/links"
	"github.com/gqldocs/gqldocs/internal/markdown"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, text := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// buildChecker loads a tree, renders every page and wires up a Checker the
// way the check runner does.
func buildChecker(t *testing.T, files map[string]string) (*links.Checker, *content.Tree) {
	t.Helper()
	tree, err := content.Load(writeTree(t, files))
	if err != nil {
		t.Fatal(err)
	}
	docs := make(map[string]*markdown.Doc)
	r := markdown.New()
	for _, p := range tree.Pages {
		doc, err := r.Render(p.Body, p.BodyLine)
		if err != nil {
			t.Fatal(err)
		}
		docs[p.Route] = doc
	}
	return links.New(tree, docs), tree
}

var linkFiles = map[string]string{
	"_index.md":           "---\ntitle: Home\n---\nSee [queries](/guides/queries/) and [defaults](/guides/queries/#defaults).\n",
	"guides/_index.md":    "---\ntitle: Guides\n---\nIndex.\n",
	"guides/queries.md":   "---\ntitle: Queries\n---\n## Defaults\n\nSee [mutations](mutations.md) and [bad](/nope/) and [noanchor](/guides/mutations/#zzz).\n\nAlso [self](#defaults) and [selfbad](#missing), plus [old](/guides/changes/) and [draft](/guides/wip/) and [mail](mailto:ask@example.com) and [ext](https://example.com/).\n",
	"guides/mutations.md": "---\ntitle: Mutations\naliases: [/guides/changes/]\n---\nBody.\n",
	"guides/wip.md":       "---\ntitle: WIP\ndraft: true\n---\nSoon.\n",
	"guides/asset.md":     "---\ntitle: Asset\n---\n![logo](/img/logo.svg) and ![missing](/img/nope.png)\n",
	"img/logo.svg":        "<svg/>",
}

func TestCheckPage(t *testing.T) {
	checker, tree := buildChecker(t, linkFiles)
	ctx := context.Background()

	// all of the home page's links resolve
	issues := checker.CheckPage(ctx, tree.Page("/"))
	Assertf(t, len(issues) == 0, "Home: expected 0 issues got %v", issues)

	// queries.md: two broken routes, one bad anchor, one draft warning;
	// .md targets, aliases, fragments, mailto and (disabled) external links
	// produce nothing
	issues = checker.CheckPage(ctx, tree.Page("/guides/queries/"))
	expected := []struct {
		line    int
		sev     issue.Severity
		mention string
	}{
		{6, issue.Error, "/nope/"},
		{6, issue.Error, `anchor "zzz"`},
		{8, issue.Error, `anchor "missing"`},
		{8, issue.Warning, "draft"},
	}
	Assertf(t, len(issues) == len(expected), "Queries: expected %d issues got %d (%v)",
		len(expected), len(issues), issues)
	for i, exp := range expected {
		if i >= len(issues) {
			break
		}
		got := issues[i]
		Assertf(t, got.Line == exp.line && got.Severity == exp.sev && strings.Contains(got.Message, exp.mention),
			"Issue %d: expected line %d sev %v mentioning %q, got %+v", i, exp.line, exp.sev, exp.mention, got)
	}

	// assets resolve by exact route; anything else with an extension is broken
	issues = checker.CheckPage(ctx, tree.Page("/guides/asset/"))
	Assertf(t, len(issues) == 1, "Asset: expected 1 issue got %v", issues)
	if len(issues) == 1 {
		Assertf(t, strings.Contains(issues[0].Message, "/img/nope.png"), "Asset issue: got %+v", issues[0])
	}
}

func TestCheckPageFragmentOnSamePage(t *testing.T) {
	checker, tree := buildChecker(t, map[string]string{
		"a.md": "---\ntitle: Guide\n---\n## Setup\n\nJump to [setup](#setup).\n",
	})
	issues := checker.CheckPage(context.Background(), tree.Page("/a/"))
	Assertf(t, len(issues) == 0, "expected 0 issues got %v", issues)
}

func TestExternalProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/headless":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	e := links.NewExternal()
	ctx := context.Background()

	Assertf(t, e.Check(ctx, srv.URL+"/ok") == nil, "ok: expected nil")
	Assertf(t, e.Check(ctx, srv.URL+"/headless") == nil, "headless: HEAD 405 should fall back to GET")
	err := e.Check(ctx, srv.URL+"/gone")
	Assertf(t, err != nil && strings.Contains(err.Error(), "404"), "gone: expected 404 error got %v", err)
	// the result is remembered per URL, not re-probed
	err2 := e.Check(ctx, srv.URL+"/gone")
	Assertf(t, err2 != nil && err2.Error() == err.Error(), "cache: expected same error got %v", err2)
}

func TestCheckPageExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	checker, tree := buildChecker(t, map[string]string{
		"x.md": fmt.Sprintf("---\ntitle: Guide\n---\n[a](%s/ok) and [b](%s/gone)\n", srv.URL, srv.URL),
	})
	checker.CheckExternal(links.NewExternal())

	issues := checker.CheckPage(context.Background(), tree.Page("/x/"))
	Assertf(t, len(issues) == 1, "expected 1 issue got %v", issues)
	if len(issues) == 1 {
		Assertf(t, issues[0].Severity == issue.Warning && strings.Contains(issues[0].Message, "status 404"),
			"issue: got %+v", issues[0])
	}
}

func Assertf(t *testing.T, succeeded bool, format string, args ...interface{}) {
	const (
		succeed = "✓" // tick
		failed  = "X"      //"✗" // cross
	)

	t.Helper()
	if !succeeded {
		t.Errorf("%s\t"+format, append([]interface{}{failed}, args...)...)
	} else {
		t.Logf("%s\t"+format, append([]interface{}{succeed}, args...)...)
	}
}
