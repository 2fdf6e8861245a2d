package gqldocs_test

// End-to-end tests (also see low-level tests in the internal packages)

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gqldocs/gqldocs"
)

const schemaSrc = `
"""The root query type."""
type Query {
  "A post by id."
  post(id: ID!): Post
  posts: [Post!]!
}

type Post {
  id: ID!
  title: String!
}
`

// writeTree lays a small docs project out on disk: four pages (one of them
// a draft) and a schema file next to the content directory.
func writeTree(t *testing.T) (contentDir, schemaFile string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"content/_index.md": "---\ntitle: Example API Docs\n---\n\nWelcome to the example.\n",
		"content/guides/_index.md": "---\ntitle: Guides\nweight: 1\n---\n\nHow to use the API.\n",
		"content/guides/queries.md": "---\ntitle: Queries\nweight: 1\n---\n\n" +
			"Queries fetch posts.\n\n```graphql\n{ posts { id title } }\n```\n",
		"content/roadmap.md": "---\ntitle: Roadmap\ndraft: true\n---\n\nNot yet public.\n",
		"schema.graphql":     schemaSrc,
	}
	for name, src := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "content"), filepath.Join(dir, "schema.graphql")
}

// TestServe performs high-level (end to end) tests of the served site.
// More thorough low-level tests are included in the internal packages
// (content, site, and handler).
func TestServe(t *testing.T) {
	contentDir, _ := writeTree(t)
	server := httptest.NewServer(gqldocs.MustRun(contentDir))
	defer server.Close()

	tests := map[string]struct {
		path     string
		status   int
		contains string // checked against the body when not empty
	}{
		"home":         {path: "/", status: 200, contains: "Example API Docs"},
		"page":         {path: "/guides/queries/", status: 200, contains: "Queries"},
		"manifest":     {path: "/api/manifest", status: 200, contains: `"/guides/queries/"`},
		"search":       {path: "/search?q=queries", status: 200, contains: `"/guides/queries/"`},
		"draft hidden": {path: "/roadmap/", status: 404},
		"missing":      {path: "/nope/", status: 404},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := server.Client().Get(server.URL + test.path)
			if err != nil {
				t.Fatalf("Error GETting %s: %v", test.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			Assertf(t, resp.StatusCode == test.status, "%-12s: expected status %d, got %d", name, test.status, resp.StatusCode)
			Assertf(t, test.contains == "" || strings.Contains(string(body), test.contains),
				"%-12s: expected body to mention %q", name, test.contains)
		})
	}
}

// TestReference checks that a schema turns into served reference pages.
func TestReference(t *testing.T) {
	contentDir, schemaFile := writeTree(t)
	d := gqldocs.New(contentDir)
	d.SetSchema(schemaFile)
	h, err := d.GetHandler()
	if err != nil {
		t.Fatalf("Error building the handler: %v", err)
	}
	server := httptest.NewServer(h)
	defer server.Close()

	tests := map[string]struct {
		path     string
		contains string
	}{
		"section index": {path: "/reference/", contains: "Reference"},
		"objects":       {path: "/reference/objects/", contains: "Post"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			resp, err := server.Client().Get(server.URL + test.path)
			if err != nil {
				t.Fatalf("Error GETting %s: %v", test.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			Assertf(t, resp.StatusCode == 200, "%-12s: expected status 200, got %d", name, resp.StatusCode)
			Assertf(t, strings.Contains(string(body), test.contains), "%-12s: expected body to mention %q", name, test.contains)
		})
	}
}

// TestGetReport runs the checkers over a tree seeded with one problem of
// each kind.
func TestGetReport(t *testing.T) {
	contentDir, schemaFile := writeTree(t)
	broken := "---\ntitle: Broken\n---\n\n" +
		"See [missing](/missing/) for some mispeled prose.\n\n```graphql\n{ posts {\n```\n"
	if err := os.WriteFile(filepath.Join(contentDir, "guides", "broken.md"), []byte(broken), 0o644); err != nil {
		t.Fatal(err)
	}

	d := gqldocs.New(contentDir)
	cfg := gqldocs.DefaultConfig()
	cfg.Reference.Enabled = false // keep the page count to the authored tree
	d.SetConfig(cfg)
	d.SetSchema(schemaFile)

	rep, err := d.GetReport(context.Background())
	if err != nil {
		t.Fatalf("Error running the checks: %v", err)
	}

	kinds := make(map[string]bool)
	inBroken := 0
	for _, is := range rep.Issues {
		kinds[string(is.Kind)] = true
		if is.File == "guides/broken.md" {
			inBroken++
		}
	}

	Assertf(t, rep.Pages == 5, "%-12s: expected 5 pages checked, got %d", "pages", rep.Pages)
	Assertf(t, rep.Failed(), "%-12s: expected the broken link to fail the run", "failed")
	Assertf(t, kinds["link"], "%-12s: expected a link issue in %v", "link", rep.Issues)
	Assertf(t, kinds["spelling"], "%-12s: expected a spelling issue in %v", "spelling", rep.Issues)
	Assertf(t, kinds["snippet"], "%-12s: expected a snippet issue in %v", "snippet", rep.Issues)
	Assertf(t, inBroken >= 3, "%-12s: expected the issues to name guides/broken.md, got %d there", "file", inBroken)
	Assertf(t, rep.Snippets.Checked >= 2, "%-12s: expected both snippets checked, got %d", "snippets", rep.Snippets.Checked)
}

// TestBuild writes the static site and spot-checks what lands on disk.
func TestBuild(t *testing.T) {
	contentDir, _ := writeTree(t)
	outDir := filepath.Join(t.TempDir(), "public")

	d := gqldocs.New(contentDir)
	if err := d.Build(context.Background(), outDir); err != nil {
		t.Fatalf("Error building the site: %v", err)
	}

	for _, name := range []string{
		"index.html", "guides/queries/index.html", "manifest.json", "search-index.json", "404.html",
	} {
		_, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(name)))
		Assertf(t, err == nil, "%-12s: expected %s in the output, got %v", "built", name, err)
	}

	_, err := os.Stat(filepath.Join(outDir, "roadmap", "index.html"))
	Assertf(t, os.IsNotExist(err), "%-12s: expected the draft to stay out of the output", "draft")

	home, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	Assertf(t, err == nil && strings.Contains(string(home), "Example API Docs"),
		"%-12s: expected the home page to carry the site title", "title")
}

// TestConfigFile drives everything from a docs.yaml instead of code.
func TestConfigFile(t *testing.T) {
	contentDir, schemaFile := writeTree(t)
	cfgFile := filepath.Join(filepath.Dir(contentDir), "docs.yaml")
	yaml := "title: Configured Title\n" +
		"contentDir: " + contentDir + "\n" +
		"schema:\n  - " + schemaFile + "\n"
	if err := os.WriteFile(cfgFile, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	d := gqldocs.New("", gqldocs.ConfigFile(cfgFile))
	h, err := d.GetHandler()
	if err != nil {
		t.Fatalf("Error building the handler: %v", err)
	}
	server := httptest.NewServer(h)
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	Assertf(t, strings.Contains(string(body), "Configured Title"), "%-12s: expected the configured title on the home page", "title")

	resp2, err := server.Client().Get(server.URL + "/reference/")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	Assertf(t, resp2.StatusCode == 200, "%-12s: expected reference pages from the configured schema, got %d", "reference", resp2.StatusCode)
}

func TestMustRunPanics(t *testing.T) {
	defer func() {
		Assertf(t, recover() != nil, "%-12s: expected a panic for a missing directory", "panic")
	}()
	gqldocs.MustRun(filepath.Join(t.TempDir(), "nope"))
	t.Error("MustRun returned for a directory that does not exist")
}

// Assertf displays a tick or cross depending on the success of the test (succeeded)
// It also displays a nicely formated message if the test failed, and also displays the message for successful tests if
// all results are displayed (-v testing option) OR any other test run at the same time fails
func Assertf(t *testing.T, succeeded bool, format string, args ...interface{}) {
	const (
		succeed = "✓" // tick
		failed  = "XXXXX"  //"✗" // cross
	)

	t.Helper()
	if !succeeded {
		t.Errorf("%-6s"+format, append([]interface{}{failed}, args...)...)
	} else {
		t.Logf("%-6s"+format, append([]interface{}{succeed}, args...)...)
	}
}
