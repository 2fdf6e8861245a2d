// build.go writes an assembled site to disk as plain static files

package site

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Build writes the published pages, assets, alias redirects, manifest and
// search index under outDir.  Page rendering runs in parallel; the layout
// is the same one the dev server uses, minus the livereload script when the
// site was assembled without it.
func (s *Site) Build(ctx context.Context, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w creating output dir %q", err, outDir)
	}

	published := make(map[string]bool, len(s.published))
	for _, p := range s.published {
		published[p.Route] = true
	}

	workers := runtime.GOMAXPROCS(0)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, page := range s.published {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := s.RenderPage(&buf, page); err != nil {
				return err
			}
			return writeFile(outDir, routeFile(page.Route), buf.Bytes())
		})
	}

	for _, a := range s.Tree.Assets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return copyAsset(a.Disk, filepath.Join(outDir, filepath.FromSlash(a.Path)))
		})
	}

	for alias, target := range s.Tree.Aliases {
		if !published[target] {
			continue
		}
		g.Go(func() error {
			return writeFile(outDir, routeFile(alias), redirectPage(target))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	manifest, err := json.MarshalIndent(s.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("%w marshalling the manifest", err)
	}
	if err := writeFile(outDir, "manifest.json", manifest); err != nil {
		return err
	}

	var index bytes.Buffer
	if err := s.Index.WriteJSON(&index); err != nil {
		return fmt.Errorf("%w writing the search index", err)
	}
	if err := writeFile(outDir, "search-index.json", index.Bytes()); err != nil {
		return err
	}

	var notFound bytes.Buffer
	if err := s.RenderNotFound(&notFound); err != nil {
		return err
	}
	return writeFile(outDir, "404.html", notFound.Bytes())
}

// routeFile maps a route to its file under the output dir: directory routes
// get an index.html, aliases that name a file keep their name.
func routeFile(route string) string {
	rel := strings.TrimPrefix(route, "/")
	if route == "/" || strings.HasSuffix(route, "/") {
		rel += "index.html"
	}
	return filepath.FromSlash(rel)
}

func writeFile(outDir, rel string, data []byte) error {
	full := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w creating %q", err, filepath.Dir(full))
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("%w writing %q", err, rel)
	}
	return nil
}

func copyAsset(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w creating %q", err, filepath.Dir(dst))
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w opening asset %q", err, src)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w creating asset %q", err, dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("%w copying asset %q", err, dst)
	}
	return out.Close()
}

// redirectPage is the stub written at an alias route.  Static hosts follow
// the meta refresh; crawlers get the canonical link.
func redirectPage(target string) []byte {
	esc := template.HTMLEscapeString(target)
	var b bytes.Buffer
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="0; url=%s">
<link rel="canonical" href="%s">
<title>Redirecting</title>
</head>
<body>
<p>This page has moved to <a href="%s">%s</a>.</p>
</body>
</html>
`, esc, esc, esc, esc)
	return b.Bytes()
}
