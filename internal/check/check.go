// Package check runs every checker over a loaded content tree and folds the
// results into a single report.  The checkers themselves live in their own
// packages (spell, links, snippets); this one owns the fan-out, the counting
// and the two output formats.
package check

// check.go fans the per-page checkers out over a worker pool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/issue"
	"github.com/gqldocs/gqldocs/internal/links"
	"github.com/gqldocs/gqldocs/internal/markdown"
	"github.com/gqldocs/gqldocs/internal/snippets"
	"github.com/gqldocs/gqldocs/internal/spell"
)

// Runner wires the individual checkers over one content tree.  Nil checkers
// are skipped, so callers enable exactly what they need; link resolution
// always runs because it needs nothing beyond the tree itself.
type Runner struct {
	Tree     *content.Tree
	Spell    *spell.Checker
	Snippets *snippets.Checker
	External *links.External // nil leaves external links unprobed
	Workers  int             // page-level parallelism, 0 means GOMAXPROCS
}

// Report is the outcome of one run: every issue found, sorted the way a
// reader works through a file, plus the counts the exit code and the
// summary line are made from.
type Report struct {
	Issues   []issue.Issue
	Pages    int
	Snippets snippets.Stats
	ByKind   map[issue.Kind]int
	Errors   int
	Warnings int
}

// Run renders every page once, builds the link checker over the rendered
// docs, and then fans the per-page checks out.  It returns an error only for
// real failures (a body that cannot be rendered, a cancelled context); what
// the checkers find in the content comes back inside the Report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rend := markdown.New()

	var mu sync.Mutex
	docs := make(map[string]*markdown.Doc, len(r.Tree.Pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, page := range r.Tree.Pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := rend.Render(page.Body, page.BodyLine)
			if err != nil {
				return fmt.Errorf("%w rendering %s", err, page.Path)
			}
			mu.Lock()
			docs[page.Route] = doc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lc := links.New(r.Tree, docs)
	lc.CheckExternal(r.External)

	rep := &Report{Pages: len(r.Tree.Pages), ByKind: make(map[issue.Kind]int)}
	all := append([]issue.Issue(nil), r.Tree.Problems...)

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, page := range r.Tree.Pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var found []issue.Issue
			if r.Spell != nil && !page.Generated {
				found = append(found, r.Spell.CheckPage(page)...)
			}
			found = append(found, lc.CheckPage(gctx, page)...)
			var stats snippets.Stats
			if r.Snippets != nil {
				si, st := r.Snippets.CheckPage(page, docs[page.Route])
				found = append(found, si...)
				stats = st
			}
			mu.Lock()
			all = append(all, found...)
			rep.Snippets.Checked += stats.Checked
			rep.Snippets.Skipped += stats.Skipped
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issue.Sort(all)
	rep.Issues = all
	for _, is := range all {
		rep.ByKind[is.Kind]++
		if is.Severity == issue.Error {
			rep.Errors++
		} else {
			rep.Warnings++
		}
	}
	return rep, nil
}

// Failed reports whether the run found any error-severity issue.  Warnings
// never fail a run.
func (rep *Report) Failed() bool { return rep.Errors > 0 }

// Summary is a one-line wrap-up for the end of the text output.
func (rep *Report) Summary() string {
	return fmt.Sprintf("%d pages, %d snippets checked (%d skipped): %d errors, %d warnings",
		rep.Pages, rep.Snippets.Checked, rep.Snippets.Skipped, rep.Errors, rep.Warnings)
}

// WriteText prints one file:line:col row per issue, the way compilers
// report, followed by the summary line.
func (rep *Report) WriteText(w io.Writer) error {
	for _, is := range rep.Issues {
		if _, err := fmt.Fprintf(w, "%s:%d:%d %s %s\n", is.File, is.Line, is.Col, is.Kind, is.Message); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, rep.Summary())
	return err
}

type jsonReport struct {
	Pages    int                `json:"pages"`
	Errors   int                `json:"errors"`
	Warnings int                `json:"warnings"`
	ByKind   map[issue.Kind]int `json:"byKind"`
	Snippets snippets.Stats     `json:"snippets"`
	Issues   []issue.Issue      `json:"issues"`
}

// WriteJSON emits the whole report as one indented JSON document, for
// editors and CI steps that want to post-process the results.
func (rep *Report) WriteJSON(w io.Writer) error {
	out := jsonReport{
		Pages:    rep.Pages,
		Errors:   rep.Errors,
		Warnings: rep.Warnings,
		ByKind:   rep.ByKind,
		Snippets: rep.Snippets,
		Issues:   make([]issue.Issue, len(rep.Issues)),
	}
	for i, is := range rep.Issues {
		is.Normalize()
		out.Issues[i] = is
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
