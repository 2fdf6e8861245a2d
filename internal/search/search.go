// Package search answers free-text queries over one build of the site.  The
// index is a plain in-memory inverted index: small documentation trees (a
// few hundred pages) need nothing cleverer, and keeping it dependency-free
// means the same index can be serialised for client-side search on static
// builds.
package search

// search.go builds the inverted index and scores queries against it

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/markdown"
)

// DefaultLimit caps a result list when the caller does not say otherwise.
const DefaultLimit = 20

// occurrences in a title count for more than ones buried in a paragraph
const (
	weightTitle   = 5
	weightHeading = 3
	weightBody    = 1
)

const excerptLen = 160

// Result is one search hit.
type Result struct {
	Route   string `json:"route"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt,omitempty"`
	Score   int    `json:"score"`
}

type (
	// Index is an inverted index over the pages of one build.  Build it
	// once per assembly; it is read-only afterwards and safe to share.
	Index struct {
		docs  []indexedDoc
		terms map[string][]posting
	}

	indexedDoc struct {
		Route   string `json:"route"`
		Title   string `json:"title"`
		Excerpt string `json:"excerpt,omitempty"`
	}

	posting struct {
		Doc int `json:"d"`
		TF  int `json:"t"` // weighted term frequency
	}
)

// Build indexes the given pages with their rendered docs.  The caller
// decides what is searchable by what it passes in: a published build hands
// over exactly the pages it publishes, so drafts never leak through search.
// A page with no rendered doc is indexed from its front matter alone.
func Build(pages []*content.Page, docs map[string]*markdown.Doc) *Index {
	ix := &Index{terms: make(map[string][]posting)}
	for _, page := range pages {
		doc := docs[page.Route]
		tf := make(map[string]int)
		add := func(text string, weight int) {
			for _, w := range words(text) {
				tf[w] += weight
			}
		}
		add(page.Meta.Title, weightTitle)
		if st := page.Meta.SidebarTitle; st != "" && st != page.Meta.Title {
			add(st, weightTitle)
		}
		add(page.Meta.Description, weightBody)
		if doc != nil {
			for _, h := range doc.Headings {
				add(h.Text, weightHeading)
			}
			add(doc.Text, weightBody)
		}

		id := len(ix.docs)
		ix.docs = append(ix.docs, indexedDoc{
			Route:   page.Route,
			Title:   page.Meta.Title,
			Excerpt: excerptOf(page, doc),
		})
		for w, n := range tf {
			ix.terms[w] = append(ix.terms[w], posting{Doc: id, TF: n})
		}
	}
	return ix
}

// Search returns the best matches for a free-text query, highest score
// first.  Every query word must match (AND); at most limit results come
// back, DefaultLimit when limit is zero.
func (ix *Index) Search(query string, limit int) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := dedupe(words(query))
	if len(terms) == 0 {
		return nil
	}

	type hit struct{ matched, score int }
	hits := make(map[int]*hit)
	for _, term := range terms {
		for _, p := range ix.terms[term] {
			h := hits[p.Doc]
			if h == nil {
				h = &hit{}
				hits[p.Doc] = h
			}
			h.matched++
			h.score += p.TF
		}
	}

	var out []Result
	for id, h := range hits {
		if h.matched != len(terms) {
			continue
		}
		d := ix.docs[id]
		out = append(out, Result{Route: d.Route, Title: d.Title, Excerpt: d.Excerpt, Score: h.score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Route < out[j].Route
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Len returns the number of indexed pages.
func (ix *Index) Len() int { return len(ix.docs) }

// WriteJSON writes the portable form of the index, which static builds ship
// as search-index.json for client-side search.
func (ix *Index) WriteJSON(w io.Writer) error {
	out := struct {
		Docs  []indexedDoc         `json:"docs"`
		Terms map[string][]posting `json:"terms"`
	}{Docs: ix.docs, Terms: ix.terms}
	if out.Docs == nil {
		out.Docs = []indexedDoc{}
	}
	return json.NewEncoder(w).Encode(out)
}

// words lowercases text and splits it into letter and digit runs.
func words(s string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}

func dedupe(ws []string) []string {
	seen := make(map[string]bool, len(ws))
	out := ws[:0]
	for _, w := range ws {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// excerptOf prefers the author's description and falls back to the first
// words of the page text.
func excerptOf(page *content.Page, doc *markdown.Doc) string {
	if page.Meta.Description != "" {
		return page.Meta.Description
	}
	if doc == nil {
		return ""
	}
	var b strings.Builder
	for _, w := range strings.Fields(doc.Text) {
		if b.Len() > 0 {
			if b.Len()+len(w)+1 > excerptLen {
				b.WriteString(" ...")
				break
			}
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	return b.String()
}
