// Package markdown turns page bodies into HTML and, in the same parse,
// extracts the structure the rest of the toolchain works from: headings with
// their anchors, links with source positions, and fenced code snippets.
// Anchors are generated with the content package's Slugify so the renderer
// and the link checker can never disagree about what a heading's anchor is.
package markdown

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/gqldocs/gqldocs/internal/content"
)

type (
	// Heading is one entry of a page's table of contents.
	Heading struct {
		Level int
		Text  string
		ID    string
	}

	// Link is a markdown link or image with the position it was written at.
	Link struct {
		Target string // destination exactly as the author wrote it
		Text   string
		Line   int // 1-based line in the source file
		Image  bool
	}

	// Snippet is a fenced code block.  Lang is the first word of the info
	// string ("graphql", "go", ...) and Flags the remaining words, which
	// checkers use for per-snippet directives such as no-check.
	Snippet struct {
		Lang  string
		Flags []string
		Code  string
		Line  int // 1-based line (in the source file) of the first code line
	}

	// Doc is a rendered page body plus everything extracted on the way.
	Doc struct {
		HTML     []byte
		Headings []Heading
		Anchors  map[string]struct{}
		Links    []Link
		Snippets []Snippet
		Text     string // plain prose with normalised spaces, fenced code excluded
	}
)

// Renderer renders page bodies.  Create one per build; it is cheap.
type Renderer struct {
	md goldmark.Markdown
}

// New returns a Renderer with the dialect the documentation is written in:
// GitHub flavoured markdown plus heading attributes, with raw HTML passed
// through (the pages are trusted input).
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAttribute()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Render parses body, assigns heading anchors, extracts structure and
// renders HTML.  baseLine is the 1-based line number that the first body
// line has in the original file, so that every position in the returned Doc
// points into the file the author is editing.
func (r *Renderer) Render(body []byte, baseLine int) (*Doc, error) {
	doc := &Doc{Anchors: make(map[string]struct{})}
	root := r.md.Parser().Parse(text.NewReader(body))

	lines := lineIndex(body)
	lineOf := func(offset int) int {
		i := sort.Search(len(lines), func(i int) bool { return lines[i] > offset })
		return baseLine + i - 1
	}

	slugger := content.NewSlugger()
	var plain strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				plain.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			plain.Write(n.Segment.Value(body))
			if n.SoftLineBreak() || n.HardLineBreak() {
				plain.WriteByte(' ')
			}
		case *ast.String:
			plain.Write(n.Value)
		case *ast.Heading:
			h := Heading{Level: n.Level, Text: textOf(n, body)}
			if id, ok := attrString(n, "id"); ok {
				h.ID = id
				slugger.Reserve(id)
			} else {
				key := h.Text
				if content.Slugify(key) == "" {
					key = "section"
				}
				h.ID = slugger.Slug(key)
				n.SetAttributeString("id", []byte(h.ID))
			}
			doc.Headings = append(doc.Headings, h)
			doc.Anchors[h.ID] = struct{}{}
		case *ast.Link:
			doc.Links = append(doc.Links, Link{
				Target: string(n.Destination),
				Text:   textOf(n, body),
				Line:   nodeLine(n, body, lineOf),
			})
		case *ast.Image:
			doc.Links = append(doc.Links, Link{
				Target: string(n.Destination),
				Text:   textOf(n, body),
				Line:   nodeLine(n, body, lineOf),
				Image:  true,
			})
		case *ast.AutoLink:
			doc.Links = append(doc.Links, Link{
				Target: string(n.URL(body)),
				Text:   string(n.Label(body)),
				Line:   nodeLine(n, body, lineOf),
			})
		case *ast.FencedCodeBlock:
			doc.Snippets = append(doc.Snippets, snippetOf(n, body, lineOf))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w walking markdown", err)
	}
	doc.Text = strings.Join(strings.Fields(plain.String()), " ")

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, root); err != nil {
		return nil, fmt.Errorf("%w rendering markdown", err)
	}
	doc.HTML = buf.Bytes()
	return doc, nil
}

// lineIndex returns the byte offset of the start of every line.
func lineIndex(body []byte) []int {
	starts := []int{0}
	for i, b := range body {
		if b == '\n' && i+1 < len(body) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// snippetOf extracts one fenced code block.
func snippetOf(n *ast.FencedCodeBlock, body []byte, lineOf func(int) int) Snippet {
	s := Snippet{Lang: string(n.Language(body))}
	if n.Info != nil {
		words := strings.Fields(string(n.Info.Segment.Value(body)))
		if len(words) > 1 {
			s.Flags = words[1:]
		}
	}

	var code bytes.Buffer
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		code.Write(segs.At(i).Value(body))
	}
	s.Code = code.String()

	switch {
	case segs.Len() > 0:
		s.Line = lineOf(segs.At(0).Start)
	case n.Info != nil:
		s.Line = lineOf(n.Info.Segment.Start) + 1
	}
	return s
}

// textOf flattens a node's inline content to plain text.
func textOf(n ast.Node, body []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(body))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// nodeLine finds the source line of an inline node: the position of its
// first text segment, or failing that the first line of the enclosing block.
func nodeLine(n ast.Node, body []byte, lineOf func(int) int) int {
	line := 0
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || line != 0 {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok && t.Segment.Len() > 0 {
			line = lineOf(t.Segment.Start)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if line != 0 {
		return line
	}
	for b := n.Parent(); b != nil; b = b.Parent() {
		if b.Type() == ast.TypeBlock && b.Lines() != nil && b.Lines().Len() > 0 {
			return lineOf(b.Lines().At(0).Start)
		}
	}
	return lineOf(0)
}

// attrString reads a node attribute that may be stored as string or []byte.
func attrString(n ast.Node, name string) (string, bool) {
	v, ok := n.AttributeString(name)
	if !ok {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
