package markdown_test

import (
	"strings"
	"testing"

	"github.com/gqldocs/gqldocs/internal/markdown"
)

// the body starts at line 4 of its imaginary file (three lines of front matter)
const baseLine = 4

const body = `# GraphQL Queries

Ask the [server](/guides/server/) for data.

## Arguments

See [below](#defaults).

## Arguments

Repeated heading gets a numbered anchor.

### Defaults {#defaults}

![diagram](/img/args.svg)

` + "```graphql no-check\n{ hero { name } }\n```\n"

func TestRender(t *testing.T) {
	doc, err := markdown.New().Render([]byte(body), baseLine)
	Assertf(t, err == nil, "Render: expected no error got %v", err)

	// headings and anchors
	ids := make([]string, 0, len(doc.Headings))
	for _, h := range doc.Headings {
		ids = append(ids, h.ID)
	}
	expectedIDs := []string{"graphql-queries", "arguments", "arguments-1", "defaults"}
	Assertf(t, len(ids) == len(expectedIDs), "Headings: expected %d got %d (%v)", len(expectedIDs), len(ids), ids)
	for i, id := range expectedIDs {
		Assertf(t, i < len(ids) && ids[i] == id, "Anchor %d: expected %q got %v", i, id, ids)
		_, ok := doc.Anchors[id]
		Assertf(t, ok, "Anchors: %q missing from %v", id, doc.Anchors)
	}
	Assertf(t, len(doc.Headings) > 0 && doc.Headings[0].Level == 1 && doc.Headings[0].Text == "GraphQL Queries",
		"Heading: got %+v", doc.Headings)

	// links carry the file line they were written on
	expectedLinks := []markdown.Link{
		{Target: "/guides/server/", Text: "server", Line: 6},
		{Target: "#defaults", Text: "below", Line: 10},
		{Target: "/img/args.svg", Text: "diagram", Line: 18, Image: true},
	}
	Assertf(t, len(doc.Links) == len(expectedLinks), "Links: expected %d got %d (%v)",
		len(expectedLinks), len(doc.Links), doc.Links)
	for i, exp := range expectedLinks {
		Assertf(t, i < len(doc.Links) && doc.Links[i] == exp, "Link %d: expected %+v got %+v",
			i, exp, doc.Links)
	}

	// fenced snippet with language, directive flag and file position
	Assertf(t, len(doc.Snippets) == 1, "Snippets: expected 1 got %v", doc.Snippets)
	if len(doc.Snippets) == 1 {
		s := doc.Snippets[0]
		Assertf(t, s.Lang == "graphql", "Lang: expected graphql got %q", s.Lang)
		Assertf(t, len(s.Flags) == 1 && s.Flags[0] == "no-check", "Flags: got %v", s.Flags)
		Assertf(t, s.Code == "{ hero { name } }\n", "Code: got %q", s.Code)
		Assertf(t, s.Line == 21, "Snippet line: expected 21 got %d", s.Line)
	}

	// plain text carries the prose (search indexes it) but not the code
	Assertf(t, strings.Contains(doc.Text, "Ask the server for data."), "Text: got %q", doc.Text)
	Assertf(t, strings.Contains(doc.Text, "GraphQL Queries"), "Text: got %q", doc.Text)
	Assertf(t, !strings.Contains(doc.Text, "hero"), "Text: expected no fence content, got %q", doc.Text)

	// anchors end up in the HTML so fragment links resolve in the browser
	html := string(doc.HTML)
	Assertf(t, strings.Contains(html, `<h1 id="graphql-queries">`), "HTML h1: got %s", html)
	Assertf(t, strings.Contains(html, `<h2 id="arguments-1">`), "HTML h2: got %s", html)
	Assertf(t, strings.Contains(html, `<a href="/guides/server/">server</a>`), "HTML link: got %s", html)
	Assertf(t, strings.Contains(html, `<code class="language-graphql">`), "HTML code: got %s", html)
}

const gfmBody = `Read https://spec.graphql.org for details.

| Field | Type |
| ----- | ---- |
| hero  | Character |
`

func TestRenderGFM(t *testing.T) {
	doc, err := markdown.New().Render([]byte(gfmBody), 1)
	Assertf(t, err == nil, "Render: expected no error got %v", err)

	// bare URLs are linkified and show up for the link checker
	Assertf(t, len(doc.Links) == 1, "Links: expected 1 got %v", doc.Links)
	if len(doc.Links) == 1 {
		l := doc.Links[0]
		Assertf(t, l.Target == "https://spec.graphql.org" && l.Line == 1, "AutoLink: got %+v", l)
	}
	Assertf(t, strings.Contains(string(doc.HTML), "<table>"), "HTML table: got %s", doc.HTML)
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
