package search_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/markdown"
	"github.com/gqldocs/gqldocs/internal/search"
)

type fixpage struct {
	route, title, desc, body string
}

var fixPages = []fixpage{
	{"/", "Home", "", "Welcome. Queries and mutations live in the guides.\n"},
	{"/guides/queries/", "Queries", "How to write queries.", "# Arguments\n\nArguments refine queries. Arguments have defaults.\n"},
	{"/guides/mutations/", "Mutations", "", "Mutations change data.\n\n```graphql\n{ zmutation }\n```\n"},
}

func buildIndex(t *testing.T) *search.Index {
	t.Helper()
	rend := markdown.New()
	var pages []*content.Page
	docs := make(map[string]*markdown.Doc)
	for _, f := range fixPages {
		page := &content.Page{
			Route:    f.route,
			Meta:     content.Meta{Title: f.title, Description: f.desc},
			Body:     []byte(f.body),
			BodyLine: 1,
		}
		doc, err := rend.Render(page.Body, page.BodyLine)
		if err != nil {
			t.Fatalf("render %s: %v", f.route, err)
		}
		pages = append(pages, page)
		docs[page.Route] = doc
	}
	return search.Build(pages, docs)
}

// searchData maps a query to the routes expected back, in order.
var searchData = map[string]struct {
	query string
	limit int
	want  []string
}{
	"TitleBeatsBody": {"queries", 0, []string{"/guides/queries/", "/"}},
	"HeadingMatch":   {"arguments", 0, []string{"/guides/queries/"}},
	"AndNarrows":     {"queries arguments", 0, []string{"/guides/queries/"}},
	"AndMisses":      {"queries zzz", 0, nil},
	"CaseFolded":     {"QUERIES", 0, []string{"/guides/queries/", "/"}},
	"FenceExcluded":  {"zmutation", 0, nil},
	"Limited":        {"mutations", 1, []string{"/guides/mutations/"}},
	"Empty":          {"", 0, nil},
	"Punctuation":    {"...", 0, nil},
}

func TestSearch(t *testing.T) {
	ix := buildIndex(t)
	Assertf(t, ix.Len() == 3, "len: expected 3 indexed pages, got %d", ix.Len())

	for name, data := range searchData {
		got := ix.Search(data.query, data.limit)
		ok := len(got) == len(data.want)
		for i := 0; ok && i < len(got); i++ {
			ok = got[i].Route == data.want[i]
		}
		Assertf(t, ok, "%14s: query %q expected routes %v, got %+v", name, data.query, data.want, got)
	}
}

func TestSearchResults(t *testing.T) {
	ix := buildIndex(t)

	got := ix.Search("queries", 0)
	Assertf(t, len(got) == 2, "results: expected 2, got %d", len(got))
	if len(got) != 2 {
		return
	}
	Assertf(t, got[0].Title == "Queries" && got[0].Excerpt == "How to write queries.",
		"top result: expected the description as excerpt, got %+v", got[0])
	Assertf(t, got[0].Score > got[1].Score, "scores: expected %d > %d", got[0].Score, got[1].Score)
	Assertf(t, strings.HasPrefix(got[1].Excerpt, "Welcome."),
		"fallback excerpt: expected the body text, got %q", got[1].Excerpt)
}

func TestWriteJSON(t *testing.T) {
	ix := buildIndex(t)
	var buf bytes.Buffer
	err := ix.WriteJSON(&buf)
	Assertf(t, err == nil, "write: expected no error, got %v", err)

	var decoded struct {
		Docs []struct {
			Route string `json:"route"`
			Title string `json:"title"`
		} `json:"docs"`
		Terms map[string][]struct {
			D int `json:"d"`
			T int `json:"t"`
		} `json:"terms"`
	}
	err = json.Unmarshal(buf.Bytes(), &decoded)
	Assertf(t, err == nil, "decode: expected no error, got %v", err)
	Assertf(t, len(decoded.Docs) == 3, "docs: expected 3, got %d", len(decoded.Docs))

	postings := decoded.Terms["queries"]
	Assertf(t, len(postings) == 2, "postings for queries: expected 2, got %v", postings)
	found := false
	for _, p := range postings {
		if p.D < len(decoded.Docs) && decoded.Docs[p.D].Route == "/guides/queries/" {
			found = p.T == 7 // title 5, description 1, body 1
		}
	}
	Assertf(t, found, "postings: expected the queries page weighted 7, got %v", postings)
}

const (
	succeed = "✓"
	failed  = "X" //"✗"
)

// Assertf writes a tick or cross as it checks its assertion.
func Assertf(t *testing.T, succeeded bool, format string, args ...interface{}) {
	t.Helper()
	if succeeded {
		t.Logf("\t"+succeed+"  "+format, args...)
	} else {
		t.Errorf("\t"+failed+"  "+format, args...)
	}
}
