package content_test

import (
	"strings"
	"testing"

	"github.com/gqldocs/gqldocs/internal/content"
)

var splitData = map[string]struct {
	in string
	// Expected results
	fm       string
	body     string
	bodyLine int
	err      error
}{
	"Simple":   {"---\ntitle: Queries\n---\nBody here\n", "title: Queries\n", "Body here\n", 4, nil},
	"Empty":    {"---\n---\n", "", "", 3, nil},
	"Multi":    {"---\ntitle: X\nweight: 3\n---\n\nPara\n", "title: X\nweight: 3\n", "\nPara\n", 5, nil},
	"CRLF":     {"---\r\ntitle: X\r\n---\r\nBody\r\n", "title: X\r\n", "Body\r\n", 4, nil},
	"BOM":      {"\xef\xbb\xbf---\ntitle: X\n---\nB\n", "title: X\n", "B\n", 4, nil},
	"NoBody":   {"---\ntitle: X\n---\n", "title: X\n", "", 4, nil},
	"NoFence":  {"# Just markdown\n", "", "# Just markdown\n", 1, content.ErrNoFrontMatter},
	"Late":     {"\n---\ntitle: X\n---\n", "", "\n---\ntitle: X\n---\n", 1, content.ErrNoFrontMatter},
	"Unclosed": {"---\ntitle: X\nBody\n", "", "", 0, content.ErrUnclosedFrontMatter},
}

func TestSplit(t *testing.T) {
	for name, data := range splitData {
		fm, body, line, err := content.Split([]byte(data.in))
		Assertf(t, err == data.err, "Error   : %10s: expected %v got %v", name, data.err, err)
		Assertf(t, string(fm) == data.fm, "Front   : %10s: expected %q got %q", name, data.fm, fm)
		Assertf(t, string(body) == data.body, "Body    : %10s: expected %q got %q", name, data.body, body)
		Assertf(t, line == data.bodyLine, "BodyLine: %10s: expected %d got %d", name, data.bodyLine, line)
	}
}

var metaData = map[string]struct {
	in string
	// Expected results
	title   string
	nav     string
	weight  int
	problem string // substring of the expected error; empty means no error
}{
	"Full":         {"title: Queries\nsidebarTitle: Q\nweight: 2\n", "Queries", "Q", 2, ""},
	"NoSidebar":    {"title: Mutations\n", "Mutations", "Mutations", 0, ""},
	"ExtraKeys":    {"title: X\nauthor: mary\n", "X", "X", 0, ""},
	"MissingTitle": {"weight: 1\n", "", "", 1, "title"},
	"EmptyFront":   {"", "", "", 0, "title"},
	"BadWeight":    {"title: X\nweight: -2\n", "X", "X", -2, "weight"},
	"BadSlug":      {"title: X\nslug: Not OK\n", "X", "X", 0, "slug"},
	"RelAlias":     {"title: X\naliases: [docs/old]\n", "X", "X", 0, "absolute"},
	"BadYAML":      {"title: [unclosed\n", "", "", 0, "yaml"},
}

func TestParseMeta(t *testing.T) {
	for name, data := range metaData {
		meta, _, err := content.ParseMeta([]byte(data.in))
		if data.problem == "" {
			Assertf(t, err == nil, "Error : %12s: expected no error got %v", name, err)
		} else {
			Assertf(t, err != nil && strings.Contains(err.Error(), data.problem),
				"Error : %12s: expected error mentioning %q got %v", name, data.problem, err)
			if err != nil && strings.Contains(err.Error(), "yaml") {
				continue // nothing was decoded
			}
		}
		Assertf(t, meta.Title == data.title, "Title : %12s: expected %q got %q", name, data.title, meta.Title)
		Assertf(t, meta.NavTitle() == data.nav, "Nav   : %12s: expected %q got %q", name, data.nav, meta.NavTitle())
		Assertf(t, meta.Weight == data.weight, "Weight: %12s: expected %d got %d", name, data.weight, meta.Weight)
	}
}

func TestKeyLines(t *testing.T) {
	_, lines, err := content.ParseMeta([]byte("title: X\nsidebarTitle: Y\nweight: 9\n"))
	Assertf(t, err == nil, "Error: expected no error got %v", err)
	Assertf(t, lines["title"] == 1, "Title line: expected 1 got %d", lines["title"])
	Assertf(t, lines["sidebarTitle"] == 2, "Sidebar line: expected 2 got %d", lines["sidebarTitle"])
	Assertf(t, lines["weight"] == 3, "Weight line: expected 3 got %d", lines["weight"])
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
