package spell_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/spell"
)

// makePage builds the minimal page the checker needs.
func makePage(path, title string, body string) *content.Page {
	return &content.Page{
		Path:     path,
		Meta:     content.Meta{Title: title},
		KeyLines: map[string]int{"title": 2},
		Body:     []byte(body),
		BodyLine: 4,
	}
}

const checkedBody = `This guide explains the schema resolver pipeline.

The word documentaiton is wrong here.

` + "Run `wibblefrob` inline and read https://frobz.example/page for more.\n\n```\nxyzzy plugh garbage\n```\n\nThe XyzzyHandler type appears twice; irregardless we continue.\n"

func TestCheckPage(t *testing.T) {
	cfg, err := spell.ParseConfig([]byte(`{"flagWords": ["irregardless"]}`))
	Assertf(t, err == nil, "Config: expected no error got %v", err)
	checker, err := spell.NewChecker(cfg)
	Assertf(t, err == nil, "Checker: expected no error got %v", err)

	// body starts at file line 4, so body line N is file line N+3
	issues := checker.CheckPage(makePage("guides/sample.md", "Sample Guide", checkedBody))
	expected := []struct {
		line, col int
		msg       string
	}{
		{6, 10, `unknown word "documentaiton"`},
		{14, 5, `unknown word "Xyzzy" in "XyzzyHandler"`},
		{14, 38, `banned word "irregardless"`},
	}
	Assertf(t, len(issues) == len(expected), "Count: expected %d issues got %d (%v)",
		len(expected), len(issues), issues)
	for i, exp := range expected {
		if i >= len(issues) {
			break
		}
		got := issues[i]
		Assertf(t, got.Line == exp.line && got.Col == exp.col && got.Message == exp.msg,
			"Issue %d: expected %d:%d %s got %d:%d %s", i, exp.line, exp.col, exp.msg,
			got.Line, got.Col, got.Message)
		Assertf(t, got.File == "guides/sample.md", "Issue %d file: got %q", i, got.File)
	}
}

func TestCheckFrontMatter(t *testing.T) {
	checker, err := spell.NewChecker(nil)
	Assertf(t, err == nil, "Checker: expected no error got %v", err)

	p := makePage("index.md", "Welcom to the Guide", "All this text reads well.\n")
	issues := checker.CheckPage(p)
	Assertf(t, len(issues) == 1, "Count: expected 1 issue got %v", issues)
	if len(issues) == 1 {
		Assertf(t, issues[0].Line == 2 && strings.Contains(issues[0].Message, "Welcom"),
			"Issue: got %+v", issues[0])
	}
}

func TestCheckSkipsCodeRegions(t *testing.T) {
	checker, err := spell.NewChecker(nil)
	Assertf(t, err == nil, "Checker: expected no error got %v", err)

	body := "~~~\nqqqq zzzz\n~~~\n\n    indentedgarbagexyz\n\nSee [the guide](https://xyzzyq.example) and <abbr tooltipqq=\"x\">terms</abbr>.\n"
	issues := checker.CheckPage(makePage("ok.md", "Guide", body))
	Assertf(t, len(issues) == 0, "Count: expected 0 issues got %v", issues)
}

func TestOverridesAndIgnorePaths(t *testing.T) {
	cfg, err := spell.ParseConfig([]byte(`{
		"ignorePaths": ["generated/**"],
		"overrides": [{"filename": "api/**", "words": ["frobnicate"]}]
	}`))
	Assertf(t, err == nil, "Config: expected no error got %v", err)
	checker, err := spell.NewChecker(cfg)
	Assertf(t, err == nil, "Checker: expected no error got %v", err)

	// ignored files produce nothing at all
	issues := checker.CheckPage(makePage("generated/ref.md", "Reference", "zzyx qwrtplk vbnmk\n"))
	Assertf(t, len(issues) == 0, "Ignored: expected 0 issues got %v", issues)

	// the override supplies extra words for matching files only
	issues = checker.CheckPage(makePage("api/users.md", "Users", "Frobnicate the resolver first.\n"))
	Assertf(t, len(issues) == 0, "Override: expected 0 issues got %v", issues)

	issues = checker.CheckPage(makePage("other.md", "Other", "Frobnicate the resolver first.\n"))
	Assertf(t, len(issues) == 1, "No override: expected 1 issue got %v", issues)
}

func TestDictionaryFiles(t *testing.T) {
	dir := t.TempDir()
	words := "# project words\nzorblatt\nquuxify\n"
	if err := os.WriteFile(filepath.Join(dir, "project.txt"), []byte(words), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := spell.ParseConfig([]byte(`{"dictionaries": ["project.txt"]}`))
	Assertf(t, err == nil, "Config: expected no error got %v", err)
	cfg.Dir = dir
	checker, err := spell.NewChecker(cfg)
	Assertf(t, err == nil, "Checker: expected no error got %v", err)

	issues := checker.CheckPage(makePage("a.md", "Guide", "Zorblatt resolvers quuxify nicely.\n"))
	Assertf(t, len(issues) == 0, "Count: expected 0 issues got %v", issues)
}

var configErrData = map[string]struct {
	in      string
	problem string // substring of the expected error
}{
	"UnknownKey":   {`{"ignoredPaths": ["a"]}`, "ignoredPaths"},
	"WrongType":    {`{"words": "notalist"}`, "words"},
	"BadOverride":  {`{"overrides": [{"words": ["x"]}]}`, "filename"},
	"BadMinLength": {`{"minWordLength": 0}`, "minWordLength"},
	"Garbage":      {`{]`, ""},
}

func TestParseConfigErrors(t *testing.T) {
	for name, data := range configErrData {
		_, err := spell.ParseConfig([]byte(data.in))
		Assertf(t, err != nil, "%12s: expected an error", name)
		if data.problem != "" {
			Assertf(t, err != nil && strings.Contains(err.Error(), data.problem),
				"%12s: expected error mentioning %q got %v", name, data.problem, err)
		}
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := spell.ParseConfig([]byte(`{"version": "0.2", "words": ["gqldocs"]}`))
	Assertf(t, err == nil, "Config: expected no error got %v", err)
	Assertf(t, cfg != nil && cfg.MinWordLength == spell.DefaultMinWordLength,
		"MinWordLength: expected %d got %+v", spell.DefaultMinWordLength, cfg)
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
