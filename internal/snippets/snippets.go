// Package snippets syntax-checks the fenced code samples in the docs, so a
// guide can't ship an example that doesn't even parse.  GraphQL samples are
// parsed with gqlparser (SDL and executable documents are told apart by
// their leading keyword); when a project schema is supplied, executable
// samples are additionally validated against it.
package snippets

import (
	"encoding/json"
	"errors"
	"fmt"
	goparser "go/parser"
	"go/scanner"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	"gopkg.in/yaml.v3"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/issue"
	"github.com/gqldocs/gqldocs/internal/markdown"
)

const (
	// flagNoCheck skips a snippet entirely; flagNoValidate keeps the
	// syntax check but skips schema validation (guides legitimately show
	// queries that are wrong on purpose).
	flagNoCheck    = "no-check"
	flagNoValidate = "no-validate"
)

// Stats counts what happened to a page's snippets.
type Stats struct {
	Checked int `json:"checked"`
	Skipped int `json:"skipped"`
}

// Checker validates code samples.  Safe for concurrent use once built.
type Checker struct {
	schema *ast.Schema
}

func New() *Checker { return &Checker{} }

// SetSchema enables validation of executable graphql snippets against the
// project schema.  Validation problems are warnings, never errors.
func (c *Checker) SetSchema(schema *ast.Schema) { c.schema = schema }

// CheckPage checks every fenced snippet the renderer found in the page.
func (c *Checker) CheckPage(page *content.Page, doc *markdown.Doc) ([]issue.Issue, Stats) {
	var (
		issues []issue.Issue
		stats  Stats
	)
	for _, s := range doc.Snippets {
		if s.Code == "" || hasFlag(s, flagNoCheck) {
			stats.Skipped++
			continue
		}
		var found []issue.Issue
		switch strings.ToLower(s.Lang) {
		case "graphql", "gql":
			found = c.checkGraphQL(s)
		case "json":
			found = checkJSON(s)
		case "yaml", "yml":
			found = checkYAML(s)
		case "go", "golang":
			found = checkGo(s)
		default:
			stats.Skipped++
			continue
		}
		stats.Checked++
		for i := range found {
			found[i].File = page.Path
			found[i].Kind = issue.KindSnippet
		}
		issues = append(issues, found...)
	}
	return issues, stats
}

func hasFlag(s markdown.Snippet, flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// sdlKeywords are the tokens that can open a type-system document.
var sdlKeywords = map[string]struct{}{
	"type": {}, "schema": {}, "input": {}, "enum": {}, "interface": {},
	"union": {}, "scalar": {}, "directive": {}, "extend": {},
}

// isSDL reports whether a graphql snippet is schema language rather than an
// executable document, judged by its first meaningful word.
func isSDL(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word := line
		if i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == '{' || r == '@' }); i >= 0 {
			word = line[:i]
		}
		_, ok := sdlKeywords[word]
		return ok
	}
	return false
}

// snippetIssue positions a problem found at line/col inside the snippet
// back onto the file the author is editing.
func snippetIssue(s markdown.Snippet, line, col int, sev issue.Severity, msg string) issue.Issue {
	i := issue.Issue{Col: col, Severity: sev, Message: msg}
	if line > 0 {
		i.Line = s.Line + line - 1
	} else {
		i.Line = s.Line
	}
	return i
}

func gqlIssue(s markdown.Snippet, err *gqlerror.Error, sev issue.Severity, what string) issue.Issue {
	line, col := 0, 0
	if len(err.Locations) > 0 {
		line, col = err.Locations[0].Line, err.Locations[0].Column
	}
	return snippetIssue(s, line, col, sev, fmt.Sprintf("%s: %s", what, err.Message))
}

func (c *Checker) checkGraphQL(s markdown.Snippet) []issue.Issue {
	src := &ast.Source{Name: "snippet", Input: s.Code}
	if isSDL(s.Code) {
		if _, err := parser.ParseSchema(src); err != nil {
			return []issue.Issue{gqlIssue(s, err, issue.Error, "graphql schema")}
		}
		return nil
	}

	qdoc, err := parser.ParseQuery(src)
	if err != nil {
		return []issue.Issue{gqlIssue(s, err, issue.Error, "graphql")}
	}
	if c.schema == nil || hasFlag(s, flagNoValidate) {
		return nil
	}
	var issues []issue.Issue
	for _, verr := range validator.Validate(c.schema, qdoc) {
		issues = append(issues, gqlIssue(s, verr, issue.Warning, "graphql validation"))
	}
	return issues
}

func checkJSON(s markdown.Snippet) []issue.Issue {
	var v any
	err := json.Unmarshal([]byte(s.Code), &v)
	if err == nil {
		return nil
	}
	line, col := 0, 0
	var serr *json.SyntaxError
	if errors.As(err, &serr) {
		line, col = offsetToLineCol(s.Code, int(serr.Offset))
	}
	return []issue.Issue{snippetIssue(s, line, col, issue.Error, fmt.Sprintf("json: %v", err))}
}

// offsetToLineCol converts a byte offset into 1-based line and column.
func offsetToLineCol(code string, offset int) (int, int) {
	if offset > len(code) {
		offset = len(code)
	}
	line := 1 + strings.Count(code[:offset], "\n")
	col := offset - strings.LastIndex(code[:offset], "\n")
	return line, col
}

var yamlLinePattern = regexp.MustCompile(`line (\d+):`)

func checkYAML(s markdown.Snippet) []issue.Issue {
	var v any
	err := yaml.Unmarshal([]byte(s.Code), &v)
	if err == nil {
		return nil
	}
	line := 0
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return []issue.Issue{snippetIssue(s, line, 0, issue.Error, fmt.Sprintf("yaml: %v", err))}
}

// goVariants are the wrappings tried for a go snippet: a complete file, a
// file body, and a function body.  Offset is the number of lines the
// wrapping adds before the snippet.
var goVariants = []struct {
	prefix, suffix string
	offset         int
}{
	{"", "", 0},
	{"package main\n\n", "", 2},
	{"package main\n\nfunc _() {\n", "\n}\n", 3},
}

// checkGo accepts a snippet if ANY wrapping parses.  When none does, the
// reported error is the one that got furthest into the snippet, which is
// almost always the real complaint rather than "expected 'package'".
func checkGo(s markdown.Snippet) []issue.Issue {
	best := issue.Issue{}
	bestKey := -1
	for _, v := range goVariants {
		fset := token.NewFileSet()
		_, err := goparser.ParseFile(fset, "snippet.go", v.prefix+s.Code+v.suffix, 0)
		if err == nil {
			return nil
		}
		line, col, msg := 0, 0, err.Error()
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			line = list[0].Pos.Line - v.offset
			col = list[0].Pos.Column
			msg = list[0].Msg
		}
		if line < 1 || line > strings.Count(s.Code, "\n")+1 {
			continue // error is in the wrapping, not the snippet
		}
		if key := line*10000 + col; key > bestKey {
			bestKey = key
			best = snippetIssue(s, line, col, issue.Error, fmt.Sprintf("go: %s", msg))
		}
	}
	if bestKey < 0 {
		best = snippetIssue(s, 1, 0, issue.Error, "go: snippet does not parse as a file, declarations or statements")
	}
	return []issue.Issue{best}
}
