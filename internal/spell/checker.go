package spell

// checker.go ties config, dictionaries and tokenizer together and checks
// one page at a time

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/issue"
)

// Checker spell checks pages.  Build one per run with NewChecker; it is
// read-only afterwards and safe to share between goroutines.
type Checker struct {
	cfg   *Config
	base  *dictionary
	extra *dictionary // config words plus configured dictionary files
}

// NewChecker prepares a Checker from a configuration (nil means defaults).
func NewChecker(cfg *Config) (*Checker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Checker{cfg: cfg, base: baseDictionary(), extra: newDictionary()}
	for _, w := range cfg.Words {
		c.extra.add(w)
	}
	for _, dict := range cfg.Dictionaries {
		p := dict
		if !filepath.IsAbs(p) && cfg.Dir != "" {
			p = filepath.Join(cfg.Dir, p)
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("%w opening dictionary %q", err, dict)
		}
		err = c.extra.addList(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w in dictionary %q", err, dict)
		}
	}
	return c, nil
}

// CheckPage returns one issue per unknown or banned word in the page's
// prose: the markdown body plus the title, sidebarTitle and description
// front-matter values.  Code (fenced, indented, inline), link targets, URLs
// and HTML markup are never checked.
func (c *Checker) CheckPage(page *content.Page) []issue.Issue {
	if c.cfg.Ignored(page.Path) {
		return nil
	}
	ov := c.cfg.overrideFor(page.Path)

	var ovDict *dictionary
	if ov != nil {
		ovDict = newDictionary()
		for _, w := range ov.Words {
			ovDict.add(w)
		}
		for _, w := range ov.IgnoreWords {
			ovDict.add(w)
		}
	}
	flags := make(map[string]struct{}, len(c.cfg.FlagWords))
	for _, w := range c.cfg.FlagWords {
		flags[strings.ToLower(w)] = struct{}{}
	}
	if ov != nil {
		for _, w := range ov.FlagWords {
			flags[strings.ToLower(w)] = struct{}{}
		}
	}

	known := func(w string) bool {
		if c.base.known(w) || c.extra.known(w) {
			return true
		}
		return ovDict != nil && ovDict.known(w)
	}

	var issues []issue.Issue
	emit := func(t token) {
		part := strings.ToLower(t.part)
		if _, banned := flags[part]; banned {
			issues = append(issues, issue.Issue{
				File: page.Path, Line: t.line, Col: t.col,
				Kind: issue.KindSpelling, Severity: issue.Error,
				Message: fmt.Sprintf("banned word %q", t.part),
			})
			return
		}
		if len([]rune(part)) < c.cfg.MinWordLength || known(part) {
			return
		}
		msg := fmt.Sprintf("unknown word %q", t.part)
		if t.word != t.part {
			msg = fmt.Sprintf("unknown word %q in %q", t.part, t.word)
		}
		issues = append(issues, issue.Issue{
			File: page.Path, Line: t.line, Col: t.col,
			Kind: issue.KindSpelling, Severity: issue.Error,
			Message: msg,
		})
	}

	// front-matter prose: positioned on the key's line, no column (the
	// token column would be relative to the value, not the file)
	for _, f := range []struct{ key, text string }{
		{"title", page.Meta.Title},
		{"sidebarTitle", page.Meta.SidebarTitle},
		{"description", page.Meta.Description},
	} {
		if f.text == "" {
			continue
		}
		fmLine := page.KeyLines[f.key]
		var fmScan scanner
		fmScan.scanLine(f.text, fmLine, func(t token) {
			t.col = 0
			emit(t)
		})
	}

	var sc scanner
	for i, ln := range strings.Split(string(page.Body), "\n") {
		sc.scanLine(ln, page.BodyLine+i, func(t token) { emit(t) })
	}
	return issues
}
