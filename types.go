package gqldocs

// types.go re-exports the handful of internal types that appear in the
// public API, so callers never import internal packages directly.

import (
	"github.com/gqldocs/gqldocs/internal/check"
	"github.com/gqldocs/gqldocs/internal/config"
	"github.com/gqldocs/gqldocs/internal/content"
	"github.com/gqldocs/gqldocs/internal/issue"
)

// Config is the whole docs.yaml configuration.  Build one from
// DefaultConfig rather than a bare literal so the server block has sane
// values, then pass it to SetConfig.
type Config = config.Config

// Duration is how the configuration spells time values ("250ms", "10s").
type Duration = config.Duration

// Report is the outcome of one check run: every issue found plus the
// counts a caller needs for an exit code or a summary line.
type Report = check.Report

// Issue is one problem found in the content, positioned by file, line and
// column.
type Issue = issue.Issue

// Meta is a page's front matter after parsing.
type Meta = content.Meta

// DefaultConfig returns the configuration used when no file is given: a
// conventional tree served on port 8080.
func DefaultConfig() Config {
	return *config.Default()
}
