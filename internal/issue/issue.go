// Package issue defines the positioned problem values that the content
// checkers (spelling, links, code samples, front matter) all report, plus
// the severity classification used to decide whether a check run failed.
package issue

import "sort"

// Severity classifies an issue for handling purposes (cf. exit codes).
type Severity int

const (
	// Error means the documentation is broken and a check run must fail.
	Error Severity = iota
	// Warning means the documentation is suspect but usable.
	Warning
)

// String returns the string representation of a Severity
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Kind says which checker produced an issue.
type Kind string

const (
	KindFrontMatter Kind = "frontmatter"
	KindStructure   Kind = "structure"
	KindSpelling    Kind = "spelling"
	KindLink        Kind = "link"
	KindSnippet     Kind = "snippet"
)

// Issue is one problem found in one file.  Line and Col are 1-based and
// refer to the original source file (not the markdown body on its own, which
// may start some lines down due to front matter).  A zero Line means the
// issue concerns the file as a whole.
type Issue struct {
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Col      int      `json:"col,omitempty"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"-"`
	Level    string   `json:"severity"` // Severity.String(), filled in by Normalize
	Message  string   `json:"message"`
}

// Normalize fills the derived Level field (used for JSON output).
func (i *Issue) Normalize() {
	i.Level = i.Severity.String()
}

// Sort orders issues by file, then position, then message so that reports
// are deterministic across runs.
func Sort(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		x, y := issues[a], issues[b]
		if x.File != y.File {
			return x.File < y.File
		}
		if x.Line != y.Line {
			return x.Line < y.Line
		}
		if x.Col != y.Col {
			return x.Col < y.Col
		}
		return x.Message < y.Message
	})
}
