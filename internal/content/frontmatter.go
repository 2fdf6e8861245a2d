package content

// frontmatter.go splits a page file into front matter and markdown body and
// decodes the front matter into a Meta struct

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Meta holds the front-matter metadata of a page.  Only title is required;
// everything the page author writes that is not a known key is kept in
// Params so that layouts (and user-supplied schemas) can still see it.
type Meta struct {
	Title        string         `yaml:"title" json:"title" validate:"required,max=200"`
	SidebarTitle string         `yaml:"sidebarTitle" json:"sidebarTitle,omitempty" validate:"max=120"`
	Description  string         `yaml:"description" json:"description,omitempty" validate:"max=500"`
	Weight       int            `yaml:"weight" json:"weight,omitempty" validate:"min=0"`
	Slug         string         `yaml:"slug" json:"slug,omitempty" validate:"max=80"`
	Draft        bool           `yaml:"draft" json:"draft,omitempty"`
	Aliases      []string       `yaml:"aliases" json:"aliases,omitempty"`
	Tags         []string       `yaml:"tags" json:"tags,omitempty"`
	Params       map[string]any `yaml:",inline" json:"params,omitempty"`
}

// NavTitle is the title shown in the sidebar - the sidebarTitle key if given,
// otherwise the page title.
func (m *Meta) NavTitle() string {
	if m.SidebarTitle != "" {
		return m.SidebarTitle
	}
	return m.Title
}

var (
	// ErrNoFrontMatter is returned by Split for a file that does not start
	// with a front-matter fence at all.
	ErrNoFrontMatter = errors.New("no front matter")
	// ErrUnclosedFrontMatter is returned when the opening fence is never closed.
	ErrUnclosedFrontMatter = errors.New("front matter not closed")
)

const fence = "---"

// Split separates the raw bytes of a page file into the front-matter source
// and the markdown body.  bodyLine is the 1-based line number (in the
// original file) of the first body line, so that issues found in the body can
// be reported against the file the author is actually editing.  A UTF-8 BOM
// and CRLF line endings are tolerated.
func Split(raw []byte) (fm []byte, body []byte, bodyLine int, err error) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	lines := bytes.SplitAfter(raw, []byte("\n"))
	if len(lines) == 0 || strings.TrimRight(string(lines[0]), "\r\n") != fence {
		return nil, raw, 1, ErrNoFrontMatter
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(string(lines[i]), "\r\n") == fence {
			fm = bytes.Join(lines[1:i], nil)
			body = bytes.Join(lines[i+1:], nil)
			return fm, body, i + 2, nil
		}
	}
	return nil, nil, 0, ErrUnclosedFrontMatter
}

// slugPattern is the character set allowed in an explicit slug override.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// validate is shared by all front-matter decoding (validator instances cache
// struct metadata, so there should be exactly one).
var validate = validator.New()

// ParseMeta decodes YAML front matter into a Meta and validates it.  The
// returned keyLines map gives the 1-based line (relative to the front-matter
// source, so add the file offset) of each top-level key, which lets callers
// position issues inside the front matter.  Validation problems are returned
// as a (possibly multi-line) error after a successful decode.
func ParseMeta(fm []byte) (meta Meta, keyLines map[string]int, err error) {
	var node yaml.Node
	if err = yaml.Unmarshal(fm, &node); err != nil {
		return meta, nil, err
	}

	keyLines = make(map[string]int)
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
		m := node.Content[0]
		for i := 0; i+1 < len(m.Content); i += 2 {
			keyLines[m.Content[i].Value] = m.Content[i].Line
		}
	}

	if node.Kind != 0 { // empty front matter decodes to a zero node
		if err = node.Decode(&meta); err != nil {
			return meta, keyLines, err
		}
	}

	return meta, keyLines, checkMeta(&meta)
}

// checkMeta runs validator struct tags plus the rules tags can't express.
func checkMeta(m *Meta) error {
	var problems []string

	if err := validate.Struct(m); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			for _, fe := range verr {
				problems = append(problems, fmt.Sprintf("%s fails %q", yamlKey(fe.Field()), fe.Tag()))
			}
		} else {
			return err
		}
	}

	if m.Slug != "" && !slugPattern.MatchString(m.Slug) {
		problems = append(problems, `slug must be lower-case letters, digits and hyphens`)
	}
	for _, a := range m.Aliases {
		if !strings.HasPrefix(a, "/") {
			problems = append(problems, fmt.Sprintf("alias %q must be an absolute route", a))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

// yamlKey maps a Go field name back to the YAML key authors actually write.
func yamlKey(field string) string {
	switch field {
	case "SidebarTitle":
		return "sidebarTitle"
	default:
		return strings.ToLower(field[:1]) + field[1:]
	}
}
