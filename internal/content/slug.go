package content

// slug.go generates URL slugs and heading anchors (GitHub style) so that the
// loader, the renderer and the link checker all agree on what an anchor is

import (
	"strconv"
	"strings"
	"unicode"
)

// Slugify lower-cases s, keeps letters, digits, hyphens and underscores,
// turns spaces into hyphens and drops everything else.  This matches the
// anchor that readers get when they link to a heading, so the link checker
// must use the same function as the renderer.
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '\t':
			b.WriteRune('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Slugger hands out anchors, suffixing repeats with -1, -2, ... the way
// GitHub does, so two headings with the same text still get distinct IDs.
type Slugger struct {
	seen map[string]int
}

// NewSlugger creates a Slugger.  A separate one is needed per page.
func NewSlugger() *Slugger {
	return &Slugger{seen: make(map[string]int)}
}

// Reserve marks an anchor as taken (eg. one the author wrote out by hand)
// so that generated anchors shift out of its way.
func (sl *Slugger) Reserve(id string) {
	sl.seen[id]++
}

// Slug returns the de-duplicated anchor for the given heading text.
func (sl *Slugger) Slug(text string) string {
	base := Slugify(text)
	n, dup := sl.seen[base]
	sl.seen[base]++
	if !dup {
		return base
	}
	// keep bumping in case "x-1" also exists as its own heading
	for {
		candidate := base + "-" + strconv.Itoa(n)
		if _, clash := sl.seen[candidate]; !clash {
			sl.seen[candidate] = 1
			return candidate
		}
		n++
	}
}
