package spell

// tokenizer.go walks markdown source line by line, masks out the regions
// that are code or markup rather than prose, and yields the word parts that
// should be checked

import (
	"regexp"
	"strings"
	"unicode"
)

// token is one candidate word part with its position.
type token struct {
	part string // the piece to look up (lower case happens in the checker)
	word string // the full token it was split from
	line int    // 1-based line number
	col  int    // 1-based byte column of the part
}

var (
	fencePattern = regexp.MustCompile("^ {0,3}(```+|~~~+)")

	// regions replaced by spaces before tokenizing, so columns stay honest
	maskPatterns = []*regexp.Regexp{
		regexp.MustCompile("`+[^`]+`+"),              // inline code
		regexp.MustCompile(`\]\([^)]*\)`),            // link/image destination (and title)
		regexp.MustCompile(`\]\[[^\]]*\]`),           // reference-style link label
		regexp.MustCompile(`^\s*\[[^\]]+\]:\s*\S+`),  // reference definition
		regexp.MustCompile(`https?://[^\s)>\]]+`),    // bare URLs
		regexp.MustCompile(`www\.[^\s)>\]]+`),        //
		regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`),  // email addresses
		regexp.MustCompile(`</?[A-Za-z][^<>]*>`),     // HTML tags
	}
)

// scanner is the per-file state: whether we are inside a code fence and
// what closes it.
type scanner struct {
	inFence   bool
	fenceMark byte
	fenceLen  int
}

// scanLine masks and tokenizes one line, calling yield for every part.
// Fenced and indented code produce nothing.
func (s *scanner) scanLine(line string, lineNo int, yield func(token)) {
	if m := fencePattern.FindStringSubmatch(line); m != nil {
		mark := m[1]
		if !s.inFence {
			s.inFence, s.fenceMark, s.fenceLen = true, mark[0], len(mark)
		} else if mark[0] == s.fenceMark && len(mark) >= s.fenceLen {
			s.inFence = false
		}
		return
	}
	if s.inFence {
		return
	}
	if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ") {
		return // indented code block
	}

	masked := mask(line)
	for _, t := range tokenize(masked) {
		t.line = lineNo
		yield(t)
	}
}

// mask replaces every non-prose region with spaces of the same length.
func mask(line string) string {
	b := []byte(line)
	for _, re := range maskPatterns {
		for _, m := range re.FindAllIndex(b, -1) {
			for i := m[0]; i < m[1]; i++ {
				b[i] = ' '
			}
		}
	}
	return string(b)
}

// tokenize extracts tokens (runs of letters, digits, apostrophes, hyphens
// and underscores) and splits each into checkable parts.
func tokenize(line string) []token {
	var out []token
	start := -1
	for i, r := range line {
		if tokenRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = appendParts(out, line[start:i], start)
			start = -1
		}
	}
	if start >= 0 {
		out = appendParts(out, line[start:], start)
	}
	return out
}

func tokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-' || r == '_'
}

// appendParts splits one token at separators, digits and camelCase
// boundaries and appends the letter-only parts.  "getUserByID" gives
// "get", "User", "By", "ID"; "HTTPServer" gives "HTTP", "Server";
// "v4-beta" gives "v" and "beta".
func appendParts(out []token, tok string, tokCol int) []token {
	runes := []rune(tok)
	start := -1
	flush := func(end int) {
		if start < 0 || start >= end {
			return
		}
		out = append(out, token{
			part: string(runes[start:end]),
			word: tok,
			col:  tokCol + len(string(runes[:start])) + 1,
		})
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '\'':
			flush(i)
			start = -1
		case unicode.IsDigit(r):
			flush(i)
			start = -1
		default:
			if start < 0 {
				start = i
				continue
			}
			if unicode.IsUpper(r) {
				prev := runes[i-1]
				nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextIsLower) {
					flush(i)
					start = i
				}
			}
		}
	}
	flush(len(runes))
	return out
}
