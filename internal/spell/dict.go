package spell

// dict.go holds the word lists and answers "is this a word we know?",
// trying common English suffixes so the lists only need base forms

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strings"
)

//go:embed basewords.txt
var baseWords string

type dictionary struct {
	words map[string]struct{}
}

func newDictionary() *dictionary {
	return &dictionary{words: make(map[string]struct{})}
}

// baseDictionary parses the embedded word list.
func baseDictionary() *dictionary {
	d := newDictionary()
	// the embedded list is well-formed, Scan over a string cannot fail
	_ = d.addList(strings.NewReader(baseWords))
	return d
}

func (d *dictionary) add(w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w != "" {
		d.words[w] = struct{}{}
	}
}

// addList reads one word per line; blank lines and # comments are skipped.
func (d *dictionary) addList(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.add(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w reading word list", err)
	}
	return nil
}

func (d *dictionary) has(w string) bool {
	_, ok := d.words[w]
	return ok
}

// suffixes tried (in order) when a word is not found as written.
var suffixes = []string{"'s", "s", "es", "ed", "ing", "ly", "er", "ers"}

// known reports whether w (lower case) is in the dictionary, directly or as
// base + suffix: "resolvers" matches "resolver", "caching" matches "cache",
// "stopped" matches "stop".
func (d *dictionary) known(w string) bool {
	if d.has(w) {
		return true
	}
	for _, suf := range suffixes {
		base, ok := strings.CutSuffix(w, suf)
		if !ok || len(base) < 2 {
			continue
		}
		if d.has(base) {
			return true
		}
		switch suf {
		case "ed", "ing", "er", "ers":
			// dropped final e: configured -> configure
			if d.has(base + "e") {
				return true
			}
			// doubled final consonant: stopped -> stop
			if base[len(base)-1] == base[len(base)-2] && d.has(base[:len(base)-1]) {
				return true
			}
		case "es":
			// queries -> query, dependencies -> dependency
			if strings.HasSuffix(base, "i") && d.has(base[:len(base)-1]+"y") {
				return true
			}
		}
	}
	return false
}
