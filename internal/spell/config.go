// Package spell checks documentation prose against a word list.  The
// configuration file is a compatible subset of cspell.json - words,
// flagWords, ignorePaths, per-file overrides - so the same file keeps
// working with editor spell-check plugins.
package spell

// config.go loads the spell-check configuration and answers the two
// per-file questions: is this file checked at all, and which override
// applies to it

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed config-schema.json
var configSchema []byte

// DefaultMinWordLength is used when the configuration does not set one.
// Most short letter runs ("eg", "ie", initials) are not worth flagging.
const DefaultMinWordLength = 4

type (
	// Override adjusts the word lists for files matching a glob.
	Override struct {
		Filename    string   `json:"filename"`
		Words       []string `json:"words,omitempty"`
		IgnoreWords []string `json:"ignoreWords,omitempty"`
		FlagWords   []string `json:"flagWords,omitempty"`
	}

	// Config is the spell-check configuration.
	Config struct {
		Version       string     `json:"version,omitempty"`
		Language      string     `json:"language,omitempty"`
		Words         []string   `json:"words,omitempty"`
		FlagWords     []string   `json:"flagWords,omitempty"`
		IgnorePaths   []string   `json:"ignorePaths,omitempty"`
		Dictionaries  []string   `json:"dictionaries,omitempty"`
		MinWordLength int        `json:"minWordLength,omitempty"`
		Overrides     []Override `json:"overrides,omitempty"`

		// Dir is where the config file lives; dictionary paths are
		// resolved against it.  Not part of the JSON.
		Dir string `json:"-"`
	}
)

// DefaultConfig is the configuration used when no config file exists:
// base dictionary only.
func DefaultConfig() *Config {
	return &Config{MinWordLength: DefaultMinWordLength}
}

// LoadConfig reads and validates a spell-check configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w reading spell config %q", err, path)
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("%w in %q", err, path)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// ParseConfig validates raw JSON against the embedded schema and decodes it.
// Schema-first means a typoed key ("ignoredPaths") is an error instead of a
// silently useless setting.
func ParseConfig(raw []byte) (*Config, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(configSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w validating spell config", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, fmt.Errorf("invalid spell config: %s", strings.Join(msgs, "; "))
	}

	cfg := &Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w decoding spell config", err)
	}
	if cfg.MinWordLength == 0 {
		cfg.MinWordLength = DefaultMinWordLength
	}
	return cfg, nil
}

// Ignored reports whether a file (slash path relative to the content dir)
// is excluded from spell checking.
func (c *Config) Ignored(rel string) bool {
	for _, p := range c.IgnorePaths {
		if matchGlob(p, rel) {
			return true
		}
	}
	return false
}

// overrideFor returns the first override whose glob matches, or nil.
func (c *Config) overrideFor(rel string) *Override {
	for i := range c.Overrides {
		if matchGlob(c.Overrides[i].Filename, rel) {
			return &c.Overrides[i]
		}
	}
	return nil
}

// matchGlob matches a doublestar pattern against a slash path.  A pattern
// without a slash matches at any depth, like gitignore.
func matchGlob(pattern, rel string) bool {
	if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if ok, err := doublestar.Match("**/"+pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
