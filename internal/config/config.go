// Package config loads docs.yaml.  Everything has a default, so a missing
// file just means a conventional tree: content in ./content, output in
// ./public, server on :8080.  The server block can also be set through
// GQLDOCS_* environment variables, which win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type (
	// Config is the whole of docs.yaml.
	Config struct {
		Title      string     `yaml:"title" validate:"max=200"`
		BaseURL    string     `yaml:"baseURL" validate:"omitempty,url"`
		ContentDir string     `yaml:"contentDir" validate:"required"`
		Schema     []string   `yaml:"schema"`
		Reference  Reference  `yaml:"reference"`
		Spellcheck Spellcheck `yaml:"spellcheck"`
		Check      Check      `yaml:"check"`
		Build      Build      `yaml:"build"`
		Server     Server     `yaml:"server"`
	}

	// Reference controls the generated schema reference section.
	Reference struct {
		Enabled bool   `yaml:"enabled"`
		Section string `yaml:"section" validate:"required"`
	}

	// Spellcheck points at the dictionary configuration.  An empty path
	// means the conventional cspell.json next to docs.yaml, if present.
	Spellcheck struct {
		Config string `yaml:"config"`
	}

	// Check controls the checking pipeline.
	Check struct {
		ExternalLinks bool     `yaml:"externalLinks"`
		Timeout       Duration `yaml:"timeout" validate:"min=0"`
	}

	// Build controls static output.
	Build struct {
		OutDir        string `yaml:"outDir" validate:"required"`
		IncludeDrafts bool   `yaml:"includeDrafts"`
	}

	// Server is the serve-mode block.  Each field can be overridden by the
	// environment variable named in its env tag.
	Server struct {
		Port            int      `yaml:"port" env:"GQLDOCS_PORT" validate:"min=1,max=65535"`
		ReadTimeout     Duration `yaml:"readTimeout" env:"GQLDOCS_READ_TIMEOUT" validate:"min=0"`
		WriteTimeout    Duration `yaml:"writeTimeout" env:"GQLDOCS_WRITE_TIMEOUT" validate:"min=0"`
		ShutdownTimeout Duration `yaml:"shutdownTimeout" env:"GQLDOCS_SHUTDOWN_TIMEOUT" validate:"min=0"`
		LogLevel        string   `yaml:"logLevel" env:"GQLDOCS_LOG_LEVEL" validate:"oneof=debug info warn error"`
		LogFormat       string   `yaml:"logFormat" env:"GQLDOCS_LOG_FORMAT" validate:"oneof=text json"`
		PreviewSecret   string   `yaml:"previewSecret" env:"GQLDOCS_PREVIEW_SECRET"`
	}
)

// Duration is a time.Duration that reads "5s" style values from YAML and
// environment variables alike.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// envParsers teaches the env package the Duration type.
var envParsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(Duration(0)): func(v string) (interface{}, error) {
		parsed, err := time.ParseDuration(v)
		return Duration(parsed), err
	},
}

// validate is shared (validator instances cache struct metadata).
var validate = validator.New()

// Default is the configuration a conventional tree needs no file for.
func Default() *Config {
	return &Config{
		ContentDir: "content",
		Reference:  Reference{Enabled: true, Section: "reference"},
		Check:      Check{Timeout: Duration(10 * time.Second)},
		Build:      Build{OutDir: "public"},
		Server: Server{
			Port:            8080,
			ReadTimeout:     Duration(5 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			LogLevel:        "info",
			LogFormat:       "text",
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides to the server block, and validates the result.  A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// zero-config; defaults plus environment carry the day
	case err != nil:
		return nil, fmt.Errorf("%w reading config %q", err, path)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true) // typoed keys should fail loudly, not vanish
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w in config %q", err, path)
		}
	}

	if err := env.ParseWithOptions(&cfg.Server, env.Options{FuncMap: envParsers}); err != nil {
		return nil, fmt.Errorf("%w parsing GQLDOCS_* environment overrides", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w validating config %q", err, path)
	}
	return cfg, nil
}
