package main

// flags.go defines each subcommand's flags.  Every flag falls back to a
// GQLDOCS_* environment variable so CI pipelines need no wrapper scripts.

import (
	"flag"
	"os"
	"strconv"

	"github.com/gqldocs/gqldocs/internal/config"
)

// commonFlags are shared by serve, build and check.
type commonFlags struct {
	configPath string
	contentDir string
	logLevel   string
	logFormat  string
}

func addCommon(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}

	fs.StringVar(&f.configPath, "config",
		getEnv("GQLDOCS_CONFIG", "docs.yaml"),
		"Path to the configuration file (env: GQLDOCS_CONFIG)")

	fs.StringVar(&f.contentDir, "content",
		getEnv("GQLDOCS_CONTENT", ""),
		"Content directory, overriding the configuration (env: GQLDOCS_CONTENT)")

	fs.StringVar(&f.logLevel, "log-level",
		getEnv("GQLDOCS_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: GQLDOCS_LOG_LEVEL)")

	fs.StringVar(&f.logFormat, "log-format",
		getEnv("GQLDOCS_LOG_FORMAT", ""),
		"Log format: json, text (env: GQLDOCS_LOG_FORMAT)")

	return f
}

// apply folds the explicitly-set flags into the loaded configuration.
// Empty flags leave the configuration (and its own env overrides) alone.
func (f *commonFlags) apply(cfg *config.Config) {
	if f.contentDir != "" {
		cfg.ContentDir = f.contentDir
	}
	if f.logLevel != "" {
		cfg.Server.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Server.LogFormat = f.logFormat
	}
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
