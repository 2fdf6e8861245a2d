package main

// build.go writes the site out as static files

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gqldocs/gqldocs"
	"github.com/gqldocs/gqldocs/internal/config"
)

func buildCmd(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	common := addCommon(fs)
	out := fs.String("out", getEnv("GQLDOCS_OUT", ""),
		"Output directory, overriding the configuration (env: GQLDOCS_OUT)")
	fs.Parse(args)

	cfg, err := config.Load(common.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	common.apply(cfg)
	logger := initLogger(os.Stdout, cfg.Server.LogLevel, cfg.Server.LogFormat)

	outDir := *out
	if outDir == "" {
		outDir = cfg.Build.OutDir
	}

	d := gqldocs.New(cfg.ContentDir, gqldocs.WithLogger(logger))
	d.SetConfig(*cfg)

	start := time.Now()
	if err := d.Build(context.Background(), outDir); err != nil {
		logger.Error("build failed", "error", err)
		return 1
	}
	logger.Info("site built", "out", outDir, "elapsed", time.Since(start))
	return 0
}
