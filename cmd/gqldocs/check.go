package main

// check.go runs the content checks and reports what they found.  The report
// goes to stdout, logs to stderr, and the exit code says how it went:
// 0 clean (warnings allowed), 1 errors in the content, 2 the run failed.

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gqldocs/gqldocs"
	"github.com/gqldocs/gqldocs/internal/config"
)

func checkCmd(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	common := addCommon(fs)
	external := fs.Bool("external-links", getEnvBool("GQLDOCS_EXTERNAL_LINKS", false),
		"Probe external links too (env: GQLDOCS_EXTERNAL_LINKS)")
	asJSON := fs.Bool("json", false, "Write the report as JSON")
	fs.Parse(args)

	cfg, err := config.Load(common.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	common.apply(cfg)
	if *external {
		cfg.Check.ExternalLinks = true
	}
	logger := initLogger(os.Stderr, cfg.Server.LogLevel, cfg.Server.LogFormat)

	d := gqldocs.New(cfg.ContentDir, gqldocs.WithLogger(logger))
	d.SetConfig(*cfg)

	rep, err := d.GetReport(context.Background())
	if err != nil {
		logger.Error("check failed", "error", err)
		return 2
	}

	if *asJSON {
		err = rep.WriteJSON(os.Stdout)
	} else {
		err = rep.WriteText(os.Stdout)
	}
	if err != nil {
		logger.Error("cannot write the report", "error", err)
		return 2
	}

	if rep.Failed() {
		return 1
	}
	return 0
}
