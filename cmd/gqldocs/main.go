// Package main implements the gqldocs command line tool: serve a GraphQL
// library's documentation site with live reload, check its content, or
// build it as static files.
package main

import (
	"fmt"
	"os"
	"strings"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	cmd := strings.ToLower(os.Args[1])
	args := os.Args[2:]
	switch cmd {
	case "help", "-h", "--help":
		printHelp()
	case "version":
		fmt.Printf("gqldocs version %s\n", version)
	case "serve":
		os.Exit(serveCmd(args))
	case "build":
		os.Exit(buildCmd(args))
	case "check":
		os.Exit(checkCmd(args))
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	helpText := `Usage: gqldocs <command> [options]
Commands:
  help                 Display this help message.
  version              Show version information.
  serve   [options]    Serve the docs with live reload (e.g., serve -config docs.yaml -port 8080).
  build   [options]    Write the site out as static files (e.g., build -out public).
  check   [options]    Check spelling, links and snippets (e.g., check -json).
                       Exits 1 when errors are found, 2 when the check itself fails.
`
	fmt.Println(helpText)
}
