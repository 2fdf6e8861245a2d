// Package gqldocs turns a directory of markdown guides for a GraphQL server
// library into a documentation site.

// It's one tool instead of four because the jobs share everything: the same
// parsed pages are spell checked, link checked, rendered for serving and
// written out as static files, and the GraphQL schema that validates the
// snippets in your guides also generates the reference section.  For
// example, here is a complete docs server:

//package main
//
//import (
//    "net/http"
//
//    "github.com/gqldocs/gqldocs"
//)
//
//func main() {
//	http.Handle("/", gqldocs.MustRun("docs/content"))
//	http.ListenAndServe(":8080", nil)
//}

// This serves every page under docs/content at its route (docs/content/
// guides/queries.md becomes /guides/queries/), with navigation, search and
// an ordered JSON manifest at /api/manifest.

// The same content can be checked in CI (New + GetReport: spelling, link
// targets, snippet syntax, schema validation) and shipped as static files
// (Build), so what you verified is what you serve.

// See the README.md file for more details on using the package.

package gqldocs

// TODO:
// incremental reassembly - only re-render the pages a watch event touched
// persist the search index in the render cache so reassembly skips it
// probe #fragment anchors when external link checking is on
