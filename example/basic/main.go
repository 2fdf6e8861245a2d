package main

import (
	"net/http"

	"github.com/gqldocs/gqldocs"
)

// Serve the markdown tree under content/ as a docs site: navigation,
// search and the manifest all come from the files themselves.
func main() {
	http.Handle("/", gqldocs.MustRun("content"))
	http.ListenAndServe(":8080", nil)
}
