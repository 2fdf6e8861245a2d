package gqldocs

// run.go provides the MustRun function for quickly serving a docs directory

import (
	"net/http"
)

// MustRun assembles the site under contentDir and returns the http handler
// that serves it, panicking if the content cannot be loaded.  It is meant
// for the common one-liner:
//
//	http.ListenAndServe(":8080", gqldocs.MustRun("docs/content"))
//
// Anything that can go wrong here (missing directory, broken front matter,
// unparsable schema) is a deployment problem, not a runtime one, so a panic
// at startup is the kindest failure mode.  Use New and GetHandler when you
// want the error instead.
func MustRun(contentDir string, opts ...Option) http.Handler {
	d := New(contentDir, opts...)
	h, err := d.GetHandler()
	if err != nil {
		panic(err)
	}
	return h
}
