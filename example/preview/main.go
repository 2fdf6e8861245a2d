package main

import (
	"log"
	"net/http"

	"github.com/gqldocs/gqldocs"
)

const address = "localhost:8080"

func main() {
	docs := gqldocs.MustRun("content", gqldocs.PreviewSecret([]byte(APP_SECRET)))

	http.Handle("/", docs)
	http.HandleFunc("/login", login)

	log.Println("starting server on: http://" + address + " (drafts unlock at /login)")
	http.ListenAndServe(address, nil)
	log.Println("stopping server")
}
