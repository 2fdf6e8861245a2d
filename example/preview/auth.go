package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gqldocs/gqldocs"
	"golang.org/x/crypto/bcrypt"
)

const (
	APP_ISSUER = "github.com/gqldocs/gqldocs/example/preview"
	APP_SECRET = "drafts-are-not-for-everyone" // TODO get this from secret store
)

// editors maps an email to a bcrypt hash of their password.  A real server
// would keep these in a store; one hard-coded editor does for an example.
var editors = map[string][]byte{}

func init() {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	editors["editor@example.com"] = hash
}

const loginForm = `<!DOCTYPE html>
<p>Log in to preview draft pages (try editor@example.com / letmein).</p>
<form method="post" action="/login">
  <input name="email" placeholder="email">
  <input name="password" type="password" placeholder="password">
  <button>Log in</button>
</form>`

// login shows the form on GET and checks the password on POST.  A correct
// password redirects to the home page with a preview token in the query;
// the docs handler swaps the token into a cookie so every later request
// stays unlocked.
func login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, loginForm)
		return
	}

	hash, ok := editors[r.FormValue("email")]
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(r.FormValue("password"))) != nil {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := gqldocs.PreviewToken([]byte(APP_SECRET), APP_ISSUER, 24*time.Hour)
	if err != nil {
		http.Error(w, "cannot issue a token", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/?preview="+token, http.StatusSeeOther)
}
