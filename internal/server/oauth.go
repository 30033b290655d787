package server

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/mcampolo/reeldeck/internal/shared"
)

// OAuthResult is the outcome of one authorization attempt. AccountID carries
// the Dropbox account the token was minted for, when the token response
// includes one.
type OAuthResult struct {
	Token     *oauth2.Token
	AccountID string
	err       error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler terminates the authorization-code leg of the Dropbox OAuth2
// flow on localhost. It serves /callback at most once per handler: the state
// check guards against CSRF, the code is exchanged for a token pair, and the
// outcome is delivered exactly once through [OAuthHandler.Result].
type OAuthHandler struct {
	config  *oauth2.Config
	state   string
	results chan OAuthResult

	mu      sync.Mutex
	settled bool
}

// NewOAuthHandler wires a handler for a single authorization attempt. state
// must match the value embedded in the auth URL (see [shared.GenerateState]).
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:  config,
		state:   state,
		results: make(chan OAuthResult, 1),
	}
}

// Routes implements [Handler].
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP processes the provider redirect. Repeat hits after the first are
// rejected so a replayed redirect cannot race the token exchange.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.settled {
		h.mu.Unlock()
		http.Error(w, "Authorization already completed", http.StatusConflict)
		return
	}
	h.settled = true
	h.mu.Unlock()

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, "State mismatch",
			fmt.Errorf("%w: state parameter mismatch", shared.ErrAuthFailed))
		return
	}

	code := query.Get("code")
	if code == "" {
		// Dropbox reports a denied or failed grant through error and
		// error_description query parameters.
		h.fail(w, http.StatusBadRequest, "Authorization was not granted",
			fmt.Errorf("%w: %s (%s)", shared.ErrAuthFailed,
				query.Get("error"), query.Get("error_description")))
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, http.StatusBadGateway, "Token exchange failed",
			fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err))
		return
	}

	// A missing refresh token means the auth URL lacked
	// token_access_type=offline; the short-lived access token still works
	// for this session, so the result is delivered either way.
	result := OAuthResult{Token: token}
	if id, ok := token.Extra("account_id").(string); ok {
		result.AccountID = id
	}
	h.deliver(result)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// fail reports err on the result channel and renders a terse error page.
func (h *OAuthHandler) fail(w http.ResponseWriter, status int, msg string, err error) {
	h.deliver(OAuthResult{err: err})
	http.Error(w, msg, status)
}

// deliver publishes the outcome and closes the channel. The settled gate in
// ServeHTTP guarantees a single caller.
func (h *OAuthHandler) deliver(result OAuthResult) {
	h.results <- result
	close(h.results)
}

// Result yields exactly one [OAuthResult], then the channel closes.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}

const successPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>reeldeck · connected</title>
<style>
  body { margin: 0; min-height: 100vh; display: grid; place-items: center;
         background: #fff; font-family: system-ui, sans-serif; color: #1e1919; }
  main { text-align: center; }
  .badge { width: 56px; height: 56px; border-radius: 50%; background: #0061FF;
           color: #fff; font-size: 32px; line-height: 56px; margin: 0 auto 1rem; }
  h1 { font-size: 1.4rem; margin: 0 0 .5rem; }
  p { color: #637282; margin: 0; }
</style>
</head>
<body>
<main>
  <div class="badge">✓</div>
  <h1>Dropbox connected</h1>
  <p>reeldeck has access to your videos. Close this tab and return to the terminal.</p>
</main>
</body>
</html>
`
