package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync/atomic"

	"golang.org/x/oauth2"
)

var (
	ErrStateMismatch = errors.New("oauth callback state mismatch")
	ErrAuthDenied    = errors.New("authorization denied")
	ErrCallbackUsed  = errors.New("oauth callback already used")
)

// OAuthResult is the outcome of the single callback an [OAuthHandler] accepts.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
<title>hitx</title>
<style>
body { font-family: system-ui, sans-serif; display: grid; place-items: center; height: 100vh; margin: 0; background: #121212; color: #eee; }
h1 { color: {{if .OK}}#1DB954{{else}}#e22134{{end}}; }
</style>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Detail}}</p>
</main>
</body>
</html>
`))

type callbackView struct {
	OK     bool
	Title  string
	Detail string
}

// OAuthHandler serves the redirect target of the authorization code flow.
// It accepts exactly one callback; later requests are rejected.
type OAuthHandler struct {
	config   *oauth2.Config
	state    string
	verifier string
	used     atomic.Bool
	results  chan OAuthResult
}

// NewOAuthHandler returns a handler that checks state and exchanges the code.
// verifier is the PKCE code verifier matching the challenge in the authorization URL; empty
// sends no verifier.
func NewOAuthHandler(config *oauth2.Config, state, verifier string) *OAuthHandler {
	return &OAuthHandler{
		config:   config,
		state:    state,
		verifier: verifier,
		results:  make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.used.CompareAndSwap(false, true) {
		h.render(w, http.StatusBadRequest, ErrCallbackUsed)
		return
	}

	token, err := h.exchange(r)
	h.results <- OAuthResult{Token: token, err: err}
	close(h.results)

	switch {
	case err == nil:
		h.render(w, http.StatusOK, nil)
	case errors.Is(err, ErrStateMismatch), errors.Is(err, ErrAuthDenied):
		h.render(w, http.StatusBadRequest, err)
	default:
		h.render(w, http.StatusInternalServerError, err)
	}
}

func (h *OAuthHandler) exchange(r *http.Request) (*oauth2.Token, error) {
	q := r.URL.Query()
	if q.Get("state") != h.state {
		return nil, ErrStateMismatch
	}

	code := q.Get("code")
	if code == "" {
		reason := q.Get("error")
		if desc := q.Get("error_description"); desc != "" {
			reason += ": " + desc
		}
		return nil, fmt.Errorf("%w: %s", ErrAuthDenied, reason)
	}

	var opts []oauth2.AuthCodeOption
	if h.verifier != "" {
		opts = append(opts, oauth2.VerifierOption(h.verifier))
	}
	token, err := h.config.Exchange(r.Context(), code, opts...)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return token, nil
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, err error) {
	view := callbackView{OK: true, Title: "Logged in to hitx", Detail: "You can close this window and start scanning cards."}
	if err != nil {
		view = callbackView{Title: "Login failed", Detail: err.Error()}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, view)
}

// Result delivers exactly one [OAuthResult] and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.results
}
