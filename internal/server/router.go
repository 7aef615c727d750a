package server

import (
	"net/http"
	"slices"
	"strings"
)

// Mux is the [Router] behind the auth callback listener.
//
// Routes use method-qualified [http.ServeMux] patterns ("GET /callback"), so a request with the
// wrong method gets a 405 from the mux itself.
type Mux struct {
	mux        *http.ServeMux
	middleware []Middleware
	patterns   []string
}

var _ Router = (*Mux)(nil)

// NewMux returns an empty [Mux].
func NewMux() *Mux {
	return &Mux{mux: http.NewServeMux()}
}

// Use appends middleware. It only affects routes registered afterwards.
func (m *Mux) Use(middleware ...Middleware) {
	m.middleware = append(m.middleware, middleware...)
}

// Handle registers handler for path, restricted to method.
func (m *Mux) Handle(method, path string, handler http.Handler) {
	m.register(strings.ToUpper(method)+" "+path, handler)
}

// Handler registers every route of h. Patterns without a method accept any method.
func (m *Mux) Handler(h Handler) {
	for _, route := range h.Routes() {
		m.register(route, h)
	}
}

// Patterns lists the registered patterns in registration order.
func (m *Mux) Patterns() []string {
	return slices.Clone(m.patterns)
}

func (m *Mux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

func (m *Mux) register(pattern string, handler http.Handler) {
	m.mux.Handle(pattern, m.wrap(handler))
	m.patterns = append(m.patterns, pattern)
}

// wrap applies middleware so that the first one added sees the request first.
func (m *Mux) wrap(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(m.middleware) {
		handler = mw(handler)
	}
	return handler
}
