package server

import "net/http"

// CallbackRouter serves the routes of a single [Handler] behind a middleware chain.
//
// Paths must match a route exactly and only GET is accepted. Anything else is
// answered with 404 or 405 and never reaches the handler, which accepts one callback.
type CallbackRouter struct {
	routes map[string]bool
	next   http.Handler
	chain  http.Handler
}

// NewCallbackRouter wraps handler with middleware, applied in the order given
// (the first middleware sees the request first).
func NewCallbackRouter(handler Handler, middleware ...Middleware) *CallbackRouter {
	r := &CallbackRouter{routes: map[string]bool{}, next: handler}
	for _, route := range handler.Routes() {
		r.routes[route] = true
	}

	var chain http.Handler = http.HandlerFunc(r.dispatch)
	for i := len(middleware) - 1; i >= 0; i-- {
		chain = middleware[i](chain)
	}
	r.chain = chain
	return r
}

func (r *CallbackRouter) dispatch(w http.ResponseWriter, req *http.Request) {
	if !r.routes[req.URL.Path] {
		http.NotFound(w, req)
		return
	}
	if req.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.next.ServeHTTP(w, req)
}

// ServeHTTP implements [http.Handler].
func (r *CallbackRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.chain.ServeHTTP(w, req)
}
