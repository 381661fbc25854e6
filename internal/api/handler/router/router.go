package router

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/vfg2006/saas-metrics-api/pkg/apiErrors"
)

var (
	WithRoutes = func(routes ...Route) ConfigRouter {
		return func(router *Router) {
			router.AddRoutes(routes...)
		}
	}
)

// Route binds a handler to a path. An empty Method registers the handler for
// every method the path does not otherwise serve.
type Route struct {
	Path        string
	Method      string
	Handler     http.Handler
	Middlewares []func(http.Handler) http.Handler // applied in order, first is outermost
}

type Router struct {
	router    *httprouter.Router
	fallbacks map[string]http.Handler
}

type ConfigRouter func(router *Router)

func New(configs ...ConfigRouter) Router {
	hr := httprouter.New()
	hr.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiErrors.WriteError(w, apiErrors.ErrNotFound, "route not found", nil)
	})

	router := &Router{router: hr, fallbacks: make(map[string]http.Handler)}

	hr.HandleOPTIONS = false
	hr.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if fallback, ok := router.fallbacks[req.URL.Path]; ok {
			fallback.ServeHTTP(w, req)
			return
		}
		apiErrors.WriteError(w, apiErrors.ErrMethodNotAllowed, "method not allowed", nil)
	})

	for _, config := range configs {
		config(router)
	}

	return *router
}

func (r Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

func (r Router) AddRoutes(routes ...Route) {
	for _, route := range routes {
		var handler http.Handler = route.Handler

		for i := len(route.Middlewares) - 1; i >= 0; i-- {
			handler = route.Middlewares[i](handler)
		}

		if route.Method == "" {
			r.fallbacks[route.Path] = handler
			continue
		}

		r.router.Handler(route.Method, route.Path, handler)
	}
}
