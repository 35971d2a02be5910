// Package routes assembles the public gateway in front of the relief node.
// Operator tooling talks JSON-RPC to the node directly; field apps and
// dashboards come through here, where JWT scopes and per-route rate limits
// apply.
package routes

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"reliefchain/gateway/middleware"
)

// ServiceRoute maps a path prefix onto the node RPC with its own auth and
// throttling class.
type ServiceRoute struct {
	Name           string
	Prefix         string
	Target         *url.URL
	RequireAuth    bool
	RequiredScopes []string
	RateLimitKey   string
}

type Config struct {
	Routes        []ServiceRoute
	HealthHandler http.Handler
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
}

func New(cfg Config) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(cfg.CORS))

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	if cfg.HealthHandler != nil {
		r.Handle("/healthz", cfg.HealthHandler)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}

	for _, route := range cfg.Routes {
		proxy := NewProxy(route.Target, route.Prefix)
		r.Route(route.Prefix, func(sr chi.Router) {
			if cfg.RateLimiter != nil && route.RateLimitKey != "" {
				sr.Use(cfg.RateLimiter.Middleware(route.RateLimitKey))
			}
			if cfg.Authenticator != nil && route.RequireAuth {
				sr.Use(cfg.Authenticator.Middleware(route.RequiredScopes...))
			}
			if obs != nil {
				sr.Use(obs.Middleware(route.Name))
			}
			sr.Handle("/*", proxy)
			sr.Handle("/", proxy)
		})
	}

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r, nil
}
