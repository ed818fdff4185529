package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soundbite/engagement/internal/auth"
)

// RouterOptions configures the router outside of the handlers themselves.
type RouterOptions struct {
	AllowedOrigins []string
	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
}

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, authn *auth.Authenticator, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if authn != nil {
			r.Use(authn.Middleware)
		}

		r.Post("/events", h.TrackEvent)
		r.Post("/variants/allocate", h.AllocateVariant)

		r.Get("/rails/{rail}", h.GetRail)
		r.Post("/rails", h.PostRail)

		r.Route("/ab-tests", func(r chi.Router) {
			r.Post("/", h.StartABTest)
			r.Post("/conclude", h.ConcludeABTestBody)
			r.Get("/{testId}/results", h.GetABTestResults)
			r.Post("/{testId}/conclude", h.ConcludeABTest)
		})
	})

	return r
}
