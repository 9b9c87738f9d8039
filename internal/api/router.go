package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface: middleware, CORS, the versioned API
// and the operational endpoints.
func NewRouter(h *Handlers, healthCheck http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthCheck)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/scraper", func(r chi.Router) {
			r.Post("/test", h.TestScrape)
			r.Post("/fetch", h.FetchPrice)
			r.Post("/batch", h.RunBatch)
		})

		r.Route("/urls", func(r chi.Router) {
			r.Post("/", h.CreateTrackedURL)
			r.Get("/", h.ListTrackedURLs)
			r.Get("/{id}", h.GetTrackedURL)
			r.Put("/{id}", h.UpdateTrackedURL)
			r.Delete("/{id}", h.DeleteTrackedURL)
			r.Post("/{id}/run", h.RunTrackedURL)
			r.Get("/{id}/attempts", h.ListAttempts)
		})

		r.Get("/attempts", h.ListRecentAttempts)

		r.Route("/prices", func(r chi.Router) {
			r.Get("/", h.ListPrices)
			r.Get("/{materialKey}", h.GetPrice)
			r.Put("/{materialKey}", h.SetPrice)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", h.CacheStats)
			r.Delete("/", h.ClearCache)
		})

		r.Get("/ratelimit/{identity}", h.RateLimitStats)
	})

	return r
}
