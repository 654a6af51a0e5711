// Package api serves the MealMatch JSON API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mealmatch/internal/app"
	"mealmatch/internal/auth"
	"mealmatch/internal/config"
	"mealmatch/internal/logging"
)

// Server routes API requests to the application.
type Server struct {
	router   *chi.Mux
	app      *app.App
	validate *validator.Validate
}

// NewServer builds the router. gatherer backs the /metrics endpoint.
func NewServer(a *app.App, tokens *auth.TokenIssuer, gatherer prometheus.Gatherer, cfg config.HTTPConfig) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		app:      a,
		validate: validator.New(),
	}

	router := s.router
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(requestLogger)
	router.Use(chimiddleware.Recoverer)
	if cfg.RateLimit > 0 && cfg.RateWindow > 0 {
		router.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RateWindow))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Route("/api", func(r chi.Router) {
		r.Use(tokens.Middleware)

		r.Get("/mealplan", s.GetMealPlan)
		r.Post("/mealplan/regenerate", s.RegenerateMealPlan)
		r.Get("/export/mealplan/{format}", s.ExportMealPlan)

		r.Get("/ingredients", s.ListIngredients)
		r.Post("/ingredients", s.UpsertIngredient)
		r.Delete("/ingredients/{name}", s.DeleteIngredient)

		r.Get("/recipes", s.ListRecipes)
		r.Post("/recipes", s.CreateRecipe)
		r.Post("/recipes/import", s.ImportRecipe)
		r.Get("/recipes/{id}", s.GetRecipe)
		r.Put("/recipes/{id}", s.UpdateRecipe)
		r.Delete("/recipes/{id}", s.DeleteRecipe)
		r.Get("/export/recipes/{id}/{format}", s.ExportRecipe)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
