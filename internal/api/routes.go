package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"stusave.app/config"
)

func SetupRouter(ex Exchange, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(ex, cfg, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(EchoRequestID)
	r.Use(Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         86400,
	}))

	// Health
	r.Get("/health", h.Health)

	transfer := func(r chi.Router) {
		r.Use(JSONOnly)

		redeem := http.HandlerFunc(h.RedeemTransfer)
		if cfg.RateLimit.Enabled {
			r.Use(httprate.LimitByIP(cfg.RateLimit.RequestsPerMin, time.Minute))
			r.Get("/", httprate.LimitByIP(cfg.RateLimit.RedeemPerMin, time.Minute)(redeem).ServeHTTP)
		} else {
			r.Get("/", redeem)
		}
		r.Post("/", h.RegisterTransfer)
	}

	// The app posts to /transfer; /api/transfer is kept for clients built against the API prefix.
	r.Route("/transfer", transfer)
	r.Route("/api/transfer", transfer)

	return r
}
