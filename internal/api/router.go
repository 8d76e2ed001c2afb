package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/chen0112/Caregiver-backend/internal/api/middleware"
	"github.com/chen0112/Caregiver-backend/internal/config"
	"github.com/chen0112/Caregiver-backend/internal/handlers"
	"github.com/chen0112/Caregiver-backend/internal/store"
)

// NewRouter creates and configures the HTTP router. redisStore may be nil;
// rate limiting and presence degrade gracefully without it.
func NewRouter(logger zerolog.Logger, cfg *config.Config, db store.DataStore, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (requires Redis)
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger, cfg.RateLimitWhitelist)
		r.Use(limiter.Middleware)
	}

	// CORS - the web and mobile clients call from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(db, redisStore, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Messaging core
		r.Post("/messages", h.SendMessage)
		r.Get("/messages", h.GetMessages)
		r.Get("/conversations", h.ListConversations)
		r.Get("/conversations/{id}/messages", h.GetConversationMessages)

		// Account directory
		r.Post("/accounts/register", h.Register)
		r.Post("/accounts/signin", h.SignIn)
		r.Post("/accounts/verification", h.RequestVerification)
		r.Post("/accounts/verification/check", h.CheckVerification)
		r.Get("/accounts/{phone}", h.GetAccount)
		r.Post("/accounts/{phone}/seen", h.TouchSeen)

		// Profiles (all four verticals via kind)
		r.Post("/profiles", h.CreateProfile)
		r.Get("/profiles", h.ListProfiles)
		r.Get("/profiles/mine/{phone}", h.MyProfiles)
		r.Get("/profiles/{id}", h.GetProfile)
		r.Patch("/profiles/{id}", h.UpdateProfile)
		r.Get("/profiles/{id}/schedules", h.ProfileSchedules)

		// Listings (classified ads)
		r.Post("/listings", h.CreateListing)
		r.Get("/listings", h.ListListings)
		r.Get("/listings/{id}", h.GetListing)
		r.Patch("/listings/{id}", h.UpdateListing)

		// Schedules (care plans)
		r.Post("/schedules", h.CreateSchedule)
		r.Get("/schedules", h.ListSchedules)
	})

	return r
}
