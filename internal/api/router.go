package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/internal/app"
	"github.com/gatehouse-dev/gatehouse/internal/app/maintenance"
	iauth "github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/cache"
	"github.com/gatehouse-dev/gatehouse/internal/handlers"
	"github.com/gatehouse-dev/gatehouse/internal/middleware"
	"github.com/gatehouse-dev/gatehouse/internal/repository"
	"github.com/gatehouse-dev/gatehouse/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// registration, activation and inspection routes.
func NewRouter(db *gorm.DB, tokens *iauth.TokenService, cfg *app.Config, registrations *services.RegistrationService, cleaner *maintenance.Cleaner, limits cache.Store) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if registrations == nil {
		return nil, fmt.Errorf("registration service must be provided")
	}
	if cleaner == nil {
		return nil, fmt.Errorf("maintenance cleaner must be provided")
	}

	store, err := repository.NewStore(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(limits, cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window))
	}

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	authHandler := handlers.NewAuthHandler(store, tokens)
	registrationHandler := handlers.NewRegistrationHandler(registrations)
	inspectionHandler := handlers.NewInspectionHandler(registrations, store, cleaner, limits)

	// Public routes: inspector login, self-registration and activation.
	r.POST("/api/auth/token", authHandler.Token)

	reg := r.Group("/api/registration")
	{
		reg.POST("", registrationHandler.Register)
		reg.POST("/activate/:key", registrationHandler.Activate)
	}

	// Protected routes
	requireAuth := middleware.Auth(tokens)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	inspection := api.Group("/inspection")
	{
		inspection.GET("/profiles", inspectionHandler.List)
		inspection.GET("/profiles/:id", inspectionHandler.Get)
		inspection.POST("/profiles/:id/accept", inspectionHandler.Accept)
		inspection.POST("/profiles/:id/reject", inspectionHandler.Reject)
		inspection.POST("/sweeps/expired", inspectionHandler.SweepExpired)
		inspection.POST("/sweeps/rejected", inspectionHandler.SweepRejected)
		inspection.GET("/stats", inspectionHandler.Stats)
	}

	// Metrics endpoint
	if cfg.Monitoring.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
