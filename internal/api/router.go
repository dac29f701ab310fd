package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baseplate/querykit/internal/api/handlers"
	"github.com/baseplate/querykit/internal/api/middleware"
	"github.com/baseplate/querykit/internal/core/auth"
	"github.com/baseplate/querykit/internal/core/validation"
)

type Router struct {
	engine         *gin.Engine
	logger         *slog.Logger
	rateLimit      int
	trustedProxies []string
	authMiddleware *middleware.AuthMiddleware
	authHandler    *handlers.AuthHandler
	entityHandler  *handlers.EntityHandler
	healthHandler  *handlers.HealthHandler
}

// NewRouter wires the handlers. rateLimit is the number of searches allowed
// per minute and client; zero disables the limit. Forwarding headers are
// honoured only from trustedProxies.
func NewRouter(
	authService *auth.Service,
	authHandler *handlers.AuthHandler,
	entityHandler *handlers.EntityHandler,
	healthHandler *handlers.HealthHandler,
	rateLimit int,
	trustedProxies []string,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:         logger,
		rateLimit:      rateLimit,
		trustedProxies: trustedProxies,
		authMiddleware: middleware.NewAuthMiddleware(authService),
		authHandler:    authHandler,
		entityHandler:  entityHandler,
		healthHandler:  healthHandler,
	}
}

func (r *Router) Setup(mode string) *gin.Engine {
	gin.SetMode(mode)
	validation.RegisterBindings()

	r.engine = gin.New()
	if err := r.engine.SetTrustedProxies(r.trustedProxies); err != nil {
		r.logger.Error("invalid trusted proxies, trusting none", "error", err)
		_ = r.engine.SetTrustedProxies(nil)
	}
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.AuditMiddleware())
	r.engine.Use(middleware.RequestLogger(r.logger))
	r.engine.Use(middleware.Metrics())
	r.engine.Use(middleware.ErrorHandler())

	r.setupRoutes()
	return r.engine
}

func (r *Router) setupRoutes() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api")

	api.GET("/health", r.healthHandler.Health)

	// Auth routes (public)
	api.POST("/auth/token", r.authHandler.Token)

	// Key minting is guarded by the admin key only
	admin := api.Group("/admin")
	admin.Use(r.authMiddleware.RequireAdminKey())
	{
		admin.POST("/api-keys", r.authHandler.CreateAPIKey)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireTeam())
	{
		// API Keys of the caller's team
		protected.GET("/api-keys", r.authHandler.ListAPIKeys)
		protected.DELETE("/api-keys/:id", r.authMiddleware.RequirePermission(auth.PermEntityDelete), r.authHandler.DeleteAPIKey)

		entities := protected.Group("/entities")
		{
			entities.POST("", r.authMiddleware.RequirePermission(auth.PermEntityWrite), r.entityHandler.Create)
			entities.GET("", r.authMiddleware.RequirePermission(auth.PermEntityRead), r.entityHandler.List)
			entities.POST("/search",
				middleware.RateLimitMiddleware(r.rateLimit, r.rateLimit/10+1),
				r.authMiddleware.RequirePermission(auth.PermEntityRead),
				r.entityHandler.Search,
			)
			entities.GET("/:id", r.authMiddleware.RequirePermission(auth.PermEntityRead), r.entityHandler.Get)
			entities.PATCH("/:id", r.authMiddleware.RequirePermission(auth.PermEntityWrite), r.entityHandler.Update)
			entities.DELETE("/:id", r.authMiddleware.RequirePermission(auth.PermEntityDelete), r.entityHandler.Delete)
		}
	}
}
