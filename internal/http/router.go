package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/skincareplus/internal/domain/user"
	"github.com/geocoder89/skincareplus/internal/http/handlers"
	"github.com/geocoder89/skincareplus/internal/http/middlewares"
	"github.com/geocoder89/skincareplus/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// AuthService is what the router needs from the auth package: the handler
// surface plus token verification for RequireAuth.
type AuthService interface {
	handlers.AuthService
	middlewares.Authenticator
}

type Deps struct {
	Env         string
	ServiceName string
	Tracing     bool
	CORSOrigins []string

	RateLimitAuthRPM int
	RateLimitAPIRPM  int

	Prom           *observability.Prom
	MetricsHandler http.Handler

	Auth            AuthService
	Users           handlers.UserLister
	Appointments    handlers.AppointmentsRepo
	Analyses        handlers.AnalysesRepo
	Recommendations handlers.RecommendationsRepo

	HealthChecks   map[string]handlers.PingFunc
	IsShuttingDown func() bool
}

func NewRouter(log *slog.Logger, d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	if d.Tracing {
		r.Use(otelgin.Middleware(d.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.HealthChecks, d.IsShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	authLimiter := middlewares.NewRateLimiter("auth", d.RateLimitAuthRPM)
	apiLimiter := middlewares.NewRateLimiter("api", d.RateLimitAPIRPM)
	if d.Prom != nil {
		authLimiter.OnLimited(d.Prom.ObserveRateLimited)
		apiLimiter.OnLimited(d.Prom.ObserveRateLimited)
	}

	authMW := middlewares.NewAuthMiddleware(d.Auth)
	authHandler := handlers.NewAuthHandler(d.Auth)

	api := r.Group("/api")

	// public auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/check-username", apiLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.CheckUsername)
	authGroup.GET("/check-email", apiLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.CheckEmail)

	// everything below needs a verified caller
	protected := api.Group("")
	protected.Use(authMW.RequireAuth())
	protected.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	protected.GET("/auth/profile", authHandler.Profile)

	appointments := handlers.NewAppointmentsHandler(d.Appointments)
	protected.POST("/appointments", appointments.Create)
	protected.GET("/appointments", appointments.List)
	protected.GET("/appointments/count", appointments.Count)
	protected.GET("/appointments/:id", appointments.Get)
	protected.PUT("/appointments/:id", appointments.Update)
	protected.PATCH("/appointments/:id/status", appointments.UpdateStatus)
	protected.DELETE("/appointments/:id", appointments.Delete)

	analyses := handlers.NewAnalysesHandler(d.Analyses, d.Recommendations)
	protected.POST("/analyses", analyses.Create)
	protected.GET("/analyses", analyses.List)
	protected.GET("/analyses/latest", analyses.Latest)
	protected.GET("/analyses/:id", analyses.Get)
	protected.GET("/analyses/:id/recommendation", analyses.Recommendation)
	protected.DELETE("/analyses/:id", analyses.Delete)

	recommendations := handlers.NewRecommendationsHandler(d.Recommendations, d.Analyses)
	protected.POST("/recommendations", recommendations.Create)
	protected.GET("/recommendations", recommendations.List)
	protected.GET("/recommendations/latest", recommendations.Latest)
	protected.GET("/recommendations/:id", recommendations.Get)

	admin := protected.Group("/admin")
	admin.Use(middlewares.RequireRole(user.RoleAdmin))

	adminHandler := handlers.NewAdminHandler(d.Users)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/analyses/stats", analyses.Stats)
	admin.GET("/analyses/high-confidence", analyses.HighConfidence)

	return r
}
