package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"pantry-intake/internal/forms"
	"pantry-intake/internal/intake"
	"pantry-intake/internal/services/health"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/metrics"
	"pantry-intake/internal/shared/server/middleware"
	"pantry-intake/internal/shared/server/respond"
)

// ServiceName labels spans created by the HTTP middleware.
const ServiceName = "pantry-intake"

// RouterDeps holds the handlers mounted by NewRouter. FormsHandler and Health are optional.
type RouterDeps struct {
	Config        config.Config
	IntakeHandler *intake.Handler
	FormsHandler  *forms.Handler
	Health        *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		otelgin.Middleware(ServiceName),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.OK(c, gin.H{"ok": true})
			return
		}
		body, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, body)
	})

	secured := api.Group("")
	secured.Use(
		middleware.WebhookAuth(deps.Config.WebhookToken),
		middleware.RateLimit(rateLimitConfig(deps.Config)),
	)
	if deps.IntakeHandler != nil {
		deps.IntakeHandler.RegisterRoutes(secured)
	}
	if deps.FormsHandler != nil {
		deps.FormsHandler.RegisterRoutes(secured)
	}

	return r
}

// rateLimitConfig gives reads twice the write budget.
func rateLimitConfig(cfg config.Config) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "WRITE",
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet {
				return "READ"
			}
			return "WRITE"
		},
		Rules: map[string]middleware.RateLimitRule{
			"WRITE": {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
			"READ":  {Rate: 2 * cfg.RateLimitRPS, Burst: 2 * cfg.RateLimitBurst},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
