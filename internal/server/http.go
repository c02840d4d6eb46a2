package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atlastravel/pricingservice/internal/catalog"
	"github.com/atlastravel/pricingservice/internal/log"
	"github.com/atlastravel/pricingservice/internal/metrics"
	"github.com/atlastravel/pricingservice/internal/pricing"
	"github.com/atlastravel/pricingservice/internal/quote/sync"
	"github.com/atlastravel/pricingservice/internal/ratelimit"
)

// Server is the HTTP surface the excluded quote-editing layers call.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Deps carries the collaborators the HTTP layer exposes.
type Deps struct {
	Manager    *sync.Manager
	Calculator *pricing.Calculator
	Catalog    catalog.Catalog
	Limiter    ratelimit.RateLimiter
	Logger     *zap.Logger
}

// New creates the HTTP server with all routes registered.
func New(port int, deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.NoopRateLimiter{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(metricsMiddleware())
	router.Use(rateLimitMiddleware(deps.Limiter))

	h := &handlers{
		manager: deps.Manager,
		calc:    deps.Calculator,
		catalog: deps.Catalog,
	}
	registerRoutes(router, h)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: deps.Logger,
	}
}

// NewRouter builds the routes alone, used by handler tests.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := &handlers{
		manager: deps.Manager,
		calc:    deps.Calculator,
		catalog: deps.Catalog,
	}
	registerRoutes(router, h)
	return router
}

func registerRoutes(router *gin.Engine, h *handlers) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/pricing/calculate", h.calculatePrice)
		api.POST("/pricing/validate", h.validateParams)

		sessions := api.Group("/quote-sessions")
		{
			sessions.POST("", h.createSession)
			sessions.GET("/:id", h.getSession)
			sessions.DELETE("/:id", h.endSession)
			sessions.POST("/:id/package", h.selectPackage)
			sessions.DELETE("/:id/package", h.unlinkPackage)
			sessions.PUT("/:id/parameters", h.parametersChanged)
			sessions.PUT("/:id/price", h.setManualPrice)
			sessions.POST("/:id/reset", h.resetToCalculated)
			sessions.POST("/:id/retry", h.retry)
		}
	}
}

// Start runs the server until it is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(log.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func rateLimitMiddleware(limiter ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// A broken limiter must not take the service down.
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
