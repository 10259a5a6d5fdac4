package api

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/99minutos/auth-api/docs"
	"github.com/99minutos/auth-api/internal/api/handler"
	"github.com/99minutos/auth-api/internal/api/middleware"
	"github.com/99minutos/auth-api/internal/core/ports"
)

const (
	defaultAPIPrefix     = "/api/v1"
	defaultRatePerMinute = 100
	bodyLimit            = "1M"
	metricsSubsystem     = "http"
)

// RouterConfig carries the transport settings of the HTTP API.
type RouterConfig struct {
	APIPrefix          string
	AllowedOrigins     []string
	RateLimitPerMinute int
	// TrustedProxies are the ranges whose X-Forwarded-For is believed. When
	// empty the socket peer is the client IP.
	TrustedProxies []*net.IPNet
	// Registerer and Gatherer default to the global prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig, authService ports.AuthService, health *handler.HealthHandler, log zerolog.Logger) *echo.Echo {
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = defaultAPIPrefix
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = defaultRatePerMinute
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor(cfg.TrustedProxies)
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "auth",
		Subsystem:  metricsSubsystem,
		Registerer: cfg.Registerer,
		Skipper:    probeSkipper,
	}))
	e.Use(middleware.RequestLogger(log))
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
			AllowCredentials: true,
		}))
	}
	e.Use(rateLimiter(cfg.RateLimitPerMinute))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestMeta())

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(authService)
	requireAuth := middleware.Auth(authService)

	// --- Auth routes ---
	v1 := e.Group(cfg.APIPrefix)
	v1.POST("/register", authHandler.Register)
	v1.POST("/token", authHandler.Token)
	v1.POST("/refresh", authHandler.Refresh)
	v1.POST("/logout", authHandler.Logout, requireAuth)
	v1.GET("/users/me", authHandler.Me, requireAuth)
	v1.GET("/users", userHandler.List, requireAuth, middleware.RequireSuperuser())

	// --- Probes, metrics and docs (no auth required) ---
	e.GET("/health/live", health.Liveness)
	e.GET("/health", health.Health)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: cfg.Gatherer}))
	e.GET("/docs/*", echoSwagger.WrapHandler)

	return e
}

// rateLimiter allows perMinute requests per client IP, refilled continuously.
func rateLimiter(perMinute int) echo.MiddlewareFunc {
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Skipper: probeSkipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded: %d per 1 minute", perMinute))
		},
	})
}

// ipExtractor decides what c.RealIP returns for the rate limiter, request
// logs and audit events. Forwarding headers are ignored unless they arrive
// through a trusted proxy.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range trusted {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// probeSkipper keeps health checks, metrics scrapes and docs out of the
// request metrics and the rate limiter.
func probeSkipper(c echo.Context) bool {
	p := c.Request().URL.Path
	return strings.HasPrefix(p, "/health") || p == "/metrics" || strings.HasPrefix(p, "/docs")
}
