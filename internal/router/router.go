package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/eventdesk/internal/config"
	"github.com/iliyamo/eventdesk/internal/handler"
	"github.com/iliyamo/eventdesk/internal/metrics"
	"github.com/iliyamo/eventdesk/internal/middleware"
)

// Deps carries everything the route table needs.  Redis may be nil, in
// which case caching is off and rate limiting runs in-process.
type Deps struct {
	Auth      *handler.AuthHandler
	Events    *handler.EventHandler
	CheckIn   *handler.CheckInHandler
	Analytics *handler.AnalyticsHandler
	Setup     *handler.SetupHandler

	JWTSecret      string
	AllowedOrigins []string
	RateLimit      config.RateLimitConfig
	Cache          config.CacheConfig
	Redis          *redis.Client
}

// New builds the echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(metrics.Middleware())
	if len(d.AllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:  d.AllowedOrigins,
			AllowHeaders:  []string{echo.HeaderAuthorization, echo.HeaderContentType},
			ExposeHeaders: []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
		}))
	}

	RegisterRoutes(e, d.Setup)
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	RegisterAuth(e, d.Auth, d.JWTSecret, limiter)
	RegisterOrganizer(e, d, limiter)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// health, metrics, the setup check and ticket codes.
func RegisterRoutes(e *echo.Echo, s *handler.SetupHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if s != nil {
		e.GET("/v1/setup/status", s.Status)
	}
	e.GET("/v1/tickets/qr", handler.TicketQR)
	e.POST("/v1/tickets/codes", handler.TicketCodes)
}

// RegisterAuth registers sign-up/sign-in/refresh/sign-out under /v1/auth and
// the protected /v1/me.  Sign-out takes either a refresh token or a bearer
// token, so it does not sit behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/signup", a.Signup)
	g.POST("/signin", a.Signin)
	g.POST("/refresh", a.Refresh)
	g.POST("/signout", a.Signout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), limiter)
}

// RegisterOrganizer registers the event registry, check-in and analytics
// routes.  Every route requires a valid access token and only ever touches
// the caller's own events.
func RegisterOrganizer(e *echo.Echo, d Deps, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret), limiter)

	// ---- Events ----
	g.GET("/events", d.Events.List)
	g.POST("/events", d.Events.Create)
	g.GET("/events/:id", d.Events.Get)
	g.PUT("/events/:id", d.Events.Update)
	g.DELETE("/events/:id", d.Events.Delete)

	// ---- Participants ----
	g.POST("/events/:id/participants", d.CheckIn.CheckIn)
	g.GET("/events/:id/participants", d.CheckIn.Roster)
	g.GET("/events/:id/participants.csv", d.CheckIn.ExportCSV)
	g.GET("/events/:id/live", d.CheckIn.Live)

	// ---- Analytics ----
	// Cached per user; check-ins and event changes bump the user's cache
	// generation so the next report is recomputed.
	g.GET("/analytics", d.Analytics.Report, middleware.NewRedisCache(d.Cache, d.Redis))
}
