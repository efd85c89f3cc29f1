// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/logging"
	"github.com/iliyamo/flight-reservation/internal/metrics"
	"github.com/iliyamo/flight-reservation/internal/middleware"
	"github.com/iliyamo/flight-reservation/internal/model"
)

// Deps is everything New needs.  Redis may be nil.
type Deps struct {
	Cfg   config.Config
	DB    *sql.DB
	Redis *redis.Client
	Log   logrus.FieldLogger

	Auth     *handler.AuthHandler
	Flights  *handler.FlightHandler
	Bookings *handler.BookingHandler
	Admin    *handler.AdminHandler
}

// New builds the Echo server with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(d.Log))
	if d.Cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
	}
	e.Use(middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis, d.Log))

	e.GET("/healthz", handler.Health(d.DB))
	RegisterAuth(e, d.Auth, d.Cfg.JWTSecret)
	RegisterPublic(e, d.Flights, middleware.NewRedisCache(d.Cfg.Cache, d.Redis, d.Log))
	RegisterCustomer(e, d.Bookings, d.Cfg.JWTSecret)
	RegisterAdmin(e, d.Admin, d.Cfg.JWTSecret)
	return e
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body or a bearer token, so it
	// runs without JWTAuth.
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))
}

// RegisterPublic registers the unauthenticated catalog endpoints.  Search and
// flight details go through the response cache; seat maps change with every
// booking and are served fresh.
func RegisterPublic(e *echo.Echo, h *handler.FlightHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/flights")
	g.GET("/search", h.Search, cache)
	g.GET("/trips", h.Trips, cache)
	g.GET("/:flightNumber", h.Get, cache)
	g.GET("/:flightNumber/seats", h.Seats)
	g.GET("/:flightNumber/layout", h.Layout)

	e.GET("/v1/airports/suggest", h.Airports, cache)
}
