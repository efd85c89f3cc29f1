package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/middleware"
	"github.com/iliyamo/flight-reservation/internal/model"
)

// RegisterAdmin registers catalog management under /v1/admin for the ADMIN
// role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	g.POST("/flights", h.CreateFlight)
	g.GET("/flights", h.ListFlights)
	g.PUT("/flights/:flightNumber", h.UpdateFlight)
	g.DELETE("/flights/:flightNumber", h.DeleteFlight)
	g.POST("/flights/:flightNumber/seats", h.GenerateSeats)
	g.POST("/journeys/sweep", h.Sweep)
}
