package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/middleware"
	"github.com/iliyamo/flight-reservation/internal/model"
)

// RegisterCustomer registers the booking endpoints.  Any signed-in user may
// book; ownership of a booking number is checked in the handlers.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	}
	e.POST("/v1/bookings", h.Create, auth...)
	e.GET("/v1/bookings/:bookingNo", h.Get, auth...)
	e.POST("/v1/bookings/:bookingNo/payment", h.Payment, auth...)
	e.POST("/v1/bookings/:bookingNo/cancel", h.Cancel, auth...)
	e.GET("/v1/my-bookings", h.Mine, auth...)
	e.GET("/v1/my-tickets", h.Tickets, auth...)
	e.GET("/v1/my-tickets/:bookingNo", h.BookingTickets, auth...)
}
