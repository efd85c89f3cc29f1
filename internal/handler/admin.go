package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/service"
)

// AdminHandler serves catalog management for the ADMIN role.
type AdminHandler struct {
	Flights   *service.FlightService
	Seats     *service.SeatGenerator
	Scheduler *service.JourneyScheduler
	Log       logrus.FieldLogger
}

func NewAdminHandler(f *service.FlightService, s *service.SeatGenerator, js *service.JourneyScheduler, log logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{Flights: f, Seats: s, Scheduler: js, Log: log.WithField("component", "admin_handler")}
}

// CreateFlight handles POST /v1/admin/flights.  With ?generate_seats=true the
// seat map is generated right away.
func (h *AdminHandler) CreateFlight(c echo.Context) error {
	var in service.FlightInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	f, err := h.Flights.Create(ctx, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if c.QueryParam("generate_seats") == "true" {
		if _, err := h.Seats.Generate(ctx, f.FlightNumber); err != nil {
			return writeError(c, h.Log, err)
		}
		if f, err = h.Flights.Get(ctx, f.FlightNumber); err != nil {
			return writeError(c, h.Log, err)
		}
	}
	return c.JSON(http.StatusCreated, f)
}

// ListFlights handles GET /v1/admin/flights.
func (h *AdminHandler) ListFlights(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	flights, err := h.Flights.List(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"flights": flights})
}

// UpdateFlight handles PUT /v1/admin/flights/:flightNumber.
func (h *AdminHandler) UpdateFlight(c echo.Context) error {
	var in service.FlightInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	f, err := h.Flights.Update(ctx, c.Param("flightNumber"), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, f)
}

// DeleteFlight handles DELETE /v1/admin/flights/:flightNumber.
func (h *AdminHandler) DeleteFlight(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Flights.Delete(ctx, c.Param("flightNumber")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GenerateSeats handles POST /v1/admin/flights/:flightNumber/seats.
func (h *AdminHandler) GenerateSeats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	status, err := h.Seats.Generate(ctx, c.Param("flightNumber"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"flight_number": c.Param("flightNumber"), "status": status})
}

// Sweep handles POST /v1/admin/journeys/sweep and runs one scheduler pass.
func (h *AdminHandler) Sweep(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	n, err := h.Scheduler.Sweep(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"transitions": n})
}
