package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/service"
)

// FlightHandler serves the public flight catalog.
type FlightHandler struct {
	Flights *service.FlightService
	Log     logrus.FieldLogger
}

func NewFlightHandler(flights *service.FlightService, log logrus.FieldLogger) *FlightHandler {
	return &FlightHandler{Flights: flights, Log: log.WithField("component", "flight_handler")}
}

// parseSearch reads the search filters from the query string.  Dates are
// YYYY-MM-DD in UTC; airline accepts a comma separated list.
func parseSearch(c echo.Context) (service.SearchParams, error) {
	var p service.SearchParams
	q := c.QueryParams()

	p.Source = firstNonEmpty(q.Get("source"), q.Get("from"))
	p.Destination = firstNonEmpty(q.Get("destination"), q.Get("to"))
	p.Airlines = splitList(q.Get("airline"))
	p.BookingType = model.BookingType(strings.ToUpper(q.Get("booking_type")))
	p.DepartureType = model.DepartureType(strings.ToUpper(q.Get("departure_type")))
	p.AircraftSize = model.AircraftSize(strings.ToUpper(q.Get("aircraft_size")))
	p.SpecialFare = model.SpecialFareType(strings.ToUpper(q.Get("special_fare")))

	if v := q.Get("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return p, model.NewValidationError("date must be YYYY-MM-DD")
		}
		p.DepartureDate = &d
	}
	if v := q.Get("upcoming"); v == "true" || v == "1" {
		now := time.Now().UTC()
		p.UpcomingAfter = &now
	}

	ints := []struct {
		name string
		dst  *int
	}{{"passengers", &p.Passengers}, {"page", &p.Page}, {"page_size", &p.PageSize}}
	for _, f := range ints {
		if v := q.Get(f.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return p, model.NewValidationError("%s must be a non-negative integer", f.name)
			}
			*f.dst = n
		}
	}
	if v := q.Get("max_stops"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, model.NewValidationError("max_stops must be a non-negative integer")
		}
		p.MaxStops = &n
	}
	var err error
	if p.MinPrice, err = priceParam(q.Get("min_price"), "min_price"); err != nil {
		return p, err
	}
	if p.MaxPrice, err = priceParam(q.Get("max_price"), "max_price"); err != nil {
		return p, err
	}
	return p, nil
}

func priceParam(v, name string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, model.NewValidationError("%s must be a non-negative number", name)
	}
	return &d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Search handles GET /v1/flights/search.
func (h *FlightHandler) Search(c echo.Context) error {
	p, err := parseSearch(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Flights.Search(ctx, p)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Trips handles GET /v1/flights/trips.  sources, destinations and dates are
// comma separated lists; ONE_WAY and ROUND_TRIP use their first entries.
func (h *FlightHandler) Trips(c echo.Context) error {
	base, err := parseSearch(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	q := c.QueryParams()
	p := service.TripSearchParams{
		SearchParams: base,
		TripType:     service.TripType(strings.ToUpper(q.Get("trip_type"))),
		Sources:      splitList(firstNonEmpty(q.Get("sources"), q.Get("source"))),
		Destinations: splitList(firstNonEmpty(q.Get("destinations"), q.Get("destination"))),
	}
	for _, v := range splitList(firstNonEmpty(q.Get("dates"), q.Get("date"))) {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return writeError(c, h.Log, model.NewValidationError("dates must be YYYY-MM-DD"))
		}
		p.Dates = append(p.Dates, d)
	}
	if v := q.Get("return_date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return writeError(c, h.Log, model.NewValidationError("return_date must be YYYY-MM-DD"))
		}
		p.ReturnDate = &d
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	legs, err := h.Flights.SearchTrip(ctx, p)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_type": p.TripType, "legs": legs})
}

// Airports handles GET /v1/airports/suggest?type=source|destination&q=prefix.
func (h *FlightHandler) Airports(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	codes, err := h.Flights.AirportSuggestions(ctx, c.QueryParam("type"), c.QueryParam("q"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"airports": codes})
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Get handles GET /v1/flights/:flightNumber.
func (h *FlightHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	f, err := h.Flights.Get(ctx, c.Param("flightNumber"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, f)
}

// Seats handles GET /v1/flights/:flightNumber/seats.
func (h *FlightHandler) Seats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	seats, err := h.Flights.Seats(ctx, c.Param("flightNumber"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"flight_number": strings.ToUpper(c.Param("flightNumber")), "seats": seats})
}

// Layout handles GET /v1/flights/:flightNumber/layout and renders the seat
// map as plain text.
func (h *FlightHandler) Layout(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	out, err := h.Flights.Layout(ctx, c.Param("flightNumber"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.String(http.StatusOK, out)
}
