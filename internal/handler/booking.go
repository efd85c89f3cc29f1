package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-reservation/internal/model"
	"github.com/iliyamo/flight-reservation/internal/service"
)

// BookingHandler serves the customer booking endpoints.  Every method
// expects JWTAuth to have run.
type BookingHandler struct {
	Bookings      *service.BookingService
	Cancellations *service.CancellationService
	Log           logrus.FieldLogger
}

func NewBookingHandler(b *service.BookingService, cx *service.CancellationService, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{Bookings: b, Cancellations: cx, Log: log.WithField("component", "booking_handler")}
}

// createBookingReq is either a single leg at the top level or a legs array
// for a round trip or multi-city itinerary.
type createBookingReq struct {
	service.BookRequest
	Legs []service.BookRequest `json:"legs"`
}

type paymentReq struct {
	Status    model.PaymentStatus `json:"status"`
	PaymentID string              `json:"payment_id"`
}

type bookingResp struct {
	BookingNo string          `json:"booking_no"`
	Bookings  []model.Booking `json:"bookings"`
}

// Create handles POST /v1/bookings.  All legs are booked atomically under one
// booking number; the seats stay RESERVED until payment is confirmed.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	legs := req.Legs
	if len(legs) == 0 {
		legs = []service.BookRequest{req.BookRequest}
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	booked, err := h.Bookings.BookItinerary(ctx, uid, legs)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, bookingResp{BookingNo: booked[0].BookingNo, Bookings: booked})
}

// Get handles GET /v1/bookings/:bookingNo.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	legs, err := h.Bookings.GetForUser(ctx, c.Param("bookingNo"), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, bookingResp{BookingNo: legs[0].BookingNo, Bookings: legs})
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	legs, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": legs})
}

// Tickets handles GET /v1/my-tickets.
func (h *BookingHandler) Tickets(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	tickets, err := h.Bookings.Tickets(ctx, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// BookingTickets handles GET /v1/my-tickets/:bookingNo.
func (h *BookingHandler) BookingTickets(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	tickets, err := h.Bookings.TicketsForBooking(ctx, c.Param("bookingNo"), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_no": c.Param("bookingNo"), "tickets": tickets})
}

// Payment handles POST /v1/bookings/:bookingNo/payment with a SUCCESS or
// FAILED outcome from the payment provider.
func (h *BookingHandler) Payment(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	bookingNo := c.Param("bookingNo")

	ctx, cancel := requestContext(c)
	defer cancel()
	if _, err := h.Bookings.GetForUser(ctx, bookingNo, uid); err != nil {
		return writeError(c, h.Log, err)
	}
	legs, err := h.Bookings.ConfirmPayment(ctx, bookingNo, model.PaymentStatus(strings.TrimSpace(string(req.Status))), req.PaymentID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, bookingResp{BookingNo: bookingNo, Bookings: legs})
}

// Cancel handles POST /v1/bookings/:bookingNo/cancel.  Cancelling twice is
// not an error; the second report says the legs were already cancelled.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingNo := c.Param("bookingNo")

	ctx, cancel := requestContext(c)
	defer cancel()
	if _, err := h.Bookings.GetForUser(ctx, bookingNo, uid); err != nil {
		return writeError(c, h.Log, err)
	}
	report, err := h.Cancellations.Cancel(ctx, bookingNo)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, report)
}
