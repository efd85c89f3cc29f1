package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/database/dbtest"
	"github.com/iliyamo/flight-reservation/internal/handler"
	"github.com/iliyamo/flight-reservation/internal/queue"
	"github.com/iliyamo/flight-reservation/internal/repository"
	"github.com/iliyamo/flight-reservation/internal/service"
)

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	db := dbtest.Open(t)
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)
	cfg := config.Config{
		Env: "test", JWTSecret: "test-secret", AccessTTLMin: 5, RefreshTTLDays: 1,
		BcryptCost: 4, MetricsEnabled: true,
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	flights := repository.NewFlightRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	events := queue.NopPublisher{}

	catalog := service.NewFlightService(flights, seats, bookings, log)
	generator := service.NewSeatGenerator(db, flights, seats, log)
	scheduler := service.NewJourneyScheduler(db, flights, bookings, 0, log)
	booking := service.NewBookingService(db, users, flights, seats, bookings, events, log)
	cancel := service.NewCancellationService(db, flights, seats, bookings, events, log)

	e := New(Deps{
		Cfg: cfg, DB: db, Log: log,
		Auth:     handler.NewAuthHandler(cfg, users, tokens, log),
		Flights:  handler.NewFlightHandler(catalog, log),
		Bookings: handler.NewBookingHandler(booking, cancel, log),
		Admin:    handler.NewAdminHandler(catalog, generator, scheduler, log),
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type authBody struct {
	User struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (a *api) register(email, role string) authBody {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"email": email, "password": "passw0rd!", "role": role})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authBody](a.t, rec)
}

func flightBody(number string) map[string]any {
	return map[string]any{
		"flight_number":       number,
		"airline":             "Aurora",
		"source_airport":      "IKA",
		"destination_airport": "IST",
		"aircraft_size":       "LIGHT",
		"booking_type":        "REFUNDABLE",
		"departure_type":      "INTERNATIONAL",
		"departure_at":        "2031-03-10T08:00:00Z",
		"arrival_at":          "2031-03-10T11:00:00Z",
		"base_price":          "1000",
		"capacity":            8,
		"cancellation_charge": 20,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	u := a.register("Sara@Example.com", "")
	assert.Equal(t, "CUSTOMER", u.User.Role)

	rec := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "sara@example.com", "password": "passw0rd!"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "sara@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "sara@example.com", "password": "passw0rd!"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/v1/me", u.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"sara@example.com"`)

	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": u.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[authBody](t, rec)
	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": u.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "old refresh token is revoked")

	rec = a.do(http.MethodPost, "/v1/auth/logout", rotated.Access.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": rotated.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingLifecycle(t *testing.T) {
	a := newAPI(t)
	admin := a.register("ops@example.com", "ADMIN")
	require.Equal(t, "ADMIN", admin.User.Role)
	sara := a.register("sara@example.com", "")
	reza := a.register("reza@example.com", "")

	rec := a.do(http.MethodPost, "/v1/admin/flights", sara.Access.Token, flightBody("AU100"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodPost, "/v1/admin/flights?generate_seats=true", admin.Access.Token, flightBody("au100"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"available_seats":8`)

	rec = a.do(http.MethodGet, "/v1/flights/search?from=ika&to=IST&date=2031-03-10&passengers=2&special_fare=student", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	search := decode[struct {
		Total   int `json:"total"`
		Flights []struct {
			FlightNumber string `json:"flight_number"`
			FarePrice    string `json:"fare_price"`
		} `json:"flights"`
	}](t, rec)
	require.Equal(t, 1, search.Total)
	assert.Equal(t, "AU100", search.Flights[0].FlightNumber)
	assert.Equal(t, "500", search.Flights[0].FarePrice)

	rec = a.do(http.MethodGet, "/v1/flights/search?date=10-03-2031", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	book := map[string]any{
		"flight_number": "AU100",
		"passengers": []map[string]any{
			{"name": "Sara", "age": 31, "gender": "FEMALE", "passport_number": "P100", "seat_number": "1a"},
		},
	}
	rec = a.do(http.MethodPost, "/v1/bookings", "", book)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodPost, "/v1/bookings", sara.Access.Token, book)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		BookingNo string `json:"booking_no"`
		Bookings  []struct {
			Status        string `json:"status"`
			PaymentStatus string `json:"payment_status"`
		} `json:"bookings"`
	}](t, rec)
	require.Len(t, created.Bookings, 1)
	assert.Equal(t, "PENDING", created.Bookings[0].Status)
	bookingNo := created.BookingNo

	book["passengers"] = []map[string]any{{"name": "Reza", "age": 40, "passport_number": "P200", "seat_number": "1A"}}
	rec = a.do(http.MethodPost, "/v1/bookings", reza.Access.Token, book)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already taken")

	rec = a.do(http.MethodGet, "/v1/bookings/"+bookingNo, reza.Access.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodPost, "/v1/bookings/"+bookingNo+"/cancel", reza.Access.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodGet, "/v1/bookings/"+bookingNo, sara.Access.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, "/v1/bookings/"+bookingNo+"/payment", sara.Access.Token, map[string]string{"status": "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(http.MethodPost, "/v1/bookings/"+bookingNo+"/payment", sara.Access.Token, map[string]string{"status": "success", "payment_id": "pay_1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)

	rec = a.do(http.MethodGet, "/v1/flights/AU100/layout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Flight: AU100\n"))
	assert.Contains(t, rec.Body.String(), "[X][B]")

	rec = a.do(http.MethodGet, "/v1/my-tickets", sara.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"passenger_name":"Sara"`)
	rec = a.do(http.MethodGet, "/v1/my-bookings", reza.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookings":[]}`, rec.Body.String())

	rec = a.do(http.MethodDelete, "/v1/admin/flights/AU100", admin.Access.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/bookings/"+bookingNo+"/cancel", sara.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[struct {
		Status  string `json:"status"`
		Flights []struct {
			FlightNumber  string `json:"flight_number"`
			ChargePercent int    `json:"cancellation_charge_percent"`
		} `json:"flights"`
	}](t, rec)
	assert.Equal(t, "CANCELLED", report.Status)
	require.Len(t, report.Flights, 1)
	assert.Equal(t, 10, report.Flights[0].ChargePercent)

	rec = a.do(http.MethodGet, "/v1/flights/AU100", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available_seats":8`)

	rec = a.do(http.MethodPost, "/v1/admin/journeys/sweep", admin.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"transitions":0}`, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/admin/flights/AU100/seats", admin.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"UPDATED"`)
}

func TestAdminFlightCatalog(t *testing.T) {
	a := newAPI(t)
	admin := a.register("ops@example.com", "ADMIN")

	bad := flightBody("AU200")
	bad["arrival_at"] = "2031-03-10T07:00:00Z"
	rec := a.do(http.MethodPost, "/v1/admin/flights", admin.Access.Token, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/v1/admin/flights", admin.Access.Token, flightBody("AU200"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available_seats":0`)
	rec = a.do(http.MethodPost, "/v1/admin/flights", admin.Access.Token, flightBody("AU200"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodGet, "/v1/admin/flights", admin.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"flight_number":"AU200"`)

	rec = a.do(http.MethodDelete, "/v1/admin/flights/AU200", admin.Access.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, "/v1/flights/AU200", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodPost, "/v1/admin/flights/AU200/seats", admin.Access.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTripSearchSuggestionsAndFlightUpdate(t *testing.T) {
	a := newAPI(t)
	admin := a.register("ops@example.com", "ADMIN")
	sara := a.register("sara@example.com", "")

	back := flightBody("AU301")
	back["source_airport"], back["destination_airport"] = "IST", "IKA"
	back["departure_at"], back["arrival_at"] = "2031-03-11T08:00:00Z", "2031-03-11T11:00:00Z"
	for _, body := range []map[string]any{flightBody("AU300"), back} {
		rec := a.do(http.MethodPost, "/v1/admin/flights?generate_seats=true", admin.Access.Token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := a.do(http.MethodGet, "/v1/flights/trips?trip_type=round_trip&sources=IKA&destinations=IST&dates=2031-03-10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	trip := decode[struct {
		Legs []struct {
			Key     string `json:"key"`
			Flights []struct {
				FlightNumber string `json:"flight_number"`
			} `json:"flights"`
		} `json:"legs"`
	}](t, rec)
	require.Len(t, trip.Legs, 2)
	assert.Equal(t, "IKA_IST", trip.Legs[0].Key)
	assert.Equal(t, "IST_IKA", trip.Legs[1].Key)
	require.Len(t, trip.Legs[1].Flights, 1)
	assert.Equal(t, "AU301", trip.Legs[1].Flights[0].FlightNumber)

	rec = a.do(http.MethodGet, "/v1/flights/trips?trip_type=ROUND_TRIP&sources=IKA&destinations=IST&dates=2031-03-10&return_date=2031-03-20", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(http.MethodGet, "/v1/flights/trips?trip_type=ONE_WAY&sources=IKA&destinations=IST&dates=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/v1/airports/suggest?type=source&q=i", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"airports":["IKA","IST"]}`, rec.Body.String())
	rec = a.do(http.MethodGet, "/v1/airports/suggest?type=runway&q=i", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"airports":[]}`, rec.Body.String())

	update := flightBody("ignored")
	update["airline"] = "Borealis"
	rec = a.do(http.MethodPut, "/v1/admin/flights/AU300", sara.Access.Token, update)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodPut, "/v1/admin/flights/AU300", admin.Access.Token, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"airline":"Borealis"`)
	assert.Contains(t, rec.Body.String(), `"flight_number":"AU300"`)
	update["capacity"] = 12
	rec = a.do(http.MethodPut, "/v1/admin/flights/AU300", admin.Access.Token, update)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.do(http.MethodPut, "/v1/admin/flights/AU999", admin.Access.Token, flightBody("AU999"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	book := map[string]any{
		"flight_number": "AU300",
		"passengers": []map[string]any{
			{"name": "Sara", "age": 31, "gender": "FEMALE", "passport_number": "P300", "seat_number": "2B"},
		},
	}
	rec = a.do(http.MethodPost, "/v1/bookings", sara.Access.Token, book)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bookingNo := decode[struct {
		BookingNo string `json:"booking_no"`
	}](t, rec).BookingNo

	rec = a.do(http.MethodGet, "/v1/my-tickets/"+bookingNo, sara.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"seat_number":"2B"`)
	other := a.register("reza@example.com", "")
	rec = a.do(http.MethodGet, "/v1/my-tickets/"+bookingNo, other.Access.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
