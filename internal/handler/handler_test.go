package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/model"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec), rec
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{model.NewValidationError("bad"), http.StatusBadRequest},
		{model.NewNotFoundError("missing"), http.StatusNotFound},
		{model.NewConflictError("dup"), http.StatusConflict},
		{model.NewStateError("taken"), http.StatusConflict},
		{model.NewFareError("family"), http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		logger, hook := test.NewNullLogger()
		c, rec := newContext("/")
		require.NoError(t, writeError(c, logger, tc.err))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		if tc.code == http.StatusInternalServerError {
			assert.Contains(t, rec.Body.String(), "internal error")
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		} else {
			assert.Contains(t, rec.Body.String(), tc.err.Error())
			assert.Nil(t, hook.LastEntry())
		}
	}
}

func TestParseSearch(t *testing.T) {
	c, _ := newContext("/v1/flights/search?from=ika&destination=IST&date=2031-01-10&airline=Aurora,%20Zagros&passengers=3&page=2&page_size=5&max_stops=1&min_price=100&max_price=900.50&special_fare=student&booking_type=refundable")
	p, err := parseSearch(c)
	require.NoError(t, err)
	assert.Equal(t, "ika", p.Source)
	assert.Equal(t, "IST", p.Destination)
	require.NotNil(t, p.DepartureDate)
	assert.Equal(t, 10, p.DepartureDate.Day())
	assert.Equal(t, []string{"Aurora", "Zagros"}, p.Airlines)
	assert.Equal(t, 3, p.Passengers)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 5, p.PageSize)
	require.NotNil(t, p.MaxStops)
	assert.Equal(t, 1, *p.MaxStops)
	assert.Equal(t, "100", p.MinPrice.String())
	assert.Equal(t, "900.5", p.MaxPrice.String())
	assert.Equal(t, model.FareStudent, p.SpecialFare)
	assert.Equal(t, model.Refundable, p.BookingType)
	assert.Nil(t, p.UpcomingAfter)
}

func TestParseSearch_Rejects(t *testing.T) {
	for _, q := range []string{"date=tomorrow", "passengers=-1", "page=x", "max_stops=two", "max_price=-5", "min_price=cheap"} {
		c, _ := newContext("/v1/flights/search?" + q)
		_, err := parseSearch(c)
		assert.True(t, model.IsKind(err, model.KindValidation), q)
	}
}

func TestGetUserID(t *testing.T) {
	c, _ := newContext("/")
	_, err := getUserID(c)
	assert.Error(t, err)
	c.Set("user_id", uint64(5))
	id, err := getUserID(c)
	require.NoError(t, err)
	assert.EqualValues(t, 5, id)
}
