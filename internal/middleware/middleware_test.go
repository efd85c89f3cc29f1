package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/config"
	"github.com/iliyamo/flight-reservation/internal/utils"
)

func hello(c echo.Context) error { return c.String(http.StatusOK, "hello") }

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	}, JWTAuth("secret"), RequireRole("ADMIN"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	customer, err := utils.NewAccessToken("secret", 7, "CUSTOMER", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+customer.Token)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	admin, err := utils.NewAccessToken("secret", 9, "ADMIN", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+admin.Token)
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":9}`, rec.Body.String())
}

func rateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Second,
		TTL: 10 * time.Second, KeyStrategy: "ip", Prefix: "rl",
	}
}

func TestTokenBucket(t *testing.T) {
	nowFunc = func() time.Time { return time.UnixMilli(1_000_000) }
	t.Cleanup(func() { nowFunc = time.Now })
	rdb, mock := redismock.NewClientMock()
	logger, _ := test.NewNullLogger()

	e := echo.New()
	e.GET("/flights", hello, NewTokenBucket(rateConfig(), rdb, logger))
	args := []any{int64(1_000_000), 2, 1, int64(1000), int64(10)}
	keys := []string{"rl:ip:192.0.2.1"}

	mock.ExpectEvalSha(tokenBucket.Hash(), keys, args...).SetVal([]any{int64(1), int64(1), int64(0)})
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	mock.ExpectEvalSha(tokenBucket.Hash(), keys, args...).SetVal([]any{int64(0), int64(0), int64(400)})
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	mock.ExpectEvalSha(tokenBucket.Hash(), keys, args...).SetErr(errors.New("connection refused"))
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := echo.New()
	e.GET("/flights", hello, NewTokenBucket(rateConfig(), nil, logger))
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil)).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/bookings")
	c.Set(ctxUserID, uint64(12))

	cfg := rateConfig()
	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:192.0.2.1:user:12:route:POST /bookings", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:12", buildRateKey(cfg, c))
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true},
		TTL: 30 * time.Second, KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1024,
	}
}

func keyFor(e *echo.Echo, target string) string {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/flights")
	return cacheKeyFrom(cacheConfig(), c)
}

func TestRedisCache_MissThenStore(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	logger, _ := test.NewNullLogger()
	e := echo.New()
	e.GET("/flights", hello, NewRedisCache(cacheConfig(), rdb, logger))

	key := keyFor(e, "/flights?to=IST&from=IKA")
	assert.Equal(t, key, keyFor(e, "/flights?from=IKA&to=IST"))

	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {echo.MIMETextPlainCharsetUTF8}}, []byte("hello"))
	require.NoError(t, err)
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetEx(key, payload, 30*time.Second).SetVal("OK")

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/flights?to=IST&from=IKA", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "hello", rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Hit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	logger, _ := test.NewNullLogger()
	e := echo.New()
	called := false
	e.GET("/flights", func(c echo.Context) error {
		called = true
		return hello(c)
	}, NewRedisCache(cacheConfig(), rdb, logger))

	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {echo.MIMEApplicationJSON}}, []byte(`{"flights":[]}`))
	require.NoError(t, err)
	mock.ExpectGet(keyFor(e, "/flights")).SetVal(string(payload))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/flights", nil))
	assert.False(t, called)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"flights":[]}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayloadRejectsShortInput(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 1})
	assert.False(t, ok)
}
