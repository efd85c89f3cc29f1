package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "flight_reservation.db", c.SQLitePath)
	assert.Equal(t, 15, c.AccessTTLMin)
	assert.Equal(t, time.Minute, c.SchedulerInterval)
	assert.Equal(t, 15*time.Minute, c.HoldTTL)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Cache.Methods)
	assert.Equal(t, 10*time.Second, c.RateLimit.TTL)
	assert.Equal(t, "localhost:6379", c.Redis.address())
}

func TestLoad_MySQL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASS", "pw")
	t.Setenv("REDIS_HOST", "cache")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", c.DBHost)
	assert.Equal(t, "pw", c.DBPass)
	assert.Equal(t, "cache:6379", c.Redis.address())
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "postgres")
	_, err = Load()
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")

	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_USER")

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("BOOKING_HOLD_TTL", "-1m")
	_, err = Load()
	assert.ErrorContains(t, err, "BOOKING_HOLD_TTL")
}
