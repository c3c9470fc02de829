package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketRefills(t *testing.T) {
	now := time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := l.Allow(ctx, "ip")
	assert.False(t, ok, "bucket should be empty")

	ok, _ = l.Allow(ctx, "other-ip")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(2 * time.Second)
	ok, _ = l.Allow(ctx, "ip")
	assert.True(t, ok, "tokens refill at 60/min")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		limiter Limiter
		status  int
	}{
		"deny":      {denyLimiter{}, http.StatusTooManyRequests},
		"fail open": {failingLimiter{}, http.StatusOK},
		"allow":     {NewSimpleTokenBucket(5, 5), http.StatusOK},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.Use(Middleware(tc.limiter, nil))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRedisWindow(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	l := NewRedisWindow(client, 2)
	l.prefix = "test:ratelimit:" + time.Now().Format("150405.000000") + ":"
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)
}
