package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pollblog-backend/cache"
	"pollblog-backend/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func get(router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	router := newRouter()
	router.Use(RequestID(), AccessLog(discardLogger()))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := get(router, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	w = get(router, "/ping", map[string]string{RequestIDHeader: "abc"})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(token string) (*service.Caller, error) {
	if token == "good" {
		return &service.Caller{UserID: 7, Username: "ann", IsStaff: true}, nil
	}
	return nil, service.ErrAuthenticationRequired
}

func TestAuthenticate(t *testing.T) {
	router := newRouter()
	router.Use(Authenticate(stubAuthenticator{}, discardLogger()))
	router.GET("/whoami", func(c *gin.Context) {
		caller := CallerFrom(c)
		if caller == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, caller.Username)
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "no header", want: "anonymous"},
		{name: "valid token", header: "Bearer good", want: "ann"},
		{name: "invalid token", header: "Bearer bad", want: "anonymous"},
		{name: "wrong scheme", header: "Basic good", want: "anonymous"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			w := get(router, "/whoami", headers)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.want, w.Body.String())
		})
	}
}

func TestLocalRateLimiter(t *testing.T) {
	limiter := NewLocalRateLimiter(0, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = limiter.Allow(ctx, "b")
	assert.True(t, ok, "keys are limited independently")
}

func TestLocalRateLimiterForgetsIdleKeys(t *testing.T) {
	limiter := NewLocalRateLimiter(1, 2)
	clock := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		ok, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 3, limiter.Len())

	clock = clock.Add(time.Minute)
	ok, _ := limiter.Allow(ctx, "d")
	assert.True(t, ok)
	assert.Equal(t, 1, limiter.Len(), "idle keys are dropped once their bucket has refilled")
}

func TestRateLimitMiddleware(t *testing.T) {
	router := newRouter()
	router.GET("/limited", RateLimitMiddleware(NewLocalWindowLimiter(time.Minute, 2), "comment", discardLogger()),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, get(router, "/limited", nil).Code)
	assert.Equal(t, http.StatusNoContent, get(router, "/limited", nil).Code)

	w := get(router, "/limited", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestRateLimitMiddlewareWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := newRouter()
	limiter := cache.NewSlidingWindowRateLimiter(client, "comments", time.Minute, 1)
	router.GET("/limited", RateLimitMiddleware(limiter, "comment", discardLogger()),
		func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, get(router, "/limited", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/limited", nil).Code)

	mr.Close()
	assert.Equal(t, http.StatusNoContent, get(router, "/limited", nil).Code, "redis failure lets requests through")
}

func TestHealthHandler(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("down") }

	router := newRouter()
	ok := NewHealthHandler(healthy, nil)
	router.GET("/health", ok.HealthCheck)
	router.GET("/status", ok.SystemStatus)
	router.GET("/degraded", NewHealthHandler(broken, healthy).SystemStatus)

	assert.Equal(t, http.StatusOK, get(router, "/health", nil).Code)

	w := get(router, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info SystemInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "ok", info.DBStatus)
	assert.Equal(t, "disabled", info.RedisStatus)

	w = get(router, "/degraded", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "degraded", info.Status)
	assert.Equal(t, "error", info.DBStatus)
	assert.Equal(t, "ok", info.RedisStatus)
}
