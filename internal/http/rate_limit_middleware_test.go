package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(t *testing.T, rps float64, burst int) *gin.Engine {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := gin.New()
	router.Use(RateLimitMiddleware(ctx, rps, burst, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doRequest(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("Success_WithinBurst", func(t *testing.T) {
		router := newRateLimitedRouter(t, 1, 3)

		for range 3 {
			assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
		}
	})

	t.Run("Error_BurstExceeded", func(t *testing.T) {
		router := newRateLimitedRouter(t, 0.01, 2)

		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)

		w := doRequest(router, "10.0.0.1:1234")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	})

	t.Run("Success_LimitsArePerIP", func(t *testing.T) {
		router := newRateLimitedRouter(t, 0.01, 1)

		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
		assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1:1234").Code)
		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.2:1234").Code)
	})
}

func TestRateLimiterStore_EvictIdle(t *testing.T) {
	store := &rateLimiterStore{rps: 1, burst: 1}
	store.getLimiter("10.0.0.1")
	store.getLimiter("10.0.0.2")

	// Age out the first entry only.
	val, _ := store.limiters.Load("10.0.0.1")
	val.(*rateLimiterEntry).lastAccess = time.Now().Add(-2 * time.Hour)

	store.evictIdle(time.Now().Add(-time.Hour))

	_, ok := store.limiters.Load("10.0.0.1")
	assert.False(t, ok)
	_, ok = store.limiters.Load("10.0.0.2")
	assert.True(t, ok)
}

func TestRateLimiterStore_CleanupStopsWithContext(t *testing.T) {
	store := &rateLimiterStore{rps: 1, burst: 1}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.cleanupStale(ctx, time.Millisecond, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
