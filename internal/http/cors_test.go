package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRouter(t *testing.T, origins string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	middleware := createCORSMiddleware(true, origins, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotNil(t, middleware)

	router := gin.New()
	router.Use(middleware)
	router.POST("/v1/redo-records/:id/replay", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCreateCORSMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("DisabledReturnsNil", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(false, "https://ops.example.com", logger))
	})

	t.Run("NoOriginsReturnsNil", func(t *testing.T) {
		assert.Nil(t, createCORSMiddleware(true, "", logger))
		assert.Nil(t, createCORSMiddleware(true, " , ", logger))
	})
}

func TestCORS_PreflightForReplay(t *testing.T) {
	router := corsRouter(t, " https://ops.example.com , https://console.example.com ")

	req := httptest.NewRequest(http.MethodOptions, "/v1/redo-records/abc/replay", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://console.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_ExposesRetryAfter(t *testing.T) {
	router := corsRouter(t, "https://ops.example.com")

	req := httptest.NewRequest(http.MethodPost, "/v1/redo-records/abc/replay", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
}

func TestCORS_RejectsUnknownOrigin(t *testing.T) {
	router := corsRouter(t, "https://ops.example.com")

	req := httptest.NewRequest(http.MethodPost, "/v1/redo-records/abc/replay", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"https://ops.example.com", "https://console.example.com"},
		parseOrigins("https://ops.example.com,, https://console.example.com "),
	)
	assert.Nil(t, parseOrigins(""))
}
