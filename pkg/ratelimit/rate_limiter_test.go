package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnstile/pkg/logger"
)

func newTestLimiter(t *testing.T, cfg *Config) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(client, cfg), mr
}

func testConfig() *Config {
	return &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 5,
		PaymentRequests: 2,
		HealthRequests:  100,
		WhitelistedIPs:  []string{"10.0.0.1"},
	}
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, testConfig())
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	limiter.now = func() time.Time { return now }

	first, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypePayment)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	now = start.Add(10 * time.Second)
	second, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypePayment)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	now = start.Add(20 * time.Second)
	third, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypePayment)
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, 40*time.Second, third.RetryAfter)

	// Other classes and clients keep their own budgets
	other, err := limiter.IsAllowed(ctx, "5.6.7.8", RateLimitTypePayment)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
	def, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.True(t, def.Allowed)

	// The first request slides out of the window
	now = start.Add(61 * time.Second)
	again, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypePayment)
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

func TestRateLimiter_Bypass(t *testing.T) {
	ctx := context.Background()
	limiter, _ := newTestLimiter(t, testConfig())

	for i := 0; i < 5; i++ {
		result, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypePayment)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	disabled := testConfig()
	disabled.Enabled = false
	limiter, _ = newTestLimiter(t, disabled)
	for i := 0; i < 5; i++ {
		result, err := limiter.IsAllowed(ctx, "1.2.3.4", RateLimitTypePayment)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.SetDefault(logger.Discard())
	limiter, mr := newTestLimiter(t, testConfig())

	router := gin.New()
	router.Use(Middleware(limiter, logger.Discard()))
	router.POST("/api/payments", func(c *gin.Context) { c.Status(http.StatusOK) })

	pay := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payments", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, pay().Code)
	assert.Equal(t, http.StatusOK, pay().Code)

	w := pay()
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	var body struct {
		Errors struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "C003", body.Errors.Code)

	// Redis outage fails open
	mr.Close()
	assert.Equal(t, http.StatusOK, pay().Code)
}

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   RateLimitType
	}{
		{http.MethodGet, "/health", RateLimitTypeHealth},
		{http.MethodPost, "/oauth/token", RateLimitTypeAuth},
		{http.MethodPost, "/api/payments", RateLimitTypePayment},
		{http.MethodPost, "/api/events/:eventId/seats/:seatId/lock", RateLimitTypeSeat},
		{http.MethodPost, "/api/events/:eventId/queue/enter", RateLimitTypeQueue},
		{http.MethodGet, "/api/events/:eventId/seats", RateLimitTypePublic},
		{http.MethodGet, "/api/reservations/:reservationId", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.method, tt.path), tt.path)
	}
}
