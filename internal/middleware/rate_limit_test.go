package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestLimiter(t *testing.T, window time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(window)
	t.Cleanup(rl.Stop)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	return rl, &clock
}

// =============================================================================
// RATE LIMITER CORE TESTS
// =============================================================================

func TestRateLimiter_AllowsRequestsWithinLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	key := "test:within-limit"
	limit := 10

	for i := 0; i < limit; i++ {
		allowed := rl.Allow(key, limit)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}
}

func TestRateLimiter_BlocksRequestsOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	key := "test:over-limit"
	limit := 5

	for i := 0; i < limit; i++ {
		rl.Allow(key, limit)
	}

	assert.False(t, rl.Allow(key, limit), "request over limit should be blocked")
}

func TestRateLimiter_RefillsOverWindow(t *testing.T) {
	rl, clock := newTestLimiter(t, time.Minute)
	key := "test:refill"
	limit := 6

	for i := 0; i < limit; i++ {
		rl.Allow(key, limit)
	}
	assert.False(t, rl.Allow(key, limit))

	// One token every ten seconds.
	*clock = clock.Add(10 * time.Second)
	assert.True(t, rl.Allow(key, limit), "a token should be earned after 10s")
	assert.False(t, rl.Allow(key, limit))

	*clock = clock.Add(time.Hour)
	assert.Equal(t, 0, rl.Remaining(key), "remaining is only updated on Allow")
	assert.True(t, rl.Allow(key, limit))
	assert.Equal(t, limit-1, rl.Remaining(key), "refill is capped at the limit")
}

func TestRateLimiter_DifferentKeysHaveSeparateLimits(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	limit := 3

	for i := 0; i < limit; i++ {
		rl.Allow("key1", limit)
	}

	assert.False(t, rl.Allow("key1", limit), "key1 should be blocked")
	assert.True(t, rl.Allow("key2", limit), "key2 should be allowed")
}

func TestRateLimiter_RemainingReturnsCorrectCount(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	key := "test:remaining"
	limit := 10

	for i := 0; i < 3; i++ {
		rl.Allow(key, limit)
	}

	assert.Equal(t, 7, rl.Remaining(key), "should have 7 tokens remaining")
}

func TestRateLimiter_RemainingReturnsZeroForUnknownKey(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	assert.Equal(t, 0, rl.Remaining("unknown:key"), "unknown key should return 0 remaining")
}

func TestRateLimiter_SweepDropsStaleBuckets(t *testing.T) {
	rl, clock := newTestLimiter(t, time.Minute)
	rl.Allow("stale", 5)

	*clock = clock.Add(2 * time.Minute)
	rl.Allow("fresh", 5)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "stale")
	assert.Contains(t, rl.buckets, "fresh")
}

// =============================================================================
// MIDDLEWARE INTEGRATION TESTS
// =============================================================================

func setupTestRouter(rl *RateLimiter, limit int) *gin.Engine {
	router := gin.New()
	router.Use(RateLimitByIP(rl, limit))
	router.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func doLogin(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitByIP_AddsHeaders(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	w := doLogin(setupTestRouter(rl, 10), "192.168.1.100")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitByIP_BlocksAfterLimitExceeded(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	router := setupTestRouter(rl, 5)

	for i := 0; i < 5; i++ {
		w := doLogin(router, "10.0.0.1")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
	}

	w := doLogin(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "should return 429 when rate limited")
	assert.Equal(t, "12", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"errorCode":"TOO_MANY_REQUESTS"`)
}

func TestRateLimitByIP_DifferentIPsHaveSeparateLimits(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	router := setupTestRouter(rl, 2)

	for i := 0; i < 2; i++ {
		doLogin(router, "10.0.0.1")
	}

	assert.Equal(t, http.StatusTooManyRequests, doLogin(router, "10.0.0.1").Code, "IP1 should be rate limited")
	assert.Equal(t, http.StatusOK, doLogin(router, "10.0.0.2").Code, "IP2 should not be rate limited")
}

func TestRateLimitByIP_ZeroLimitDisables(t *testing.T) {
	rl, _ := newTestLimiter(t, time.Minute)
	router := setupTestRouter(rl, 0)

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, doLogin(router, "10.0.0.3").Code)
	}
}
