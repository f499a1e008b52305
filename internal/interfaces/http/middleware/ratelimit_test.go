package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int, period time.Duration) (*RateLimiter, *time.Time) {
	t.Helper()
	limiter := NewRateLimiter(limit, period)
	t.Cleanup(limiter.Close)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("blocks after limit", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 3, time.Minute)

		for i := 0; i < 3; i++ {
			allowed, remaining := limiter.Allow("user:1")
			assert.True(t, allowed, "request %d should be allowed", i+1)
			assert.Equal(t, 2-i, remaining)
		}
		allowed, remaining := limiter.Allow("user:1")
		assert.False(t, allowed)
		assert.Zero(t, remaining)
	})

	t.Run("separate windows per key", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 1, time.Minute)

		allowed, _ := limiter.Allow("user:a")
		assert.True(t, allowed)
		allowed, _ = limiter.Allow("user:a")
		assert.False(t, allowed)
		allowed, _ = limiter.Allow("user:b")
		assert.True(t, allowed)
	})

	t.Run("resets after the window", func(t *testing.T) {
		limiter, now := newTestLimiter(t, 1, time.Minute)

		allowed, _ := limiter.Allow("user:c")
		assert.True(t, allowed)
		allowed, _ = limiter.Allow("user:c")
		assert.False(t, allowed)

		*now = now.Add(time.Minute)
		allowed, _ = limiter.Allow("user:c")
		assert.True(t, allowed)
	})

	t.Run("cleanup drops stale windows", func(t *testing.T) {
		limiter, now := newTestLimiter(t, 5, time.Minute)
		limiter.Allow("user:d")

		*now = now.Add(3 * time.Minute)
		limiter.cleanup()

		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		assert.Empty(t, limiter.clients)
	})

	t.Run("concurrent callers never exceed the limit", func(t *testing.T) {
		limiter, _ := newTestLimiter(t, 10, time.Minute)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := limiter.Allow("user:e"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 10, allowed)
	})
}

func TestRateLimitByUser(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Minute)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(JWTUserIDKey, id)
		}
		c.Next()
	})
	router.Use(RateLimitByUser(limiter))
	router.POST("/api/razorpay/order", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/razorpay/order", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := send("u-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = send("u-1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")

	assert.Equal(t, http.StatusOK, send("u-2").Code, "other users have their own window")
	assert.Equal(t, http.StatusOK, send("").Code, "anonymous callers are keyed by IP")
}
