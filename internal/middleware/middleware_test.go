package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func newEngine(t *testing.T, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(testSecret), RateLimit(testContext(t), limit, time.Minute))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newEngine(t, 100)

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantBody string
	}{
		{"missing token", "", http.StatusUnauthorized, ""},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized, ""},
		{"user_id claim", signed(t, jwt.MapClaims{"user_id": "alice"}, jwt.SigningMethodHS256), http.StatusOK, "alice"},
		{"sub claim", signed(t, jwt.MapClaims{"sub": "bob"}, jwt.SigningMethodHS256), http.StatusOK, "bob"},
		{"no identity", signed(t, jwt.MapClaims{"role": "x"}, jwt.SigningMethodHS256), http.StatusUnauthorized, ""},
		{"wrong algorithm", signed(t, jwt.MapClaims{"sub": "bob"}, jwt.SigningMethodHS384), http.StatusUnauthorized, ""},
		{"expired", signed(t, jwt.MapClaims{"sub": "bob", "exp": time.Now().Add(-time.Hour).Unix()}, jwt.SigningMethodHS256), http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.token)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRateLimitIsPerUser(t *testing.T) {
	r := newEngine(t, 2)
	alice := signed(t, jwt.MapClaims{"sub": "alice"}, jwt.SigningMethodHS256)
	bob := signed(t, jwt.MapClaims{"sub": "bob"}, jwt.SigningMethodHS256)

	assert.Equal(t, http.StatusOK, get(r, alice).Code)
	assert.Equal(t, http.StatusOK, get(r, alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, alice).Code)
	assert.Equal(t, http.StatusOK, get(r, bob).Code)
}

func TestRateLimitHeaders(t *testing.T) {
	r := newEngine(t, 2)
	alice := signed(t, jwt.MapClaims{"sub": "alice"}, jwt.SigningMethodHS256)

	w := get(r, alice)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	get(r, alice)
	w = get(r, alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(testContext(t), 1, time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("u1")
	assert.True(t, ok)
	ok, _ = rl.Allow("u1")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, remaining := rl.Allow("u1")
	assert.True(t, ok)
	assert.Zero(t, remaining)
}

func TestRateLimiterEvictsStaleKeys(t *testing.T) {
	rl := NewRateLimiter(testContext(t), 1, time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("u1")
	now = now.Add(30 * time.Second)
	rl.Allow("u2")

	now = now.Add(45 * time.Second)
	rl.evictStale()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.requests, "u1")
	assert.Contains(t, rl.requests, "u2")
}

func TestRateLimiterSweepStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rl := NewRateLimiter(ctx, 1, time.Hour)

	select {
	case <-rl.Done():
		t.Fatal("sweep exited before cancel")
	default:
	}

	cancel()
	select {
	case <-rl.Done():
	case <-time.After(time.Second):
		t.Fatal("sweep still running after cancel")
	}
}

// testContext stands in for testing.T.Context (Go 1.24+): a context cancelled
// when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
