package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 5)
	defer rl.Stop()

	tokenID := uuid.New()
	for i := 0; i < 5; i++ {
		if !rl.Allow(tokenID) {
			t.Fatalf("Expected request %d within burst to be allowed", i+1)
		}
	}
	if rl.Allow(tokenID) {
		t.Error("Expected request beyond burst to be denied")
	}
}

func TestRateLimiter_IsolatesTokens(t *testing.T) {
	rl := NewRateLimiterWithConfig(60, 1)
	defer rl.Stop()

	first := uuid.New()
	second := uuid.New()

	if !rl.Allow(first) {
		t.Fatal("Expected first token's request to be allowed")
	}
	if rl.Allow(first) {
		t.Error("Expected first token to be exhausted")
	}
	if !rl.Allow(second) {
		t.Error("Expected second token to be unaffected")
	}
}

func TestRateLimitMiddleware_DeniesWithHeaders(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(60, 1)
	defer rl.Stop()
	mw := RateLimitMiddleware(rl)

	tokenID := uuid.New()
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
		ctx := context.WithValue(req.Context(), APITokenIDKey, tokenID)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := mw(handler)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		return rec
	}

	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("Expected first request allowed, got %d", rec.Code)
	}

	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on denied request")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("Expected X-RateLimit-Remaining 0, got %s", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimitMiddleware_SkipsUnauthenticated(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiterWithConfig(60, 1)
	defer rl.Stop()
	mw := RateLimitMiddleware(rl)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := mw(handler)(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected unauthenticated request to pass, got %d", rec.Code)
		}
	}
}
