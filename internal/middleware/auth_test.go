package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	s, err := auth.NewService(config.AuthConfig{Secret: "test-secret", Expiry: time.Hour})
	require.NoError(t, err)
	return s
}

func tokenFor(t *testing.T, s *auth.Service, role models.Role) string {
	t.Helper()
	token, err := s.GenerateToken("u-"+string(role), string(role), role)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService := newAuthService(t)
	middleware := NewAuthMiddleware(authService)

	t.Run("valid token", func(t *testing.T) {
		token := tokenFor(t, authService, models.RoleTechnician)

		req := httptest.NewRequest("GET", "/api/reminders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetUserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "technician", claims.Username)
			assert.Equal(t, models.RoleTechnician, claims.Role)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	rejected := []struct {
		name   string
		header string
	}{
		{"missing authorization header", ""},
		{"invalid token", "Bearer invalid-token"},
		{"wrong scheme", "Token abc"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/reminders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(handler).ServeHTTP(w, req)
			assert.False(t, handlerCalled)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	for _, path := range []string{"/health", "/metrics"} {
		t.Run("skip auth "+path, func(t *testing.T) {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(handler).ServeHTTP(w, req)
			assert.True(t, handlerCalled)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestShouldSkipAuth(t *testing.T) {
	assert.True(t, shouldSkipAuth("/health"))
	assert.True(t, shouldSkipAuth("/metrics"))
	assert.False(t, shouldSkipAuth("/healthz"))
	assert.False(t, shouldSkipAuth("/api/forms"))
}

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	authService := newAuthService(t)
	middleware := NewAuthMiddleware(authService)

	tests := []struct {
		name       string
		role       models.Role
		permission string
		want       int
	}{
		{"admin signs forms", models.RoleAdmin, models.PermSignForms, http.StatusOK},
		{"technician signs forms", models.RoleTechnician, models.PermSignForms, http.StatusOK},
		{"manager cannot sign", models.RoleManager, models.PermSignForms, http.StatusForbidden},
		{"operator manages reminders", models.RoleOperator, models.PermManageReminders, http.StatusOK},
		{"viewer reads reminders", models.RoleViewer, models.PermViewReminders, http.StatusOK},
		{"viewer cannot edit forms", models.RoleViewer, models.PermEditForms, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/forms", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, authService, tt.role))
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(middleware.RequirePermission(tt.permission)(handler)).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.want == http.StatusOK, handlerCalled)
		})
	}

	t.Run("no user in context", func(t *testing.T) {
		w := httptest.NewRecorder()
		middleware.RequirePermission(models.PermViewForms)(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/api/forms", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	middleware := NewRateLimitMiddleware(false)

	t.Run("rate limit not exceeded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.RateLimit(5, 60)(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		rateLimitHandler := middleware.RateLimit(1, 60)(handler)

		rateLimitHandler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handlerCalled = false
		rateLimitHandler.ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
	})

	t.Run("window slides", func(t *testing.T) {
		limiter := NewRateLimitMiddleware(true)
		now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		h := limiter.RateLimit(1, 60)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		now = now.Add(61 * time.Second)
		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.7:5555"
	req.Header.Set("X-Real-IP", "10.1.1.1")

	direct := NewRateLimitMiddleware(false)
	proxied := NewRateLimitMiddleware(true)

	assert.Equal(t, "192.168.1.7", direct.clientIP(req), "forwarded headers ignored without a trusted proxy")
	assert.Equal(t, "10.1.1.1", proxied.clientIP(req))

	req.Header.Set("X-Forwarded-For", "10.2.2.2, 10.3.3.3")
	assert.Equal(t, "192.168.1.7", direct.clientIP(req))
	assert.Equal(t, "10.2.2.2", proxied.clientIP(req))
}

func TestRateLimit_SpoofedForwardedFor(t *testing.T) {
	limiter := NewRateLimitMiddleware(false)
	h := limiter.RateLimit(1, 60)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests} {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "203.0.113.5:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "request %d", i)
	}
	assert.Equal(t, 1, limiter.clients())
}

func TestRateLimit_ForgetsIdleClients(t *testing.T) {
	limiter := NewRateLimitMiddleware(false)
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	h := limiter.RateLimit(5, 60)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = fmt.Sprintf("192.168.2.%d:1000", i)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 10, limiter.clients())

	now = now.Add(2 * time.Minute)
	req := httptest.NewRequest("GET", "/api/test", nil)
	req.RemoteAddr = "192.168.3.1:1000"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, limiter.clients(), "idle clients are swept once the window has passed")
}

func TestGetUserFromContext(t *testing.T) {
	claims := &models.Claims{
		UserID:   "test-id",
		Username: "testuser",
		Role:     models.RoleAdmin,
	}

	retrievedClaims, ok := GetUserFromContext(WithUser(context.Background(), claims))
	assert.True(t, ok)
	assert.Equal(t, claims, retrievedClaims)

	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&log.JSONFormatter{})

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/reminders", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, buf.String(), `"status":503`)
	assert.Contains(t, buf.String(), `"path":"/api/reminders"`)
}
