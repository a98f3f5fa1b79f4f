package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/config"
	"github.com/BaSui01/tuneflow/internal/ctxkeys"
	"github.com/BaSui01/tuneflow/internal/metrics"
	"github.com/BaSui01/tuneflow/types"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders()(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ctxkeys.RequestID(r.Context())
	}), SecurityHeaders(), RequestID())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	r := httptest.NewRequest(http.MethodGet, "/test", nil)
	r.Header.Set("X-Request-ID", "client-id")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "client-id", seen)
}

func TestRecovery(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(types.ErrInternalError))
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/health", "/health"},
		{"/api/v1/tuning/parameters", "/api/v1/tuning/parameters"},
		{"/api/v1/tuning/parameters/temperature", "/api/v1/tuning/parameters/:name"},
		{"/api/v1/tuning/strategies/select", "/api/v1/tuning/strategies/select"},
		{"/api/v1/other/3f2a9c1e-6b1d-4c2e-9a7f-0123456789ab", "/api/v1/other/:id"},
		{"/api/v1/other/3f2a9c1e", "/api/v1/other/:id"},
		// 短分组不是生成的 ID
		{"/api/v1/other/3f2a9c1e-aaaa-bbbb-cccc-1", "/api/v1/other/3f2a9c1e-aaaa-bbbb-cccc-1"},
		{"/api/v1/items/42", "/api/v1/items/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), tt.in)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	collector := metrics.NewCollector("tuneflow_mw_test", zap.NewNop())
	handler := MetricsMiddleware(collector)(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tuning/parameters/temperature", nil))
	}

	// 三次请求归一到同一条时间序列
	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "tuneflow_mw_test_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://ui.example.com"})(okHandler())

	r := httptest.NewRequest(http.MethodOptions, "/api/v1/tuning/parameters", nil)
	r.Header.Set("Origin", "https://ui.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ui.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/api/v1/tuning/parameters", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tuning/parameters", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := RateLimiter(ctx, 1, 2, zap.NewNop())(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 其他 IP 不受影响
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	handler := RateLimiter(context.Background(), 0, 0, zap.NewNop())(okHandler())
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

// =============================================================================
// 🔐 认证测试
// =============================================================================

func callerHandler(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = types.CallerID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthenticate_Anonymous(t *testing.T) {
	auth, err := NewAuthenticator(nil, config.JWTConfig{}, false, nil)
	require.NoError(t, err)
	assert.False(t, auth.Enabled())

	var caller string
	w := httptest.NewRecorder()
	Authenticate(auth, nil)(callerHandler(&caller)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tuning/parameters", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", caller)
}

func TestAuthenticate_APIKey(t *testing.T) {
	auth, err := NewAuthenticator([]string{"secret-key"}, config.JWTConfig{}, true, nil)
	require.NoError(t, err)
	var caller string
	handler := Authenticate(auth, publicPaths)(callerHandler(&caller))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "valid header", path: "/api/v1/tuning/parameters", header: "secret-key", wantStatus: http.StatusOK},
		{name: "valid query", path: "/api/v1/tuning/parameters?api_key=secret-key", wantStatus: http.StatusOK},
		{name: "wrong key", path: "/api/v1/tuning/parameters", header: "nope", wantStatus: http.StatusUnauthorized},
		{name: "missing key", path: "/api/v1/tuning/parameters", wantStatus: http.StatusUnauthorized},
		{name: "public path", path: "/health", wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				r.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/tuning/parameters", nil)
	r.Header.Set("X-API-Key", "secret-key")
	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, strings.HasPrefix(caller, "apikey:"))
	assert.NotContains(t, caller, "secret-key")
}

func TestAuthenticate_JWT(t *testing.T) {
	const secret = "jwt-secret"
	auth, err := NewAuthenticator(nil, config.JWTConfig{Secret: secret, Issuer: "tuneflow"}, false, nil)
	require.NoError(t, err)
	require.True(t, auth.Enabled())

	valid := signHS256(t, secret, jwt.MapClaims{
		"sub":       "user-7",
		"iss":       "tuneflow",
		"tenant_id": "t1",
		"roles":     []string{"operator"},
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	var caller, tenant string
	var roles []string
	handler := Authenticate(auth, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = types.CallerID(r.Context())
		tenant, _ = types.TenantID(r.Context())
		roles, _ = types.Roles(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/v1/control/tick", nil)
	r.Header.Set("Authorization", "Bearer "+valid)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-7", caller)
	assert.Equal(t, "t1", tenant)
	assert.Equal(t, []string{"operator"}, roles)

	rejected := map[string]string{
		"expired":      signHS256(t, secret, jwt.MapClaims{"sub": "u", "iss": "tuneflow", "exp": time.Now().Add(-time.Hour).Unix()}),
		"wrong issuer": signHS256(t, secret, jwt.MapClaims{"sub": "u", "iss": "other", "exp": time.Now().Add(time.Hour).Unix()}),
		"wrong secret": signHS256(t, "other-secret", jwt.MapClaims{"sub": "u", "iss": "tuneflow", "exp": time.Now().Add(time.Hour).Unix()}),
		"no subject":   signHS256(t, secret, jwt.MapClaims{"iss": "tuneflow", "exp": time.Now().Add(time.Hour).Unix()}),
		"no expiry":    signHS256(t, secret, jwt.MapClaims{"sub": "u", "iss": "tuneflow"}),
	}
	for name, token := range rejected {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/control/tick", nil)
			r.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestNewAuthenticator_BadPublicKey(t *testing.T) {
	auth, err := NewAuthenticator([]string{"k"}, config.JWTConfig{PublicKey: "not a pem"}, false, nil)
	assert.Error(t, err)
	require.NotNil(t, auth)
	assert.True(t, auth.Enabled())
}
