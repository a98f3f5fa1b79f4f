package main

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/tuneflow/api/handlers"
	"github.com/BaSui01/tuneflow/config"
	"github.com/BaSui01/tuneflow/internal/ctxkeys"
	"github.com/BaSui01/tuneflow/internal/metrics"
	"github.com/BaSui01/tuneflow/types"
)

// Middleware 类型定义
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件串联，第一个位于最外层
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Recovery panic 恢复中间件
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", zap.Any("error", err), zap.String("path", r.URL.Path))
					handlers.WriteError(w, r, fmt.Errorf("panic: %v", err), nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger 请求日志中间件
func RequestLogger(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			requestID, _ := ctxkeys.RequestID(r.Context())
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.StatusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("request_id", requestID),
			)
		})
	}
}

// =============================================================================
// MetricsMiddleware — records HTTP request metrics via metrics.Collector
// =============================================================================

// MetricsMiddleware records HTTP request duration, status, and sizes. Path
// labels are normalized to keep Prometheus cardinality bounded.
func MetricsMiddleware(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := handlers.NewResponseWriter(w)

			next.ServeHTTP(rw, r)

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}
			collector.RecordHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				rw.StatusCode,
				time.Since(start),
				requestSize,
				int64(rw.BytesWritten),
			)
		})
	}
}

// pathSegmentPattern matches segments that look like generated identifiers:
// UUIDs, long hex strings, or numeric IDs.
var pathSegmentPattern = regexp.MustCompile(
	`^[0-9a-fA-F]{8,}(-[0-9a-fA-F]{4,}){0,4}$|^[0-9]+$`,
)

const parameterPathPrefix = "/api/v1/tuning/parameters/"

// normalizePath replaces dynamic path segments with a placeholder:
//
//	/api/v1/tuning/parameters/temperature -> /api/v1/tuning/parameters/:name
//	/api/v1/other/3f2a9c1e                -> /api/v1/other/:id
func normalizePath(path string) string {
	if strings.HasPrefix(path, parameterPathPrefix) && len(path) > len(parameterPathPrefix) {
		return parameterPathPrefix + ":name"
	}

	segments := strings.Split(path, "/")
	normalized := false
	for i, seg := range segments {
		if seg != "" && pathSegmentPattern.MatchString(seg) {
			segments[i] = ":id"
			normalized = true
		}
	}
	if !normalized {
		return path
	}
	return strings.Join(segments, "/")
}

// =============================================================================
// OTelTracing — OpenTelemetry HTTP tracing middleware
// =============================================================================

// OTelTracing creates a server span per request, continuing any incoming
// trace context, and exposes the trace ID through ctxkeys.
func OTelTracing() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := otel.Tracer("tuneflow/http").Start(ctx, r.Method+" "+normalizePath(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				ctx = ctxkeys.WithTraceID(ctx, sc.TraceID().String())
			}

			rw := handlers.NewResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", rw.StatusCode))
			if rw.StatusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.StatusCode))
			}
		})
	}
}

// RequestID 为每个请求分配 X-Request-ID，客户端已提供时沿用
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
		})
	}
}

// SecurityHeaders adds common security response headers to every request.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", "default-src 'none'")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS 跨域中间件。allowedOrigins 为空时不下发任何 CORS 头，预检请求返回 403。
func CORS(allowedOrigins []string) Middleware {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			_, allowed := originSet[origin]
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter 基于客户端 IP 的令牌桶限流，rps 为 0 时不限流
func RateLimiter(ctx context.Context, rps float64, burst int, logger *zap.Logger) Middleware {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}

	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)
	// 后台清理过期 visitor
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for ip, v := range visitors {
					if time.Since(v.lastSeen) > 3*time.Minute {
						delete(visitors, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			mu.Lock()
			v, exists := visitors[ip]
			if !exists {
				v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				visitors[ip] = v
			}
			v.lastSeen = time.Now()
			allowed := v.limiter.Allow()
			mu.Unlock()

			if !allowed {
				logger.Debug("rate limited", zap.String("ip", ip))
				handlers.WriteError(w, r, types.NewError(types.ErrRateLimited, "too many requests").
					WithHTTPStatus(http.StatusTooManyRequests).WithRetryable(true), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// 🔐 身份认证
// =============================================================================

// ErrNoCredentials 请求未携带任何凭据
var ErrNoCredentials = errors.New("no credentials")

// Authenticator 依次校验 API Key 与 JWT Bearer token，得到调用方身份
type Authenticator struct {
	apiKeys    [][]byte
	allowQuery bool

	jwtEnabled bool
	hmacSecret []byte
	rsaKey     *rsa.PublicKey
	parserOpts []jwt.ParserOption

	logger *zap.Logger
}

// Identity 是认证成功后注入上下文的调用方信息
type Identity struct {
	CallerID string
	TenantID string
	Roles    []string
}

// NewAuthenticator 创建认证器。RSA 公钥无法解析时返回错误，但认证器仍可用于 API Key 与 HMAC。
func NewAuthenticator(apiKeys []string, jwtCfg config.JWTConfig, allowQuery bool, logger *zap.Logger) (*Authenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Authenticator{
		allowQuery: allowQuery,
		hmacSecret: []byte(jwtCfg.Secret),
		logger:     logger.With(zap.String("component", "auth")),
	}
	for _, k := range apiKeys {
		if k != "" {
			a.apiKeys = append(a.apiKeys, []byte(k))
		}
	}

	var keyErr error
	if jwtCfg.PublicKey != "" {
		a.rsaKey, keyErr = parseRSAPublicKey(jwtCfg.PublicKey)
	}
	a.jwtEnabled = len(a.hmacSecret) > 0 || a.rsaKey != nil

	a.parserOpts = []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "RS256"}), jwt.WithExpirationRequired()}
	if jwtCfg.Issuer != "" {
		a.parserOpts = append(a.parserOpts, jwt.WithIssuer(jwtCfg.Issuer))
	}
	if jwtCfg.Audience != "" {
		a.parserOpts = append(a.parserOpts, jwt.WithAudience(jwtCfg.Audience))
	}
	return a, keyErr
}

func parseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("failed to decode PEM block for RSA public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse RSA public key: %w", err)
	}
	k, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return k, nil
}

// Enabled 是否配置了任一认证方式
func (a *Authenticator) Enabled() bool {
	return len(a.apiKeys) > 0 || a.jwtEnabled
}

// Authenticate 从请求中解析身份。未配置认证时返回匿名调用方。
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	if !a.Enabled() {
		return &Identity{CallerID: "anonymous"}, nil
	}

	key := r.Header.Get("X-API-Key")
	if key == "" && a.allowQuery {
		key = r.URL.Query().Get("api_key")
	}
	if key != "" && len(a.apiKeys) > 0 {
		if a.matchAPIKey(key) {
			return &Identity{CallerID: apiKeyCaller(key)}, nil
		}
		return nil, errors.New("invalid API key")
	}

	authHeader := r.Header.Get("Authorization")
	if a.jwtEnabled && strings.HasPrefix(authHeader, "Bearer ") {
		return a.verifyToken(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return nil, ErrNoCredentials
}

func (a *Authenticator) matchAPIKey(key string) bool {
	found := 0
	for _, k := range a.apiKeys {
		found |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return found == 1
}

// apiKeyCaller 用 key 摘要的前缀标识调用方，避免在日志和 span 中出现明文
func apiKeyCaller(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "apikey:" + hex.EncodeToString(sum[:4])
}

func (a *Authenticator) verifyToken(tokenStr string) (*Identity, error) {
	keyFunc := func(token *jwt.Token) (any, error) {
		switch token.Method.Alg() {
		case "HS256":
			if len(a.hmacSecret) == 0 {
				return nil, errors.New("HMAC secret not configured")
			}
			return a.hmacSecret, nil
		case "RS256":
			if a.rsaKey == nil {
				return nil, errors.New("RSA public key not configured")
			}
			return a.rsaKey, nil
		default:
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
	}

	token, err := jwt.Parse(tokenStr, keyFunc, a.parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	id := &Identity{}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		id.CallerID = sub
	} else if userID, ok := claims["user_id"].(string); ok {
		id.CallerID = userID
	}
	if id.CallerID == "" {
		return nil, errors.New("token has no subject")
	}
	if tenantID, ok := claims["tenant_id"].(string); ok {
		id.TenantID = tenantID
	}
	if rolesRaw, ok := claims["roles"].([]any); ok {
		for _, role := range rolesRaw {
			if s, ok := role.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	return id, nil
}

// Authenticate 认证中间件，把调用方身份写入上下文。skipPaths 不做认证。
func Authenticate(auth *Authenticator, skipPaths []string) Middleware {
	skipSet := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skipSet[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := skipSet[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			id, err := auth.Authenticate(r)
			if err != nil {
				auth.logger.Debug("authentication failed", zap.Error(err), zap.String("path", r.URL.Path))
				handlers.WriteError(w, r, types.NewUnauthorizedError("invalid or missing credentials").WithCause(err), nil)
				return
			}

			ctx := types.WithCallerID(r.Context(), id.CallerID)
			if id.TenantID != "" {
				ctx = types.WithTenantID(ctx, id.TenantID)
			}
			if len(id.Roles) > 0 {
				ctx = types.WithRoles(ctx, id.Roles)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
