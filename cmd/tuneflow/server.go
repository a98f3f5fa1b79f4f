package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/api/handlers"
	"github.com/BaSui01/tuneflow/config"
	"github.com/BaSui01/tuneflow/internal/cache"
	"github.com/BaSui01/tuneflow/internal/database"
	"github.com/BaSui01/tuneflow/internal/metrics"
	"github.com/BaSui01/tuneflow/internal/migration"
	"github.com/BaSui01/tuneflow/internal/server"
	"github.com/BaSui01/tuneflow/internal/telemetry"
	"github.com/BaSui01/tuneflow/store"
	"github.com/BaSui01/tuneflow/tuning"
)

// metricsNamespace 是 Prometheus 指标前缀
const metricsNamespace = "tuneflow"

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 TuneFlow 的主服务器，持有所有后端连接与两个监听端口
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 后端
	otel  *telemetry.Providers
	pool  *database.PoolManager
	redis *cache.Manager
	store tuning.Store

	service          *tuning.Service
	metricsCollector *metrics.Collector
	healthHandler    *handlers.HealthHandler

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// ServerOption 配置 Server 的可选项
type ServerOption func(*Server)

// WithMetricsCollector 复用已注册的指标收集器，同一进程内多次启动时需要
func WithMetricsCollector(c *metrics.Collector) ServerOption {
	return func(s *Server) { s.metricsCollector = c }
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 按依赖顺序初始化并启动所有组件。失败时已创建的资源由 Shutdown 释放。
func (s *Server) Start(ctx context.Context) error {
	// 1. 遥测
	providers, err := telemetry.Init(ctx, s.cfg.Telemetry, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		s.otel = providers
	}

	// 2. 指标收集器
	if s.metricsCollector == nil {
		s.metricsCollector = metrics.NewCollector(metricsNamespace, s.logger)
	}

	// 3. 存储后端
	if err := s.initStore(ctx); err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}

	// 4. 目录种子
	if err := s.seedCatalog(ctx); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	// 5. 服务与 Handlers
	s.service = tuning.NewService(s.store, s.cfg.ServiceConfig(), s.metricsCollector, s.logger)
	s.initHealthHandler()

	// 6. HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 7. Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.String("http_addr", s.httpManager.Addr()),
		zap.String("metrics_addr", s.metricsAddr()),
		zap.String("store", s.cfg.Store.Type),
		zap.Bool("tls", s.cfg.Server.TLSCertFile != ""),
	)
	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initStore 打开配置选择的后端并创建 tuning.Store
func (s *Server) initStore(ctx context.Context) error {
	backends := store.Backends{}

	switch store.Type(s.cfg.Store.Type) {
	case store.TypeDatabase:
		if s.cfg.Store.AutoMigrate {
			if err := s.migrate(ctx); err != nil {
				return err
			}
		}
		pool, err := database.Open(s.cfg.Database.Driver, s.cfg.Database.DSN(), s.cfg.Database.PoolConfig(), s.logger,
			database.WithStatsObserver(s.cfg.Database.Driver, s.metricsCollector))
		if err != nil {
			return err
		}
		s.pool = pool
		backends.Pool = pool

	case store.TypeRedis:
		mgr, err := cache.NewManager(ctx, s.cfg.Redis.CacheConfig(), s.logger)
		if err != nil {
			return err
		}
		s.redis = mgr
		backends.Redis = mgr.Client()
	}

	st, err := store.New(store.Config{
		Type:      store.Type(s.cfg.Store.Type),
		KeyPrefix: s.cfg.Store.KeyPrefix,
	}, backends, s.logger)
	if err != nil {
		return err
	}
	s.store = st
	return nil
}

// migrate 在打开连接池前执行全部待应用迁移
func (s *Server) migrate(ctx context.Context) error {
	migrator, err := migration.NewMigratorFromDatabaseConfig(s.cfg.Database)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	version, _, err := migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	s.logger.Info("database schema up to date", zap.Uint("version", version))
	return nil
}

func (s *Server) seedCatalog(ctx context.Context) error {
	if s.cfg.Store.CatalogPath == "" {
		return nil
	}
	cf, err := tuning.LoadCatalogFile(s.cfg.Store.CatalogPath)
	if err != nil {
		return err
	}
	if err := tuning.SeedCatalog(ctx, s.store, cf, s.logger); err != nil {
		return err
	}
	s.logger.Info("catalog seeded",
		zap.String("path", s.cfg.Store.CatalogPath),
		zap.Int("parameters", len(cf.Parameters)),
		zap.Int("strategies", len(cf.Strategies)),
	)
	return nil
}

// initHealthHandler 注册就绪检查与连接池统计
func (s *Server) initHealthHandler() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewPingCheck("store", s.store.Ping))

	if s.pool != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.pool.Ping))
		s.healthHandler.RegisterStats("database", func() any { return s.pool.GetStats() })
	}
	if s.redis != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.redis.Ping))
		s.healthHandler.RegisterStats("redis", func() any { return s.redis.GetStats() })
	}
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// publicPaths 不需要身份认证
var publicPaths = []string{"/health", "/ready", "/version", "/metrics"}

// buildHandler 注册路由并构建中间件链
func (s *Server) buildHandler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	handlers.NewTuningHandler(s.service, s.logger).Register(mux)
	handlers.NewControlHandler(s.service, s.logger).Register(mux)

	auth, err := NewAuthenticator(s.cfg.Server.APIKeys, s.cfg.JWT, s.cfg.Server.AllowQueryAPIKey, s.logger)
	if err != nil {
		s.logger.Warn("JWT verification disabled", zap.Error(err))
	}
	if !auth.Enabled() {
		s.logger.Warn("no API keys or JWT configured, requests run as the anonymous caller")
	}

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		OTelTracing(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		Authenticate(auth, publicPaths),
	)
}

// startHTTPServer 启动 API 服务器
func (s *Server) startHTTPServer() error {
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel

	s.httpManager = server.NewManager(s.buildHandler(rateLimiterCtx), s.cfg.Server.HTTPConfig(), s.logger)
	return s.httpManager.Start()
}

// startMetricsServer 在独立端口暴露 /metrics，端口为 0 时不启动
func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, s.cfg.Server.MetricsConfig(), s.logger)
	return s.metricsManager.Start()
}

func (s *Server) metricsAddr() string {
	if s.metricsManager == nil {
		return ""
	}
	return s.metricsManager.Addr()
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待信号或监听错误，然后优雅关闭
func (s *Server) WaitForShutdown(ctx context.Context) {
	var errs <-chan error
	if s.httpManager != nil {
		errs = s.httpManager.Errors()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}
	s.Shutdown()
}

// Shutdown 按启动的逆序释放资源，可重复调用
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭存储与连接
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Error("backend shutdown error", zap.Error(err))
	}

	// 4. 刷新遥测
	if s.otel != nil {
		if err := s.otel.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
