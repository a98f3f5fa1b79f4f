// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/control"
	"github.com/BaSui01/tuneflow/tuning"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器，同时实现 tuning.MetricsRecorder
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 调参指标
	adjustmentsTotal   *prometheus.CounterVec
	parameterChanges   *prometheus.CounterVec
	parametersSkipped  *prometheus.CounterVec
	versionConflicts   *prometheus.CounterVec
	strategySelections *prometheus.CounterVec
	strategyScore      prometheus.Histogram

	// 反馈指标
	feedbackTotal *prometheus.CounterVec
	feedbackGap   prometheus.Gauge

	// 控制状态
	controlState *prometheus.GaugeVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec
	dbQueryDuration   *prometheus.HistogramVec

	logger *zap.Logger
}

var _ tuning.MetricsRecorder = (*Collector)(nil)

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// 调参指标
	c.adjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "adjustments_total",
			Help:      "Total number of adjustment passes",
		},
		[]string{"scope", "algorithm"},
	)

	c.parameterChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "parameter_changes_total",
			Help:      "Total number of parameter value changes applied",
		},
		[]string{"scope", "algorithm"},
	)

	c.parametersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "parameters_skipped_total",
			Help:      "Strategy parameter names missing from the catalog",
		},
		[]string{"scope"},
	)

	c.versionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "version_conflicts_total",
			Help:      "Optimistic write conflicts, before retry",
		},
		[]string{"operation"},
	)

	c.strategySelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "strategy_selections_total",
			Help:      "Times each strategy won selection",
		},
		[]string{"strategy_id"},
	)

	c.strategyScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "strategy_score",
			Help:      "Situational score of the selected strategy",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// 反馈指标
	c.feedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "feedback_evaluations_total",
			Help:      "Feedback evaluations by status",
		},
		[]string{"status"},
	)

	c.feedbackGap = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "feedback_gap",
			Help:      "Latest gap between target and observed score",
		},
	)

	// 控制状态
	c.controlState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "control",
			Name:      "state",
			Help:      "Latest control loop state variables",
		},
		[]string{"variable"}, // drive, bias, blend_weight, global
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"database", "operation"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if requestSize > 0 {
		c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🎛️ 调参指标记录
// =============================================================================

// RecordAdjustment 记录一次调参
func (c *Collector) RecordAdjustment(scope string, algorithm tuning.Algorithm, changes, skipped int) {
	c.adjustmentsTotal.WithLabelValues(scope, string(algorithm)).Inc()
	c.parameterChanges.WithLabelValues(scope, string(algorithm)).Add(float64(changes))
	if skipped > 0 {
		c.parametersSkipped.WithLabelValues(scope).Add(float64(skipped))
	}
}

// RecordConflict 记录版本冲突
func (c *Collector) RecordConflict(operation string) {
	c.versionConflicts.WithLabelValues(operation).Inc()
}

// RecordSelection 记录策略选择
func (c *Collector) RecordSelection(strategyID string, score float64) {
	c.strategySelections.WithLabelValues(strategyID).Inc()
	c.strategyScore.Observe(score)
}

// RecordFeedback 记录反馈评估
func (c *Collector) RecordFeedback(status tuning.FeedbackStatus, gap float64) {
	c.feedbackTotal.WithLabelValues(string(status)).Inc()
	c.feedbackGap.Set(gap)
}

// RecordControlState 记录控制回路状态
func (c *Collector) RecordControlState(state control.State) {
	c.controlState.WithLabelValues("drive").Set(state.Drive)
	c.controlState.WithLabelValues("bias").Set(state.Bias)
	c.controlState.WithLabelValues("blend_weight").Set(state.BlendWeight)
	c.controlState.WithLabelValues("global").Set(state.Global)
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// RecordDBQuery 记录数据库查询
func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
