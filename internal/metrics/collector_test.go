package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/control"
	"github.com/BaSui01/tuneflow/tuning"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	require.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.adjustmentsTotal)
	assert.NotNil(t, collector.versionConflicts)
	assert.NotNil(t, collector.controlState)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("POST", "/api/v1/tuning/adjust", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("POST", "/api/v1/tuning/adjust", 201, 50*time.Millisecond, 512, 1024)
	collector.RecordHTTPRequest("POST", "/api/v1/tuning/adjust", 409, 5*time.Millisecond, 512, 64)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/tuning/adjust", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/tuning/adjust", "4xx")))
}

func TestCollector_RecordAdjustment(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordAdjustment("scoped", tuning.AlgorithmGradient, 2, 1)
	collector.RecordAdjustment("scoped", tuning.AlgorithmGradient, 0, 0)
	collector.RecordAdjustment("all", tuning.AlgorithmRandomSearch, 3, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.adjustmentsTotal.WithLabelValues("scoped", "gradient")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.parameterChanges.WithLabelValues("scoped", "gradient")))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.parameterChanges.WithLabelValues("all", "random_search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.parametersSkipped.WithLabelValues("scoped")))
}

func TestCollector_RecordConflictAndSelection(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordConflict("adjust")
	collector.RecordConflict("adjust")
	collector.RecordSelection("compress", 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.versionConflicts.WithLabelValues("adjust")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.strategySelections.WithLabelValues("compress")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.strategyScore))
}

func TestCollector_RecordFeedback(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordFeedback(tuning.StatusNeedsImprovement, 0.25)
	collector.RecordFeedback(tuning.StatusOptimal, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.feedbackTotal.WithLabelValues("needs_improvement")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.feedbackGap))
}

func TestCollector_RecordControlState(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordControlState(control.State{Drive: 0.8, Bias: -0.1, BlendWeight: 0.53, Global: 0.6})

	assert.InDelta(t, 0.8, testutil.ToFloat64(collector.controlState.WithLabelValues("drive")), 1e-12)
	assert.InDelta(t, -0.1, testutil.ToFloat64(collector.controlState.WithLabelValues("bias")), 1e-12)
	assert.InDelta(t, 0.53, testutil.ToFloat64(collector.controlState.WithLabelValues("blend_weight")), 1e-12)
	assert.InDelta(t, 0.6, testutil.ToFloat64(collector.controlState.WithLabelValues("global")), 1e-12)
}

func TestCollector_DatabaseMetrics(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordDBQuery("postgres", "apply_adjustments", 20*time.Millisecond)
	collector.RecordDBConnections("postgres", 10, 5)

	assert.Equal(t, 1, testutil.CollectAndCount(collector.dbQueryDuration))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("postgres")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("postgres")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond, 0, 32)
			collector.RecordAdjustment("all", tuning.AlgorithmExploreExploit, 1, 0)
			collector.RecordConflict("adjust_all")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.adjustmentsTotal.WithLabelValues("all", "explore_exploit")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.versionConflicts.WithLabelValues("adjust_all")))
}

func TestCollector_MetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	// promauto 已注册到默认 registry，自定义 registry 仍可额外注册
	registry.MustRegister(collector.adjustmentsTotal)

	collector.RecordAdjustment("scoped", tuning.AlgorithmGradient, 1, 0)

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 1)
}

func TestStatusCode(t *testing.T) {
	cases := map[int]string{200: "2xx", 301: "3xx", 404: "4xx", 503: "5xx", 100: "unknown"}
	for code, want := range cases {
		assert.Equal(t, want, statusCode(code))
	}
}
