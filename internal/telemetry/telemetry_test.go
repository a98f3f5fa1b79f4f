package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/tuneflow/config"
	"github.com/BaSui01/tuneflow/store"
	"github.com/BaSui01/tuneflow/testutil"
	"github.com/BaSui01/tuneflow/tuning"
)

// saveAndRestoreGlobalProviders 恢复全局 provider，避免测试间互相污染
func saveAndRestoreGlobalProviders(t *testing.T) {
	t.Helper()
	origTP := otel.GetTracerProvider()
	origMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})
}

func shutdown(t *testing.T, p *Providers) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Shutdown(ctx)
	})
}

func TestInit_Disabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(context.Background(), config.TelemetryConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Nil(t, p.tp)
	assert.Nil(t, p.mp)
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_OTLP(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	cfg := config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "tuneflow-test",
		SampleRate:   0.5,
	}

	// gRPC 导出器惰性连接，无需真实 collector
	p, err := Init(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	shutdown(t, p)

	require.NotNil(t, p.tp)
	require.NotNil(t, p.mp)
	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK)
	assert.True(t, mpIsSDK)
}

func TestInit_ServiceSpansExported(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	exporter := tracetest.NewInMemoryExporter()
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "tuneflow-test", SampleRate: 1}

	p, err := Init(context.Background(), cfg, zaptest.NewLogger(t), WithSpanExporter(exporter))
	require.NoError(t, err)
	shutdown(t, p)
	assert.Nil(t, p.mp)

	svc := tuning.NewService(store.NewMemoryStore(), tuning.DefaultServiceConfig(), nil, nil)
	ctx := testutil.CallerContext(t, "telemetry-test")

	// 空目录没有可选策略，span 应记录错误状态
	_, err = svc.SelectStrategy(ctx, &tuning.SelectRequest{Performance: 0.5})
	require.Error(t, err)

	require.NoError(t, p.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "tuning.select_strategy", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestProviders_Shutdown_Nil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.ForceFlush(context.Background()))
}

func TestBuildVersion(t *testing.T) {
	// 测试二进制的版本为 (devel)，回退为 dev
	assert.Equal(t, "dev", buildVersion())
}
