package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/BaSui01/tuneflow/balance"
	"github.com/BaSui01/tuneflow/control"
	"github.com/BaSui01/tuneflow/tuning"
)

// mockService 同时满足 TuningService 与 ControlService
type mockService struct {
	mock.Mock
}

var (
	_ TuningService  = (*mockService)(nil)
	_ ControlService = (*mockService)(nil)
)

// ret 取出第一个返回值，nil 时返回 T 的零值
func ret[T any](args mock.Arguments) T {
	var zero T
	if v := args.Get(0); v != nil {
		return v.(T)
	}
	return zero
}

func (m *mockService) Adjust(ctx context.Context, req *tuning.AdjustRequest) (*tuning.AdjustmentResult, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.AdjustmentResult](args), args.Error(1)
}

func (m *mockService) AdjustAll(ctx context.Context, req *tuning.AdjustAllRequest) (*tuning.AdjustmentResult, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.AdjustmentResult](args), args.Error(1)
}

func (m *mockService) SelectStrategy(ctx context.Context, req *tuning.SelectRequest) (*tuning.Selection, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.Selection](args), args.Error(1)
}

func (m *mockService) Sensitivity(ctx context.Context, req *tuning.SensitivityRequest) (*tuning.SensitivityReport, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.SensitivityReport](args), args.Error(1)
}

func (m *mockService) Evaluate(ctx context.Context, req *tuning.FeedbackRequest) (*tuning.FeedbackResult, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.FeedbackResult](args), args.Error(1)
}

func (m *mockService) RunCycle(ctx context.Context, req *tuning.CycleRequest) (*tuning.CycleResult, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.CycleResult](args), args.Error(1)
}

func (m *mockService) ListParameters(ctx context.Context) ([]*tuning.Parameter, error) {
	args := m.Called(ctx)
	return ret[[]*tuning.Parameter](args), args.Error(1)
}

func (m *mockService) GetParameter(ctx context.Context, name string) (*tuning.Parameter, error) {
	args := m.Called(ctx, name)
	return ret[*tuning.Parameter](args), args.Error(1)
}

func (m *mockService) ListStrategies(ctx context.Context) ([]*tuning.Strategy, error) {
	args := m.Called(ctx)
	return ret[[]*tuning.Strategy](args), args.Error(1)
}

func (m *mockService) RecordPerformance(ctx context.Context, req *tuning.RecordPerformanceRequest) (*tuning.PerformanceSample, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.PerformanceSample](args), args.Error(1)
}

func (m *mockService) RecordAgentFeedback(ctx context.Context, req *tuning.RecordAgentFeedbackRequest) (*tuning.AgentFeedback, error) {
	args := m.Called(ctx, req)
	return ret[*tuning.AgentFeedback](args), args.Error(1)
}

func (m *mockService) Drive(ctx context.Context, req *tuning.DriveRequest) (*control.DriveResult, error) {
	args := m.Called(ctx, req)
	return ret[*control.DriveResult](args), args.Error(1)
}

func (m *mockService) Bias(ctx context.Context, req *tuning.BiasRequest) (*control.BiasResult, error) {
	args := m.Called(ctx, req)
	return ret[*control.BiasResult](args), args.Error(1)
}

func (m *mockService) Global(ctx context.Context, req *tuning.GlobalRequest) (*control.GlobalResult, error) {
	args := m.Called(ctx, req)
	return ret[*control.GlobalResult](args), args.Error(1)
}

func (m *mockService) Tick(ctx context.Context, req *tuning.TickRequest) (*control.TickResult, error) {
	args := m.Called(ctx, req)
	return ret[*control.TickResult](args), args.Error(1)
}

func (m *mockService) Audit(ctx context.Context, req *tuning.AuditRequest) (*balance.Report, error) {
	args := m.Called(ctx, req)
	return ret[*balance.Report](args), args.Error(1)
}
