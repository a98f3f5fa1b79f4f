// =============================================================================
// 🗄️ MockStore - 可注入故障的 tuning.Store 包装
// =============================================================================
// 包装任意 tuning.Store，记录调用次数并按需注入版本冲突或错误
//
// 使用方法:
//
//	store := mocks.NewMockStore(inner).WithConflicts(2)
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/tuneflow/tuning"
)

// MockStore 包装 tuning.Store 并支持错误注入
type MockStore struct {
	tuning.Store

	mu sync.Mutex

	// 错误注入
	conflicts   int
	listErr     error
	feedbackErr error

	// 调用记录
	calls map[string]int
}

// NewMockStore 创建包装 inner 的 MockStore
func NewMockStore(inner tuning.Store) *MockStore {
	return &MockStore{Store: inner, calls: make(map[string]int)}
}

// WithConflicts 让接下来 n 次 ApplyAdjustments 返回版本冲突
func (m *MockStore) WithConflicts(n int) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = n
	return m
}

// WithListError 让 ListParameters 返回 err
func (m *MockStore) WithListError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
	return m
}

// WithFeedbackError 让 RecentFeedback 返回 err
func (m *MockStore) WithFeedbackError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedbackErr = err
	return m
}

// Calls 返回某方法的调用次数
func (m *MockStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls 返回所有方法的调用次数
func (m *MockStore) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *MockStore) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
}

func (m *MockStore) ListParameters(ctx context.Context) ([]*tuning.Parameter, error) {
	m.record("ListParameters")
	m.mu.Lock()
	err := m.listErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.Store.ListParameters(ctx)
}

func (m *MockStore) GetParameter(ctx context.Context, name string) (*tuning.Parameter, error) {
	m.record("GetParameter")
	return m.Store.GetParameter(ctx, name)
}

func (m *MockStore) ApplyAdjustments(ctx context.Context, cmds []tuning.AdjustmentCommand) error {
	m.record("ApplyAdjustments")
	m.mu.Lock()
	if m.conflicts > 0 {
		m.conflicts--
		m.mu.Unlock()
		return tuning.ErrVersionConflict
	}
	m.mu.Unlock()
	return m.Store.ApplyAdjustments(ctx, cmds)
}

func (m *MockStore) GetStrategy(ctx context.Context, id string) (*tuning.Strategy, error) {
	m.record("GetStrategy")
	return m.Store.GetStrategy(ctx, id)
}

func (m *MockStore) ListStrategies(ctx context.Context) ([]*tuning.Strategy, error) {
	m.record("ListStrategies")
	return m.Store.ListStrategies(ctx)
}

func (m *MockStore) GetPerformance(ctx context.Context, id string) (*tuning.PerformanceSample, error) {
	m.record("GetPerformance")
	return m.Store.GetPerformance(ctx, id)
}

func (m *MockStore) RecordPerformance(ctx context.Context, s *tuning.PerformanceSample) error {
	m.record("RecordPerformance")
	return m.Store.RecordPerformance(ctx, s)
}

func (m *MockStore) RecordFeedback(ctx context.Context, f *tuning.AgentFeedback) error {
	m.record("RecordFeedback")
	return m.Store.RecordFeedback(ctx, f)
}

func (m *MockStore) RecentFeedback(ctx context.Context, agentIDs []string, limit int) ([]tuning.AgentFeedback, error) {
	m.record("RecentFeedback")
	m.mu.Lock()
	err := m.feedbackErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.Store.RecentFeedback(ctx, agentIDs, limit)
}
