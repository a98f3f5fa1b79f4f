package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tuneflow/tuning"
)

// =============================================================================
// 🧪 通用契约测试，所有后端共用
// =============================================================================

type storeFactory func(t *testing.T) tuning.Store

func runStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("parameter round trip", func(t *testing.T) { testParameterRoundTrip(t, newStore(t)) })
	t.Run("duplicate create", func(t *testing.T) { testDuplicateCreate(t, newStore(t)) })
	t.Run("missing lookups", func(t *testing.T) { testMissingLookups(t, newStore(t)) })
	t.Run("apply adjustments", func(t *testing.T) { testApplyAdjustments(t, newStore(t)) })
	t.Run("stale version rolls back batch", func(t *testing.T) { testStaleVersion(t, newStore(t)) })
	t.Run("concurrent writers", func(t *testing.T) { testConcurrentWriters(t, newStore(t)) })
	t.Run("strategy order", func(t *testing.T) { testStrategyOrder(t, newStore(t)) })
	t.Run("performance", func(t *testing.T) { testPerformance(t, newStore(t)) })
	t.Run("recent feedback", func(t *testing.T) { testRecentFeedback(t, newStore(t)) })
}

func mustParameter(t *testing.T, spec tuning.ParameterSpec) *tuning.Parameter {
	t.Helper()
	p, err := tuning.NewParameter(spec)
	require.NoError(t, err)
	return p
}

func temperature(t *testing.T) *tuning.Parameter {
	return mustParameter(t, tuning.ParameterSpec{
		Name: "temperature", CurrentValue: 0.5, MinBound: 0, MaxBound: 1,
		IsContinuous: true, AdjustmentStep: 0.1, Impact: tuning.ImpactHigh,
	})
}

func rounds(t *testing.T) *tuning.Parameter {
	return mustParameter(t, tuning.ParameterSpec{
		Name: "debate_rounds", CurrentValue: 3, MinBound: 1, MaxBound: 5,
		DiscreteValues: []float64{1, 3, 5}, AdjustmentStep: 2, Impact: tuning.ImpactMedium,
	})
}

func record(old, next float64) tuning.AdjustmentRecord {
	return tuning.AdjustmentRecord{
		Timestamp:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		OldValue:         old,
		NewValue:         next,
		Reason:           "gradient",
		PerformanceDelta: 0.03,
	}
}

func testParameterRoundTrip(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateParameter(ctx, rounds(t)))
	require.NoError(t, s.CreateParameter(ctx, temperature(t)))

	got, err := s.GetParameter(ctx, "debate_rounds")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5}, got.DiscreteValues)
	assert.False(t, got.IsContinuous)
	assert.Equal(t, tuning.ImpactMedium, got.Impact)
	assert.Empty(t, got.History)

	list, err := s.ListParameters(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "debate_rounds", list[0].Name)
	assert.Equal(t, "temperature", list[1].Name)
}

func testDuplicateCreate(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateParameter(ctx, temperature(t)))
	assert.ErrorIs(t, s.CreateParameter(ctx, temperature(t)), tuning.ErrAlreadyExists)

	st, err := tuning.NewStrategy(tuning.Strategy{ID: "s1", Name: "compress"})
	require.NoError(t, err)
	require.NoError(t, s.CreateStrategy(ctx, st))
	assert.ErrorIs(t, s.CreateStrategy(ctx, st), tuning.ErrAlreadyExists)
}

func testMissingLookups(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	_, err := s.GetParameter(ctx, "nope")
	assert.ErrorIs(t, err, tuning.ErrNotFound)
	_, err = s.GetStrategy(ctx, "nope")
	assert.ErrorIs(t, err, tuning.ErrNotFound)
	_, err = s.GetPerformance(ctx, "nope")
	assert.ErrorIs(t, err, tuning.ErrNotFound)

	err = s.ApplyAdjustments(ctx, []tuning.AdjustmentCommand{{Name: "nope", Record: record(0, 1)}})
	assert.ErrorIs(t, err, tuning.ErrNotFound)
}

func testApplyAdjustments(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateParameter(ctx, temperature(t)))
	require.NoError(t, s.CreateParameter(ctx, rounds(t)))

	err := s.ApplyAdjustments(ctx, []tuning.AdjustmentCommand{
		{Name: "temperature", ExpectedVersion: 0, Record: record(0.5, 0.502)},
		{Name: "debate_rounds", ExpectedVersion: 0, Record: record(3, 5)},
	})
	require.NoError(t, err)

	got, err := s.GetParameter(ctx, "temperature")
	require.NoError(t, err)
	assert.Equal(t, 0.502, got.CurrentValue)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.History, 1)
	assert.Equal(t, 0.03, got.History[0].PerformanceDelta)
	assert.Equal(t, "gradient", got.History[0].Reason)
	require.NotNil(t, got.LastAdjusted)
	assert.True(t, got.LastAdjusted.Equal(record(0, 0).Timestamp))

	err = s.ApplyAdjustments(ctx, []tuning.AdjustmentCommand{
		{Name: "temperature", ExpectedVersion: 1, Record: record(0.502, 0.6)},
	})
	require.NoError(t, err)
	got, err = s.GetParameter(ctx, "temperature")
	require.NoError(t, err)
	assert.Len(t, got.History, 2)
	assert.Equal(t, int64(2), got.Version)
}

func testStaleVersion(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateParameter(ctx, temperature(t)))
	require.NoError(t, s.CreateParameter(ctx, rounds(t)))
	require.NoError(t, s.ApplyAdjustments(ctx, []tuning.AdjustmentCommand{
		{Name: "debate_rounds", ExpectedVersion: 0, Record: record(3, 1)},
	}))

	err := s.ApplyAdjustments(ctx, []tuning.AdjustmentCommand{
		{Name: "temperature", ExpectedVersion: 0, Record: record(0.5, 0.7)},
		{Name: "debate_rounds", ExpectedVersion: 0, Record: record(3, 5)},
	})
	require.ErrorIs(t, err, tuning.ErrVersionConflict)

	temp, err := s.GetParameter(ctx, "temperature")
	require.NoError(t, err)
	assert.Equal(t, 0.5, temp.CurrentValue)
	assert.Empty(t, temp.History)
	assert.Equal(t, int64(0), temp.Version)

	r, err := s.GetParameter(ctx, "debate_rounds")
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.CurrentValue)
	assert.Len(t, r.History, 1)
}

// Every writer starts from version 0, so exactly one can win.
func testConcurrentWriters(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateParameter(ctx, temperature(t)))

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.ApplyAdjustments(ctx, []tuning.AdjustmentCommand{
				{Name: "temperature", ExpectedVersion: 0, Record: record(0.5, float64(i)/10)},
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, tuning.ErrVersionConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)

	got, err := s.GetParameter(ctx, "temperature")
	require.NoError(t, err)
	assert.Len(t, got.History, 1)
	assert.Equal(t, int64(1), got.Version)
}

func testStrategyOrder(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	below := 0.7
	for i, name := range []string{"zeta", "alpha", "mid"} {
		st, err := tuning.NewStrategy(tuning.Strategy{
			ID:               fmt.Sprintf("s-%d", i),
			Name:             name,
			PriorityLevel:    float64(i),
			Conditions:       tuning.ActivationConditions{PerformanceBelow: &below},
			CostImpact:       tuning.CostReduces,
			AssociatedParams: []string{"temperature"},
			IsActive:         i != 1,
		})
		require.NoError(t, err)
		require.NoError(t, s.CreateStrategy(ctx, st))
	}

	list, err := s.ListStrategies(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.False(t, list[1].IsActive)

	got, err := s.GetStrategy(ctx, "s-2")
	require.NoError(t, err)
	require.NotNil(t, got.Conditions.PerformanceBelow)
	assert.Equal(t, 0.7, *got.Conditions.PerformanceBelow)
	assert.Nil(t, got.Conditions.IterationAbove)
	assert.Equal(t, []string{"temperature"}, got.AssociatedParams)
	assert.Equal(t, tuning.CostReduces, got.CostImpact)
}

func testPerformance(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	latency := 6200.0
	sample := &tuning.PerformanceSample{
		ID: "perf-1", Score: 0.8, Delta: -0.02, LatencyMS: &latency, Iteration: 4,
		RecordedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.RecordPerformance(ctx, sample))

	got, err := s.GetPerformance(ctx, "perf-1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.Score)
	assert.Equal(t, -0.02, got.Delta)
	require.NotNil(t, got.LatencyMS)
	assert.Equal(t, latency, *got.LatencyMS)
	assert.Nil(t, got.QualityScore)
	assert.Equal(t, 4, got.Iteration)
}

func testRecentFeedback(t *testing.T, s tuning.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordFeedback(ctx, &tuning.AgentFeedback{
			ID: fmt.Sprintf("a-%d", i), AgentID: "analyst", Score: float64(i) / 10,
			RecordedAt: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}
	require.NoError(t, s.RecordFeedback(ctx, &tuning.AgentFeedback{ID: "d-0", AgentID: "dreamer", Score: 1}))

	got, err := s.RecentFeedback(ctx, []string{"analyst", "dreamer", "ghost"}, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a-4", got[0].ID)
	assert.Equal(t, "a-3", got[1].ID)
	assert.Equal(t, "d-0", got[2].ID)
}
