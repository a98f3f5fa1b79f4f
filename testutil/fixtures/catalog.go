// =============================================================================
// 📦 参数目录测试数据
// =============================================================================
// 预置的可调参数与优化策略，供各包测试共享
// =============================================================================
package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BaSui01/tuneflow/tuning"
)

// 策略 ID
const (
	StrategyCompress = "strategy-compress"
	StrategyQuality  = "strategy-quality"
	StrategyIdle     = "strategy-idle"
)

// ParameterSpecs 返回标准参数目录
func ParameterSpecs() []tuning.ParameterSpec {
	return []tuning.ParameterSpec{
		{
			Name: "temperature", CurrentValue: 0.5, MinBound: 0, MaxBound: 1,
			IsContinuous: true, AdjustmentStep: 0.1, Impact: tuning.ImpactHigh,
		},
		{
			Name: "debate_rounds", CurrentValue: 3, MinBound: 1, MaxBound: 5,
			DiscreteValues: []float64{1, 3, 5}, AdjustmentStep: 2, Impact: tuning.ImpactMedium,
		},
		{
			Name: "context_budget", CurrentValue: 0.6, MinBound: 0.2, MaxBound: 1,
			IsContinuous: true, AdjustmentStep: 0.2, Impact: tuning.ImpactLow,
		},
		{
			Name: "persona_count", CurrentValue: 4, MinBound: 2, MaxBound: 8,
			DiscreteValues: []float64{2, 4, 6, 8}, AdjustmentStep: 2, Impact: tuning.ImpactHigh,
			IsLocked: true,
		},
	}
}

// Strategies 返回标准策略目录
func Strategies() []tuning.Strategy {
	below := 0.85
	after := 5
	return []tuning.Strategy{
		{
			ID: StrategyCompress, Name: "context compression", PriorityLevel: 2,
			Conditions: tuning.ActivationConditions{PerformanceBelow: &below},
			CostImpact: tuning.CostReduces, IsActive: true,
			AssociatedParams: []string{"context_budget", "debate_rounds", "missing_knob"},
		},
		{
			ID: StrategyQuality, Name: "quality boost", PriorityLevel: 3,
			Conditions: tuning.ActivationConditions{IterationAbove: &after},
			CostImpact: tuning.CostIncreases, IsActive: true,
			AssociatedParams: []string{"temperature", "persona_count"},
		},
		{
			ID: StrategyIdle, Name: "idle", PriorityLevel: 10,
			CostImpact: tuning.CostNeutral, IsActive: false,
		},
	}
}

// Catalog 返回标准目录文件
func Catalog() *tuning.CatalogFile {
	return &tuning.CatalogFile{Parameters: ParameterSpecs(), Strategies: Strategies()}
}

// Seed 将标准目录写入 store
func Seed(t *testing.T, store tuning.Store) {
	t.Helper()
	require.NoError(t, tuning.SeedCatalog(context.Background(), store, Catalog(), nil))
}
