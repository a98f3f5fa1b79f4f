package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/tuneflow/internal/database"
	"github.com/BaSui01/tuneflow/tuning"
)

// =============================================================================
// 🗄️ 表模型
// =============================================================================

type parameterRow struct {
	Seq            uint64     `gorm:"column:seq;primaryKey;autoIncrement"`
	Name           string     `gorm:"column:name;size:128;uniqueIndex;not null"`
	CurrentValue   float64    `gorm:"column:current_value;not null"`
	MinBound       float64    `gorm:"column:min_bound;not null"`
	MaxBound       float64    `gorm:"column:max_bound;not null"`
	IsContinuous   bool       `gorm:"column:is_continuous;not null"`
	DiscreteValues []float64  `gorm:"column:discrete_values;serializer:json"`
	AdjustmentStep float64    `gorm:"column:adjustment_step;not null"`
	Impact         string     `gorm:"column:impact_on_quality;size:16;not null"`
	IsLocked       bool       `gorm:"column:is_locked;not null"`
	LastAdjusted   *time.Time `gorm:"column:last_adjusted"`
	Version        int64      `gorm:"column:version;not null;default:0"`
}

func (parameterRow) TableName() string { return "tuning_parameters" }

type historyRow struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ParameterName    string    `gorm:"column:parameter_name;size:128;index;not null"`
	Timestamp        time.Time `gorm:"column:adjusted_at;not null"`
	OldValue         float64   `gorm:"column:old_value;not null"`
	NewValue         float64   `gorm:"column:new_value;not null"`
	Reason           string    `gorm:"column:reason;size:64;not null"`
	PerformanceDelta float64   `gorm:"column:performance_delta;not null"`
}

func (historyRow) TableName() string { return "tuning_adjustment_history" }

type strategyRow struct {
	Seq              uint64   `gorm:"column:seq;primaryKey;autoIncrement"`
	StrategyID       string   `gorm:"column:strategy_id;size:64;uniqueIndex;not null"`
	Name             string   `gorm:"column:strategy_name;size:255;not null"`
	PriorityLevel    float64  `gorm:"column:priority_level;not null"`
	PerformanceBelow *float64 `gorm:"column:performance_below"`
	IterationAbove   *int     `gorm:"column:iteration_above"`
	CostImpact       string   `gorm:"column:cost_impact;size:32;not null"`
	AssociatedParams []string `gorm:"column:associated_params;serializer:json"`
	IsActive         bool     `gorm:"column:is_active;not null"`
}

func (strategyRow) TableName() string { return "tuning_strategies" }

type performanceRow struct {
	ID           string    `gorm:"column:id;size:64;primaryKey"`
	Score        float64   `gorm:"column:score;not null"`
	Delta        float64   `gorm:"column:delta;not null"`
	LatencyMS    *float64  `gorm:"column:latency_ms"`
	QualityScore *float64  `gorm:"column:quality_score"`
	Iteration    int       `gorm:"column:iteration;not null"`
	RecordedAt   time.Time `gorm:"column:recorded_at;not null"`
}

func (performanceRow) TableName() string { return "tuning_performance_samples" }

type feedbackRow struct {
	Seq        uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	ID         string    `gorm:"column:id;size:64;uniqueIndex;not null"`
	AgentID    string    `gorm:"column:agent_id;size:128;index;not null"`
	Score      float64   `gorm:"column:score;not null"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null"`
}

func (feedbackRow) TableName() string { return "tuning_agent_feedback" }

// Models lists the table models, for AutoMigrate in development and tests.
func Models() []any {
	return []any{&parameterRow{}, &historyRow{}, &strategyRow{}, &performanceRow{}, &feedbackRow{}}
}

// =============================================================================
// 🎯 GormStore
// =============================================================================

// GormStore persists the catalog in a relational database. Adjustment batches
// run in one transaction with a per-row version predicate.
type GormStore struct {
	pool       *database.PoolManager
	maxRetries int
	logger     *zap.Logger
}

// NewGormStore creates a store on top of the pool manager.
func NewGormStore(pool *database.PoolManager, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{
		pool:       pool,
		maxRetries: 3,
		logger:     logger.With(zap.String("component", "gorm_store")),
	}
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.pool.DB().WithContext(ctx)
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close is a no-op; the pool manager owns the connection.
func (s *GormStore) Close() error { return nil }

func (s *GormStore) CreateParameter(ctx context.Context, p *tuning.Parameter) error {
	return s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&parameterRow{}).Where("name = ?", p.Name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("parameter %s: %w", p.Name, tuning.ErrAlreadyExists)
		}
		row := toParameterRow(p)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, rec := range p.History {
			h := toHistoryRow(p.Name, rec)
			if err := tx.Create(&h).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) GetParameter(ctx context.Context, name string) (*tuning.Parameter, error) {
	var row parameterRow
	err := s.db(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("parameter %s: %w", name, tuning.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var hist []historyRow
	if err := s.db(ctx).Where("parameter_name = ?", name).Order("id").Find(&hist).Error; err != nil {
		return nil, err
	}
	return fromParameterRow(row, hist), nil
}

func (s *GormStore) ListParameters(ctx context.Context) ([]*tuning.Parameter, error) {
	var rows []parameterRow
	if err := s.db(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	var hist []historyRow
	if err := s.db(ctx).Order("id").Find(&hist).Error; err != nil {
		return nil, err
	}

	byName := make(map[string][]historyRow, len(rows))
	for _, h := range hist {
		byName[h.ParameterName] = append(byName[h.ParameterName], h)
	}
	out := make([]*tuning.Parameter, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromParameterRow(row, byName[row.Name]))
	}
	return out, nil
}

// ApplyAdjustments updates each row only if its version still matches and
// rolls the whole batch back on the first miss.
func (s *GormStore) ApplyAdjustments(ctx context.Context, cmds []tuning.AdjustmentCommand) error {
	return s.pool.WithTransactionRetry(ctx, s.maxRetries, func(tx *gorm.DB) error {
		for _, cmd := range cmds {
			rec := cmd.Record
			res := tx.Model(&parameterRow{}).
				Where("name = ? AND version = ?", cmd.Name, cmd.ExpectedVersion).
				Updates(map[string]any{
					"current_value": rec.NewValue,
					"last_adjusted": rec.Timestamp,
					"version":       gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return s.missReason(tx, cmd)
			}
			h := toHistoryRow(cmd.Name, rec)
			if err := tx.Create(&h).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) missReason(tx *gorm.DB, cmd tuning.AdjustmentCommand) error {
	var n int64
	if err := tx.Model(&parameterRow{}).Where("name = ?", cmd.Name).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("parameter %s: %w", cmd.Name, tuning.ErrNotFound)
	}
	return fmt.Errorf("parameter %s expected version %d: %w", cmd.Name, cmd.ExpectedVersion, tuning.ErrVersionConflict)
}

func (s *GormStore) CreateStrategy(ctx context.Context, st *tuning.Strategy) error {
	return s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&strategyRow{}).Where("strategy_id = ?", st.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("strategy %s: %w", st.ID, tuning.ErrAlreadyExists)
		}
		row := toStrategyRow(st)
		return tx.Create(&row).Error
	})
}

func (s *GormStore) GetStrategy(ctx context.Context, id string) (*tuning.Strategy, error) {
	var row strategyRow
	err := s.db(ctx).Where("strategy_id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("strategy %s: %w", id, tuning.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return fromStrategyRow(row), nil
}

func (s *GormStore) ListStrategies(ctx context.Context) ([]*tuning.Strategy, error) {
	var rows []strategyRow
	if err := s.db(ctx).Order("seq").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*tuning.Strategy, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromStrategyRow(row))
	}
	return out, nil
}

func (s *GormStore) RecordPerformance(ctx context.Context, sample *tuning.PerformanceSample) error {
	row := performanceRow{
		ID:           sample.ID,
		Score:        sample.Score,
		Delta:        sample.Delta,
		LatencyMS:    sample.LatencyMS,
		QualityScore: sample.QualityScore,
		Iteration:    sample.Iteration,
		RecordedAt:   sample.RecordedAt,
	}
	return s.db(ctx).Create(&row).Error
}

func (s *GormStore) GetPerformance(ctx context.Context, id string) (*tuning.PerformanceSample, error) {
	var row performanceRow
	err := s.db(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("performance %s: %w", id, tuning.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tuning.PerformanceSample{
		ID:           row.ID,
		Score:        row.Score,
		Delta:        row.Delta,
		LatencyMS:    row.LatencyMS,
		QualityScore: row.QualityScore,
		Iteration:    row.Iteration,
		RecordedAt:   row.RecordedAt,
	}, nil
}

func (s *GormStore) RecordFeedback(ctx context.Context, f *tuning.AgentFeedback) error {
	row := feedbackRow{ID: f.ID, AgentID: f.AgentID, Score: f.Score, RecordedAt: f.RecordedAt}
	return s.db(ctx).Create(&row).Error
}

// RecentFeedback returns the newest limit records of each agent, newest first.
func (s *GormStore) RecentFeedback(ctx context.Context, agentIDs []string, limit int) ([]tuning.AgentFeedback, error) {
	out := make([]tuning.AgentFeedback, 0)
	for _, id := range agentIDs {
		q := s.db(ctx).Where("agent_id = ?", id).Order("seq DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		var rows []feedbackRow
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, tuning.AgentFeedback{ID: r.ID, AgentID: r.AgentID, Score: r.Score, RecordedAt: r.RecordedAt})
		}
	}
	return out, nil
}

// =============================================================================
// 🔄 行转换
// =============================================================================

func toParameterRow(p *tuning.Parameter) parameterRow {
	return parameterRow{
		Name:           p.Name,
		CurrentValue:   p.CurrentValue,
		MinBound:       p.MinBound,
		MaxBound:       p.MaxBound,
		IsContinuous:   p.IsContinuous,
		DiscreteValues: p.DiscreteValues,
		AdjustmentStep: p.AdjustmentStep,
		Impact:         string(p.Impact),
		IsLocked:       p.IsLocked,
		LastAdjusted:   p.LastAdjusted,
		Version:        p.Version,
	}
}

func fromParameterRow(row parameterRow, hist []historyRow) *tuning.Parameter {
	p := &tuning.Parameter{
		Name:           row.Name,
		CurrentValue:   row.CurrentValue,
		MinBound:       row.MinBound,
		MaxBound:       row.MaxBound,
		IsContinuous:   row.IsContinuous,
		DiscreteValues: row.DiscreteValues,
		AdjustmentStep: row.AdjustmentStep,
		Impact:         tuning.Impact(row.Impact),
		IsLocked:       row.IsLocked,
		LastAdjusted:   row.LastAdjusted,
		Version:        row.Version,
		History:        make([]tuning.AdjustmentRecord, 0, len(hist)),
	}
	for _, h := range hist {
		p.History = append(p.History, tuning.AdjustmentRecord{
			Timestamp:        h.Timestamp,
			OldValue:         h.OldValue,
			NewValue:         h.NewValue,
			Reason:           h.Reason,
			PerformanceDelta: h.PerformanceDelta,
		})
	}
	return p
}

func toHistoryRow(name string, rec tuning.AdjustmentRecord) historyRow {
	return historyRow{
		ParameterName:    name,
		Timestamp:        rec.Timestamp,
		OldValue:         rec.OldValue,
		NewValue:         rec.NewValue,
		Reason:           rec.Reason,
		PerformanceDelta: rec.PerformanceDelta,
	}
}

func toStrategyRow(st *tuning.Strategy) strategyRow {
	return strategyRow{
		StrategyID:       st.ID,
		Name:             st.Name,
		PriorityLevel:    st.PriorityLevel,
		PerformanceBelow: st.Conditions.PerformanceBelow,
		IterationAbove:   st.Conditions.IterationAbove,
		CostImpact:       string(st.CostImpact),
		AssociatedParams: st.AssociatedParams,
		IsActive:         st.IsActive,
	}
}

func fromStrategyRow(row strategyRow) *tuning.Strategy {
	return &tuning.Strategy{
		ID:               row.StrategyID,
		Name:             row.Name,
		PriorityLevel:    row.PriorityLevel,
		Conditions:       tuning.ActivationConditions{PerformanceBelow: row.PerformanceBelow, IterationAbove: row.IterationAbove},
		CostImpact:       tuning.CostImpact(row.CostImpact),
		AssociatedParams: row.AssociatedParams,
		IsActive:         row.IsActive,
	}
}

var _ tuning.Store = (*GormStore)(nil)
