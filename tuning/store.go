package tuning

import (
	"context"
	"errors"
)

// Store errors. Backends wrap these with context.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrVersionConflict  = errors.New("version conflict")
	ErrNoActiveStrategy = errors.New("no active strategies")
)

// AdjustmentCommand is one optimistic history append. It applies only if the
// stored parameter is still at ExpectedVersion.
type AdjustmentCommand struct {
	Name            string
	ExpectedVersion int64
	Record          AdjustmentRecord
}

// ParameterStore persists the tunable catalog.
type ParameterStore interface {
	CreateParameter(ctx context.Context, p *Parameter) error
	GetParameter(ctx context.Context, name string) (*Parameter, error)
	ListParameters(ctx context.Context) ([]*Parameter, error)
	// ApplyAdjustments writes all commands or none. Any version mismatch
	// yields ErrVersionConflict; an unknown name yields ErrNotFound.
	ApplyAdjustments(ctx context.Context, cmds []AdjustmentCommand) error
}

// StrategyStore persists the strategy catalog. List preserves creation order.
type StrategyStore interface {
	CreateStrategy(ctx context.Context, s *Strategy) error
	GetStrategy(ctx context.Context, id string) (*Strategy, error)
	ListStrategies(ctx context.Context) ([]*Strategy, error)
}

// PerformanceStore persists benchmark samples.
type PerformanceStore interface {
	RecordPerformance(ctx context.Context, s *PerformanceSample) error
	GetPerformance(ctx context.Context, id string) (*PerformanceSample, error)
}

// FeedbackStore persists per-agent feedback scores.
type FeedbackStore interface {
	RecordFeedback(ctx context.Context, f *AgentFeedback) error
	// RecentFeedback returns up to limit most recent records per agent.
	RecentFeedback(ctx context.Context, agentIDs []string, limit int) ([]AgentFeedback, error)
}

// Store is the full persistence contract consumed by Service.
type Store interface {
	ParameterStore
	StrategyStore
	PerformanceStore
	FeedbackStore
	Ping(ctx context.Context) error
	Close() error
}
