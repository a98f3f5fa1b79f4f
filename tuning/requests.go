package tuning

import (
	"github.com/BaSui01/tuneflow/balance"
	"github.com/BaSui01/tuneflow/control"
)

// AdjustRequest drives a scoped adjustment of one strategy's parameters.
type AdjustRequest struct {
	StrategyID      string    `json:"strategy_id" validate:"required"`
	PerformanceID   string    `json:"performance_id" validate:"required"`
	Algorithm       Algorithm `json:"algorithm" validate:"required,oneof=gradient random_search explore_exploit"`
	LearningRate    *float64  `json:"learning_rate,omitempty" validate:"omitempty,gte=0"`
	ExplorationRate *float64  `json:"exploration_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// AdjustAllRequest drives an unscoped adjustment of the whole catalog.
type AdjustAllRequest struct {
	PerformanceID   string    `json:"performance_id" validate:"required"`
	Algorithm       Algorithm `json:"algorithm" validate:"required,oneof=gradient random_search explore_exploit"`
	LearningRate    *float64  `json:"learning_rate,omitempty" validate:"omitempty,gte=0"`
	ExplorationRate *float64  `json:"exploration_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// SelectRequest asks for the best active strategy.
type SelectRequest struct {
	Performance float64 `json:"performance" validate:"gte=0,lte=1"`
	Iteration   int     `json:"iteration" validate:"gte=0"`
}

// SensitivityRequest asks for a sensitivity ranking.
type SensitivityRequest struct {
	LookbackDays int `json:"lookback_days" validate:"gte=1,lte=3650"`
}

// FeedbackRequest evaluates either an inline score or a recorded sample.
// When PerformanceID is set the sample's metrics replace the inline ones.
type FeedbackRequest struct {
	PerformanceID string   `json:"performance_id,omitempty"`
	Score         float64  `json:"score" validate:"gte=0,lte=1"`
	LatencyMS     *float64 `json:"latency_ms,omitempty" validate:"omitempty,gte=0"`
	QualityScore  *float64 `json:"quality_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	UserRating    *float64 `json:"user_rating,omitempty"`
}

// RecordPerformanceRequest stores a benchmark sample.
type RecordPerformanceRequest struct {
	Score        float64  `json:"score" validate:"gte=0,lte=1"`
	Delta        float64  `json:"delta" validate:"gte=-1,lte=1"`
	LatencyMS    *float64 `json:"latency_ms,omitempty" validate:"omitempty,gte=0"`
	QualityScore *float64 `json:"quality_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	Iteration    int      `json:"iteration" validate:"gte=0"`
}

// RecordAgentFeedbackRequest stores one agent feedback score.
type RecordAgentFeedbackRequest struct {
	AgentID string  `json:"agent_id" validate:"required"`
	Score   float64 `json:"score" validate:"gte=0,lte=1"`
}

// CycleRequest runs select, scoped adjust, and evaluate against one sample.
type CycleRequest struct {
	PerformanceID   string    `json:"performance_id" validate:"required"`
	Algorithm       Algorithm `json:"algorithm" validate:"required,oneof=gradient random_search explore_exploit"`
	LearningRate    *float64  `json:"learning_rate,omitempty" validate:"omitempty,gte=0"`
	ExplorationRate *float64  `json:"exploration_rate,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// CycleResult bundles the three stages of a tuning cycle.
type CycleResult struct {
	Selection  *Selection        `json:"selection"`
	Adjustment *AdjustmentResult `json:"adjustment"`
	Feedback   *FeedbackResult   `json:"feedback"`
}

// DriveRequest advances the drive signal. Nil Params uses the configured policy.
type DriveRequest struct {
	Params  *control.DriveParams `json:"params,omitempty"`
	Events  []control.Event      `json:"events"`
	Now     float64              `json:"now"`
	History []float64            `json:"drive_history"`
}

// BiasRequest computes the bias aggregate. When Feedback is nil the most
// recent stored feedback of each contributing agent is used.
type BiasRequest struct {
	Contributions []control.Contribution   `json:"contributions" validate:"dive"`
	Profiles      []control.AgentProfile   `json:"profiles" validate:"dive"`
	Feedback      []control.FeedbackRecord `json:"feedback,omitempty"`
}

// GlobalRequest integrates the blend weight. Nil Params uses the configured policy.
type GlobalRequest struct {
	control.GlobalInput
	Params *control.GlobalParams `json:"params,omitempty"`
}

// TickRequest advances the whole control vector by one tick.
type TickRequest struct {
	Prior         control.State            `json:"prior"`
	Now           float64                  `json:"now"`
	Events        []control.Event          `json:"events"`
	Contributions []control.Contribution   `json:"contributions" validate:"dive"`
	Profiles      []control.AgentProfile   `json:"profiles" validate:"dive"`
	Feedback      []control.FeedbackRecord `json:"feedback,omitempty"`
	Left          float64                  `json:"left_signal"`
	Right         float64                  `json:"right_signal"`
	Perturbation  float64                  `json:"perturbation"`
}

// AuditRequest checks a synthesized output against its tagged statements.
type AuditRequest struct {
	Text       string              `json:"text"`
	Statements []balance.Statement `json:"statements" validate:"dive"`
	// BlendWeight is the intended left share, usually the latest ω.
	BlendWeight *float64 `json:"blend_weight,omitempty" validate:"omitempty,gte=0,lte=1"`
}
