package tuning

import "time"

// PerformanceSample is a benchmark result supplied by an external collaborator.
// Delta is the score change relative to the previous sample and becomes the
// resulting_performance_delta of adjustments made against this sample.
type PerformanceSample struct {
	ID           string    `json:"id"`
	Score        float64   `json:"score"`
	Delta        float64   `json:"delta"`
	LatencyMS    *float64  `json:"latency_ms,omitempty"`
	QualityScore *float64  `json:"quality_score,omitempty"`
	Iteration    int       `json:"iteration"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// AgentFeedback is a historical feedback score for one debate agent.
type AgentFeedback struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	Score      float64   `json:"score"`
	RecordedAt time.Time `json:"recorded_at"`
}
