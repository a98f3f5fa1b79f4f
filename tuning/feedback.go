package tuning

import "time"

// FeedbackStatus is the coarse health verdict for a performance score.
type FeedbackStatus string

const (
	StatusOptimal          FeedbackStatus = "optimal"
	StatusGood             FeedbackStatus = "good"
	StatusNeedsImprovement FeedbackStatus = "needs_improvement"
)

// Recommendation names a follow-up optimization intervention.
type Recommendation struct {
	Strategy string `json:"strategy"`
	Reason   string `json:"reason"`
}

// Intervention names emitted by the evaluator.
const (
	InterventionCostReduction = "cost_reduction"
	InterventionCompression   = "compression"
	InterventionLatency       = "latency_optimization"
	InterventionQuality       = "quality_enhancement"
)

// FeedbackInput is one evaluation request. Nil optional metrics are ignored.
type FeedbackInput struct {
	Score        float64  `json:"score"`
	LatencyMS    *float64 `json:"latency_ms,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	UserRating   *float64 `json:"user_rating,omitempty"`
}

// UserRating is an externally supplied rating, attached verbatim.
type UserRating struct {
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FeedbackResult is the evaluator output.
type FeedbackResult struct {
	Score           float64          `json:"score"`
	Target          float64          `json:"target"`
	Gap             float64          `json:"gap"`
	Status          FeedbackStatus   `json:"status"`
	Recommendations []Recommendation `json:"recommendations"`
	UserRating      *UserRating      `json:"user_rating,omitempty"`
}

// FeedbackEvaluator compares performance against the target.
type FeedbackEvaluator struct {
	policy FeedbackPolicy
	now    func() time.Time
}

// NewFeedbackEvaluator creates an evaluator.
func NewFeedbackEvaluator(policy FeedbackPolicy) *FeedbackEvaluator {
	return &FeedbackEvaluator{policy: policy, now: time.Now}
}

// WithClock overrides the timestamp attached to user ratings.
func (f *FeedbackEvaluator) WithClock(now func() time.Time) *FeedbackEvaluator {
	f.now = now
	return f
}

// Evaluate computes gap, status, and independent recommendations.
func (f *FeedbackEvaluator) Evaluate(in FeedbackInput) *FeedbackResult {
	p := f.policy
	res := &FeedbackResult{
		Score:           in.Score,
		Target:          p.Target,
		Gap:             p.Target - in.Score,
		Recommendations: make([]Recommendation, 0),
	}

	switch {
	case in.Score >= p.Target:
		res.Status = StatusOptimal
	case in.Score >= p.GoodThreshold:
		res.Status = StatusGood
	default:
		res.Status = StatusNeedsImprovement
	}

	if res.Gap > p.GapThreshold {
		res.Recommendations = append(res.Recommendations,
			Recommendation{Strategy: InterventionCostReduction, Reason: "performance gap exceeds threshold"},
			Recommendation{Strategy: InterventionCompression, Reason: "performance gap exceeds threshold"},
		)
	}
	if in.LatencyMS != nil && *in.LatencyMS > p.LatencyThresholdMS {
		res.Recommendations = append(res.Recommendations,
			Recommendation{Strategy: InterventionLatency, Reason: "latency above threshold"})
	}
	if in.QualityScore != nil && *in.QualityScore < p.QualityThreshold {
		res.Recommendations = append(res.Recommendations,
			Recommendation{Strategy: InterventionQuality, Reason: "quality sub-score below threshold"})
	}
	if in.UserRating != nil {
		res.UserRating = &UserRating{Value: *in.UserRating, RecordedAt: f.now()}
	}
	return res
}
