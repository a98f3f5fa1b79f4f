package tuning

// Policy collects the tunable constants of the selection, sensitivity,
// feedback, and adjustment heuristics. DefaultPolicy reproduces the
// historical numeric behavior.
type Policy struct {
	Scoring     ScoringPolicy     `yaml:"scoring" json:"scoring"`
	Sensitivity SensitivityPolicy `yaml:"sensitivity" json:"sensitivity"`
	Feedback    FeedbackPolicy    `yaml:"feedback" json:"feedback"`
	Adjustment  AdjustmentPolicy  `yaml:"adjustment" json:"adjustment"`
}

// ScoringPolicy holds the strategy scoring bonuses.
type ScoringPolicy struct {
	PerformanceBonus   float64 `yaml:"performance_bonus" json:"performance_bonus"`
	IterationBonus     float64 `yaml:"iteration_bonus" json:"iteration_bonus"`
	CostReductionBonus float64 `yaml:"cost_reduction_bonus" json:"cost_reduction_bonus"`
	MaxAlternatives    int     `yaml:"max_alternatives" json:"max_alternatives"`
}

// SensitivityPolicy holds the tier cut-offs for average absolute impact.
type SensitivityPolicy struct {
	HighThreshold   float64 `yaml:"high_threshold" json:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold" json:"medium_threshold"`
	MinSamples      int     `yaml:"min_samples" json:"min_samples"`
}

// FeedbackPolicy holds the evaluator target and recommendation triggers.
type FeedbackPolicy struct {
	Target             float64 `yaml:"target" json:"target"`
	GoodThreshold      float64 `yaml:"good_threshold" json:"good_threshold"`
	GapThreshold       float64 `yaml:"gap_threshold" json:"gap_threshold"`
	LatencyThresholdMS float64 `yaml:"latency_threshold_ms" json:"latency_threshold_ms"`
	QualityThreshold   float64 `yaml:"quality_threshold" json:"quality_threshold"`
}

// AdjustmentPolicy holds coefficient defaults used when a request omits them.
type AdjustmentPolicy struct {
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate"`
	ExplorationRate float64 `yaml:"exploration_rate" json:"exploration_rate"`
	Seed            uint64  `yaml:"seed" json:"seed"`
}

// DefaultPolicy returns the stock constants.
func DefaultPolicy() Policy {
	return Policy{
		Scoring: ScoringPolicy{
			PerformanceBonus:   3,
			IterationBonus:     2,
			CostReductionBonus: 2,
			MaxAlternatives:    2,
		},
		Sensitivity: SensitivityPolicy{
			HighThreshold:   0.05,
			MediumThreshold: 0.02,
			MinSamples:      2,
		},
		Feedback: FeedbackPolicy{
			Target:             0.90,
			GoodThreshold:      0.75,
			GapThreshold:       0.1,
			LatencyThresholdMS: 5000,
			QualityThreshold:   0.9,
		},
		Adjustment: AdjustmentPolicy{
			LearningRate:    0.1,
			ExplorationRate: 0.1,
			Seed:            1,
		},
	}
}
