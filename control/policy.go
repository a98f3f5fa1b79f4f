package control

import "math"

// Policy collects the constants of the drive, bias, and global updaters.
type Policy struct {
	Drive  DriveParams  `yaml:"drive" json:"drive"`
	Bias   BiasPolicy   `yaml:"bias" json:"bias"`
	Global GlobalParams `yaml:"global" json:"global"`
	// HistoryCapacity bounds the drive history; the oldest value is evicted first.
	HistoryCapacity int `yaml:"history_capacity" json:"history_capacity"`
}

// DriveParams are the drive equation coefficients.
type DriveParams struct {
	Baseline float64 `yaml:"baseline" json:"baseline"`
	Boost    float64 `yaml:"boost" json:"boost"`
	Spread   float64 `yaml:"spread" json:"spread"`
	Decay    float64 `yaml:"decay" json:"decay"`
}

// BiasPolicy holds the per-contribution bias constants.
type BiasPolicy struct {
	Threshold        float64 `yaml:"threshold" json:"threshold"`
	Sensitivity      float64 `yaml:"sensitivity" json:"sensitivity"`
	RewardOffset     float64 `yaml:"reward_offset" json:"reward_offset"`
	PriorityScale    float64 `yaml:"priority_scale" json:"priority_scale"`
	DefaultQuality   float64 `yaml:"default_quality" json:"default_quality"`
	DefaultRelevance float64 `yaml:"default_relevance" json:"default_relevance"`
}

// GlobalParams are the blend-weight coupling coefficients.
type GlobalParams struct {
	AlphaD   float64 `yaml:"alpha_d" json:"alpha_d"`
	BetaD    float64 `yaml:"beta_d" json:"beta_d"`
	LambdaB  float64 `yaml:"lambda_b" json:"lambda_b"`
	TimeStep float64 `yaml:"time_step" json:"time_step"`
}

// DefaultHistoryCapacity is the drive history bound.
const DefaultHistoryCapacity = 50

// DefaultPolicy returns the stock constants.
func DefaultPolicy() Policy {
	return Policy{
		Drive: DriveParams{
			Baseline: 0.5,
			Boost:    0.3,
			Spread:   1.0,
			Decay:    0.01,
		},
		Bias: BiasPolicy{
			Threshold:        0.6,
			Sensitivity:      0.2,
			RewardOffset:     0.5,
			PriorityScale:    10,
			DefaultQuality:   0.5,
			DefaultRelevance: 0.5,
		},
		Global: GlobalParams{
			AlphaD:   0.3,
			BetaD:    0.1,
			LambdaB:  0.1,
			TimeStep: 1,
		},
		HistoryCapacity: DefaultHistoryCapacity,
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
