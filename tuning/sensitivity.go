package tuning

import (
	"math"
	"sort"
	"time"
)

// SensitivityTier classifies how strongly adjustments moved performance.
type SensitivityTier string

const (
	SensitivityUnknown SensitivityTier = "unknown"
	SensitivityLow     SensitivityTier = "low"
	SensitivityMedium  SensitivityTier = "medium"
	SensitivityHigh    SensitivityTier = "high"
)

var sensitivityRecommendations = map[SensitivityTier]string{
	SensitivityUnknown: "insufficient data",
	SensitivityHigh:    "high impact: adjust carefully with small steps and monitor closely",
	SensitivityMedium:  "moderate impact: include in regular tuning cycles",
	SensitivityLow:     "low impact: candidate for locking or wider steps",
}

// ParameterSensitivity is the analysis outcome for one parameter.
type ParameterSensitivity struct {
	Name           string          `json:"name"`
	Sensitivity    SensitivityTier `json:"sensitivity"`
	AvgImpact      float64         `json:"avg_impact"`
	Samples        int             `json:"samples"`
	CurrentValue   float64         `json:"current_value"`
	Recommendation string          `json:"recommendation"`
}

// SensitivityReport ranks parameters by average absolute performance impact.
type SensitivityReport struct {
	LookbackDays int                    `json:"lookback_days"`
	Parameters   []ParameterSensitivity `json:"parameters"`
	HighImpact   []string               `json:"high_impact"`
	GeneratedAt  time.Time              `json:"generated_at"`
}

// SensitivityAnalyzer ranks parameters by historical impact.
type SensitivityAnalyzer struct {
	policy SensitivityPolicy
	now    func() time.Time
}

// NewSensitivityAnalyzer creates an analyzer with the given tier thresholds.
func NewSensitivityAnalyzer(policy SensitivityPolicy) *SensitivityAnalyzer {
	return &SensitivityAnalyzer{policy: policy, now: time.Now}
}

// WithClock overrides the reference time for the lookback window.
func (s *SensitivityAnalyzer) WithClock(now func() time.Time) *SensitivityAnalyzer {
	s.now = now
	return s
}

// Analyze inspects history entries newer than lookbackDays.
func (s *SensitivityAnalyzer) Analyze(catalog []*Parameter, lookbackDays int) *SensitivityReport {
	now := s.now()
	cutoff := now.AddDate(0, 0, -lookbackDays)
	minSamples := max(s.policy.MinSamples, 1)

	report := &SensitivityReport{
		LookbackDays: lookbackDays,
		Parameters:   make([]ParameterSensitivity, 0, len(catalog)),
		HighImpact:   make([]string, 0),
		GeneratedAt:  now,
	}

	for _, p := range catalog {
		if p == nil {
			continue
		}
		var sum float64
		var n int
		for _, rec := range p.History {
			if rec.Timestamp.Before(cutoff) {
				continue
			}
			sum += math.Abs(rec.PerformanceDelta)
			n++
		}

		entry := ParameterSensitivity{
			Name:         p.Name,
			Sensitivity:  SensitivityUnknown,
			Samples:      n,
			CurrentValue: p.CurrentValue,
		}
		if n >= minSamples {
			entry.AvgImpact = sum / float64(n)
			entry.Sensitivity = s.tier(entry.AvgImpact)
		}
		entry.Recommendation = sensitivityRecommendations[entry.Sensitivity]
		report.Parameters = append(report.Parameters, entry)
	}

	sort.SliceStable(report.Parameters, func(i, j int) bool {
		return report.Parameters[i].AvgImpact > report.Parameters[j].AvgImpact
	})
	for _, e := range report.Parameters {
		if e.Sensitivity == SensitivityHigh {
			report.HighImpact = append(report.HighImpact, e.Name)
		}
	}
	return report
}

func (s *SensitivityAnalyzer) tier(avg float64) SensitivityTier {
	switch {
	case avg > s.policy.HighThreshold:
		return SensitivityHigh
	case avg > s.policy.MediumThreshold:
		return SensitivityMedium
	default:
		return SensitivityLow
	}
}
