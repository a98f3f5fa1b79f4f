package tuning

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Impact describes how strongly a parameter influences output quality.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Valid reports whether i is a known impact level.
func (i Impact) Valid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return true
	}
	return false
}

// AdjustmentRecord is one entry of a parameter's append-only history.
type AdjustmentRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	OldValue         float64   `json:"old_value"`
	NewValue         float64   `json:"new_value"`
	Reason           string    `json:"reason"`
	PerformanceDelta float64   `json:"resulting_performance_delta"`
}

// ParameterSpec holds the setup-time fields of a tunable parameter.
type ParameterSpec struct {
	Name           string    `json:"name" yaml:"name"`
	CurrentValue   float64   `json:"current_value" yaml:"current_value"`
	MinBound       float64   `json:"min_bound" yaml:"min_bound"`
	MaxBound       float64   `json:"max_bound" yaml:"max_bound"`
	IsContinuous   bool      `json:"is_continuous" yaml:"is_continuous"`
	DiscreteValues []float64 `json:"discrete_values,omitempty" yaml:"discrete_values"`
	AdjustmentStep float64   `json:"adjustment_step" yaml:"adjustment_step"`
	Impact         Impact    `json:"impact_on_quality" yaml:"impact_on_quality"`
	IsLocked       bool      `json:"is_locked" yaml:"is_locked"`
}

// Parameter is a named, bounded control knob. Only the adjuster mutates it.
type Parameter struct {
	Name           string             `json:"name"`
	CurrentValue   float64            `json:"current_value"`
	MinBound       float64            `json:"min_bound"`
	MaxBound       float64            `json:"max_bound"`
	IsContinuous   bool               `json:"is_continuous"`
	DiscreteValues []float64          `json:"discrete_values,omitempty"`
	AdjustmentStep float64            `json:"adjustment_step"`
	Impact         Impact             `json:"impact_on_quality"`
	IsLocked       bool               `json:"is_locked"`
	LastAdjusted   *time.Time         `json:"last_adjusted,omitempty"`
	History        []AdjustmentRecord `json:"adjustment_history"`
	Version        int64              `json:"version"`
}

// NewParameter builds a parameter from a ParameterSpec and enforces the catalog invariants.
func NewParameter(spec ParameterSpec) (*Parameter, error) {
	p := &Parameter{
		Name:           spec.Name,
		CurrentValue:   spec.CurrentValue,
		MinBound:       spec.MinBound,
		MaxBound:       spec.MaxBound,
		IsContinuous:   spec.IsContinuous,
		DiscreteValues: slices.Clone(spec.DiscreteValues),
		AdjustmentStep: spec.AdjustmentStep,
		Impact:         spec.Impact,
		IsLocked:       spec.IsLocked,
		History:        make([]AdjustmentRecord, 0),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks bounds ordering, value range, step sign, and discrete membership.
func (p *Parameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	for _, v := range []float64{p.CurrentValue, p.MinBound, p.MaxBound, p.AdjustmentStep} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("parameter %s: values must be finite", p.Name)
		}
	}
	if p.MinBound > p.MaxBound {
		return fmt.Errorf("parameter %s: min_bound %v exceeds max_bound %v", p.Name, p.MinBound, p.MaxBound)
	}
	if p.CurrentValue < p.MinBound || p.CurrentValue > p.MaxBound {
		return fmt.Errorf("parameter %s: current_value %v outside [%v, %v]", p.Name, p.CurrentValue, p.MinBound, p.MaxBound)
	}
	if p.AdjustmentStep < 0 {
		return fmt.Errorf("parameter %s: adjustment_step must be >= 0", p.Name)
	}
	if !p.Impact.Valid() {
		return fmt.Errorf("parameter %s: unknown impact %q", p.Name, p.Impact)
	}
	if p.IsContinuous {
		return nil
	}
	if len(p.DiscreteValues) == 0 {
		return fmt.Errorf("parameter %s: discrete parameter needs discrete_values", p.Name)
	}
	seen := make(map[float64]struct{}, len(p.DiscreteValues))
	for _, v := range p.DiscreteValues {
		if v < p.MinBound || v > p.MaxBound {
			return fmt.Errorf("parameter %s: discrete value %v outside bounds", p.Name, v)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("parameter %s: duplicate discrete value %v", p.Name, v)
		}
		seen[v] = struct{}{}
	}
	if !slices.Contains(p.DiscreteValues, p.CurrentValue) {
		return fmt.Errorf("parameter %s: current_value %v is not a discrete value", p.Name, p.CurrentValue)
	}
	return nil
}

// Clone returns a deep copy.
func (p *Parameter) Clone() *Parameter {
	c := *p
	c.DiscreteValues = slices.Clone(p.DiscreteValues)
	c.History = slices.Clone(p.History)
	if p.LastAdjusted != nil {
		t := *p.LastAdjusted
		c.LastAdjusted = &t
	}
	return &c
}

// Apply sets the new value, appends rec, and bumps the version.
// Stores call it after the optimistic version check passes.
func (p *Parameter) Apply(rec AdjustmentRecord) {
	p.CurrentValue = rec.NewValue
	ts := rec.Timestamp
	p.LastAdjusted = &ts
	p.History = append(p.History, rec)
	p.Version++
}

// normalize clamps v into the parameter bounds and snaps discrete parameters.
func (p *Parameter) normalize(v float64) float64 {
	v = clamp(v, p.MinBound, p.MaxBound)
	if !p.IsContinuous {
		v = nearestDiscrete(v, p.DiscreteValues)
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// nearestDiscrete returns the value closest to v; the first one wins ties.
func nearestDiscrete(v float64, values []float64) float64 {
	best := values[0]
	bestDist := math.Abs(v - best)
	for _, candidate := range values[1:] {
		if d := math.Abs(v - candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
