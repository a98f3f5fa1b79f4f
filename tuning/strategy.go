package tuning

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// CostImpact describes how a strategy moves run cost.
type CostImpact string

const (
	CostReduces   CostImpact = "reduces_cost"
	CostNeutral   CostImpact = "neutral"
	CostIncreases CostImpact = "increases_cost"
)

// Valid reports whether c is a known cost impact.
func (c CostImpact) Valid() bool {
	switch c {
	case CostReduces, CostNeutral, CostIncreases:
		return true
	}
	return false
}

// ActivationConditions gate the situational scoring bonuses. Nil fields are unset.
type ActivationConditions struct {
	PerformanceBelow *float64 `json:"performance_below,omitempty" yaml:"performance_below"`
	IterationAbove   *int     `json:"iteration_above,omitempty" yaml:"iteration_above"`
}

// Strategy is a static catalog entry describing an optimization approach.
type Strategy struct {
	ID               string               `json:"id" yaml:"id"`
	Name             string               `json:"strategy_name" yaml:"strategy_name"`
	PriorityLevel    float64              `json:"priority_level" yaml:"priority_level"`
	Conditions       ActivationConditions `json:"activation_conditions" yaml:"activation_conditions"`
	CostImpact       CostImpact           `json:"cost_impact" yaml:"cost_impact"`
	AssociatedParams []string             `json:"associated_tunable_params" yaml:"associated_tunable_params"`
	IsActive         bool                 `json:"is_active" yaml:"is_active"`
}

// NewStrategy validates s and assigns an ID when none is set.
func NewStrategy(s Strategy) (*Strategy, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Name == "" {
		return nil, fmt.Errorf("strategy %s: strategy_name is required", s.ID)
	}
	if s.CostImpact == "" {
		s.CostImpact = CostNeutral
	}
	if !s.CostImpact.Valid() {
		return nil, fmt.Errorf("strategy %s: unknown cost_impact %q", s.ID, s.CostImpact)
	}
	s.AssociatedParams = slices.Clone(s.AssociatedParams)
	return &s, nil
}

// Clone returns a deep copy.
func (s *Strategy) Clone() *Strategy {
	c := *s
	c.AssociatedParams = slices.Clone(s.AssociatedParams)
	if s.Conditions.PerformanceBelow != nil {
		v := *s.Conditions.PerformanceBelow
		c.Conditions.PerformanceBelow = &v
	}
	if s.Conditions.IterationAbove != nil {
		v := *s.Conditions.IterationAbove
		c.Conditions.IterationAbove = &v
	}
	return &c
}
