package tuning

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Algorithm selects how a new parameter value is proposed.
type Algorithm string

const (
	AlgorithmGradient       Algorithm = "gradient"
	AlgorithmRandomSearch   Algorithm = "random_search"
	AlgorithmExploreExploit Algorithm = "explore_exploit"
)

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmGradient, AlgorithmRandomSearch, AlgorithmExploreExploit:
		return true
	}
	return false
}

// Coefficients carries the algorithm inputs for one adjustment call.
type Coefficients struct {
	// Performance is the current score in [0,1]; drives the gradient size.
	Performance float64 `json:"performance"`
	// LearningRate scales the gradient.
	LearningRate float64 `json:"learning_rate"`
	// ExplorationRate is the probability of a random-search move in explore_exploit.
	ExplorationRate float64 `json:"exploration_rate"`
	// PerformanceDelta is recorded on every history entry produced by the call.
	PerformanceDelta float64 `json:"performance_delta"`
}

// Change is one applied mutation.
type Change struct {
	Name            string  `json:"name"`
	OldValue        float64 `json:"old"`
	NewValue        float64 `json:"new"`
	Reason          string  `json:"reason"`
	ExpectedVersion int64   `json:"-"`
}

// AdjustmentResult is the updated catalog plus its changelog.
type AdjustmentResult struct {
	Parameters []*Parameter `json:"parameters"`
	Changes    []Change     `json:"changes"`
	Skipped    []string     `json:"skipped,omitempty"`
}

// Adjuster proposes and applies bounded parameter changes. It never mutates
// its input catalog; the returned parameters are independent copies.
type Adjuster struct {
	rng    RandomSource
	now    func() time.Time
	logger *zap.Logger
}

// NewAdjuster creates an adjuster drawing from rng.
func NewAdjuster(rng RandomSource, logger *zap.Logger) *Adjuster {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rng == nil {
		rng = NewRand(1)
	}
	return &Adjuster{
		rng:    rng,
		now:    time.Now,
		logger: logger.With(zap.String("component", "parameter_adjuster")),
	}
}

// WithClock overrides the timestamp source used for history entries.
func (a *Adjuster) WithClock(now func() time.Time) *Adjuster {
	a.now = now
	return a
}

// AdjustScoped adjusts only the parameters named by strategy.AssociatedParams.
// Names missing from the catalog are skipped and reported.
func (a *Adjuster) AdjustScoped(catalog []*Parameter, strategy *Strategy, alg Algorithm, c Coefficients) (*AdjustmentResult, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy is required for scoped adjustment")
	}
	if !alg.Valid() {
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}

	result, index := cloneCatalog(catalog)
	seen := make(map[string]struct{}, len(strategy.AssociatedParams))
	for _, name := range strategy.AssociatedParams {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		p, ok := index[name]
		if !ok {
			a.logger.Warn("parameter not found in catalog, skipping",
				zap.String("parameter", name),
				zap.String("strategy_id", strategy.ID))
			result.Skipped = append(result.Skipped, name)
			continue
		}
		a.adjustOne(p, alg, c, result)
	}
	return result, nil
}

// AdjustAll adjusts every unlocked parameter regardless of strategy association.
func (a *Adjuster) AdjustAll(catalog []*Parameter, alg Algorithm, c Coefficients) (*AdjustmentResult, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
	result, _ := cloneCatalog(catalog)
	for _, p := range result.Parameters {
		a.adjustOne(p, alg, c, result)
	}
	return result, nil
}

func (a *Adjuster) adjustOne(p *Parameter, alg Algorithm, c Coefficients, result *AdjustmentResult) {
	if p.IsLocked {
		return
	}

	proposed, reason := a.propose(p, alg, c)
	next := p.normalize(proposed)
	if next == p.CurrentValue {
		return
	}

	change := Change{
		Name:            p.Name,
		OldValue:        p.CurrentValue,
		NewValue:        next,
		Reason:          reason,
		ExpectedVersion: p.Version,
	}
	p.Apply(AdjustmentRecord{
		Timestamp:        a.now(),
		OldValue:         change.OldValue,
		NewValue:         next,
		Reason:           reason,
		PerformanceDelta: c.PerformanceDelta,
	})
	result.Changes = append(result.Changes, change)

	a.logger.Info("parameter adjusted",
		zap.String("parameter", p.Name),
		zap.Float64("old", change.OldValue),
		zap.Float64("new", next),
		zap.String("reason", reason))
}

func (a *Adjuster) propose(p *Parameter, alg Algorithm, c Coefficients) (float64, string) {
	switch alg {
	case AlgorithmGradient:
		gradient := (1 - c.Performance) * c.LearningRate
		direction := -1.0
		if p.Impact == ImpactHigh {
			direction = 1.0
		}
		return p.CurrentValue + gradient*p.AdjustmentStep*direction, string(AlgorithmGradient)

	case AlgorithmRandomSearch:
		return a.uniform(p), string(AlgorithmRandomSearch)

	default: // AlgorithmExploreExploit
		if a.rng.Float64() < c.ExplorationRate {
			return a.uniform(p), string(AlgorithmExploreExploit) + ":explore"
		}
		sign := 1.0
		if a.rng.Float64() < 0.5 {
			sign = -1.0
		}
		return p.CurrentValue + sign*p.AdjustmentStep, string(AlgorithmExploreExploit) + ":exploit"
	}
}

func (a *Adjuster) uniform(p *Parameter) float64 {
	return p.MinBound + a.rng.Float64()*(p.MaxBound-p.MinBound)
}

func cloneCatalog(catalog []*Parameter) (*AdjustmentResult, map[string]*Parameter) {
	result := &AdjustmentResult{
		Parameters: make([]*Parameter, 0, len(catalog)),
		Changes:    make([]Change, 0),
	}
	index := make(map[string]*Parameter, len(catalog))
	for _, p := range catalog {
		if p == nil {
			continue
		}
		c := p.Clone()
		result.Parameters = append(result.Parameters, c)
		index[c.Name] = c
	}
	return result, index
}
