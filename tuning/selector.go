package tuning

import (
	"sort"

	"go.uber.org/zap"
)

// ScoredStrategy pairs a strategy with its situational score.
type ScoredStrategy struct {
	Strategy *Strategy `json:"strategy"`
	Score    float64   `json:"score"`
}

// Selection is the winning strategy plus runner-ups by descending score.
type Selection struct {
	Strategy     *Strategy        `json:"selected_strategy"`
	Score        float64          `json:"score"`
	Alternatives []ScoredStrategy `json:"alternatives"`
}

// Selector ranks active strategies for the current performance and iteration.
type Selector struct {
	policy ScoringPolicy
	logger *zap.Logger
}

// NewSelector creates a selector with the given scoring bonuses.
func NewSelector(policy ScoringPolicy, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		policy: policy,
		logger: logger.With(zap.String("component", "strategy_selector")),
	}
}

// Score computes the situational score of s.
func (sel *Selector) Score(s *Strategy, performance float64, iteration int) float64 {
	score := s.PriorityLevel
	if t := s.Conditions.PerformanceBelow; t != nil && performance < *t {
		score += sel.policy.PerformanceBonus
	}
	if t := s.Conditions.IterationAbove; t != nil && iteration > *t {
		score += sel.policy.IterationBonus
	}
	if s.CostImpact == CostReduces {
		score += sel.policy.CostReductionBonus
	}
	return score
}

// Select returns the highest scoring active strategy. Ties keep input order.
// It returns ErrNotFound when no strategy is active.
func (sel *Selector) Select(strategies []*Strategy, performance float64, iteration int) (*Selection, error) {
	scored := make([]ScoredStrategy, 0, len(strategies))
	for _, s := range strategies {
		if s == nil || !s.IsActive {
			continue
		}
		scored = append(scored, ScoredStrategy{Strategy: s, Score: sel.Score(s, performance, iteration)})
	}
	if len(scored) == 0 {
		return nil, ErrNoActiveStrategy
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	alternatives := scored[1:]
	if n := sel.policy.MaxAlternatives; n >= 0 && len(alternatives) > n {
		alternatives = alternatives[:n]
	}

	sel.logger.Debug("strategy selected",
		zap.String("strategy_id", scored[0].Strategy.ID),
		zap.Float64("score", scored[0].Score),
		zap.Int("candidates", len(scored)))

	out := make([]ScoredStrategy, len(alternatives))
	copy(out, alternatives)

	return &Selection{
		Strategy:     scored[0].Strategy,
		Score:        scored[0].Score,
		Alternatives: out,
	}, nil
}
