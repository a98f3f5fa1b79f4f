package control

import "math"

// Contribution is one agent statement to be scored. Nil scores use the
// policy defaults.
type Contribution struct {
	AgentID   string   `json:"agent_id" validate:"required"`
	Quality   *float64 `json:"quality_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	Relevance *float64 `json:"relevance,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// AgentProfile carries the weighting attributes of an agent.
type AgentProfile struct {
	ID             string  `json:"id" validate:"required"`
	PriorityLevel  float64 `json:"priority_level"`
	ExpertiseScore float64 `json:"expertise_score"`
}

// ProfileLookup resolves agent profiles by ID.
type ProfileLookup interface {
	Profile(agentID string) (AgentProfile, bool)
}

// ProfileMap is an in-memory ProfileLookup.
type ProfileMap map[string]AgentProfile

// Profile implements ProfileLookup.
func (m ProfileMap) Profile(agentID string) (AgentProfile, bool) {
	p, ok := m[agentID]
	return p, ok
}

// NewProfileMap indexes profiles by ID. Later duplicates win.
func NewProfileMap(profiles []AgentProfile) ProfileMap {
	m := make(ProfileMap, len(profiles))
	for _, p := range profiles {
		m[p.ID] = p
	}
	return m
}

// FeedbackRecord is a recent feedback score for an agent.
type FeedbackRecord struct {
	AgentID string  `json:"agent_id"`
	Score   float64 `json:"score"`
}

// BiasComponent is the breakdown of one matched contribution.
type BiasComponent struct {
	AgentID   string  `json:"agent_id"`
	Weight    float64 `json:"weight"`
	Deviation float64 `json:"deviation"`
	Reward    float64 `json:"reward"`
	Component float64 `json:"component"`
}

// BiasResult is B(t) plus its per-contribution breakdown.
type BiasResult struct {
	Bias       float64         `json:"bias"`
	Components []BiasComponent `json:"components"`
	Skipped    []string        `json:"skipped,omitempty"`
}

// UpdateBias averages ω·tanh((δ-θ)/η)·(R+offset) over all contributions.
// Contributions whose agent has no profile add nothing but still count in
// the denominator.
func UpdateBias(contributions []Contribution, profiles ProfileLookup, feedback []FeedbackRecord, p BiasPolicy) BiasResult {
	res := BiasResult{Components: make([]BiasComponent, 0, len(contributions))}

	rewards := meanScores(feedback)
	scale := p.PriorityScale
	if scale == 0 {
		scale = 1
	}

	var total float64
	for _, c := range contributions {
		var profile AgentProfile
		ok := false
		if profiles != nil {
			profile, ok = profiles.Profile(c.AgentID)
		}
		if !ok {
			res.Skipped = append(res.Skipped, c.AgentID)
			continue
		}

		quality := p.DefaultQuality
		if c.Quality != nil {
			quality = *c.Quality
		}
		relevance := p.DefaultRelevance
		if c.Relevance != nil {
			relevance = *c.Relevance
		}

		comp := BiasComponent{
			AgentID:   c.AgentID,
			Weight:    profile.PriorityLevel / scale * profile.ExpertiseScore,
			Deviation: quality * relevance,
			Reward:    rewards[c.AgentID],
		}
		comp.Component = comp.Weight *
			tanhRatio(comp.Deviation-p.Threshold, p.Sensitivity) *
			(comp.Reward + p.RewardOffset)
		total += comp.Component
		res.Components = append(res.Components, comp)
	}

	res.Bias = total / float64(max(len(contributions), 1))
	return res
}

func tanhRatio(num, den float64) float64 {
	if den == 0 {
		switch {
		case num > 0:
			return 1
		case num < 0:
			return -1
		}
		return 0
	}
	return math.Tanh(num / den)
}

func meanScores(feedback []FeedbackRecord) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, f := range feedback {
		sums[f.AgentID] += f.Score
		counts[f.AgentID]++
	}
	for id, n := range counts {
		sums[id] /= float64(n)
	}
	return sums
}
