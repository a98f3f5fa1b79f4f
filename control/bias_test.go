package control

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestUpdateBias_EmptyContributions(t *testing.T) {
	res := UpdateBias(nil, ProfileMap{}, nil, DefaultPolicy().Bias)

	assert.Equal(t, 0.0, res.Bias)
	assert.Empty(t, res.Components)
}

func TestUpdateBias_Components(t *testing.T) {
	p := DefaultPolicy().Bias
	profiles := NewProfileMap([]AgentProfile{
		{ID: "analyst", PriorityLevel: 8, ExpertiseScore: 0.9},
		{ID: "dreamer", PriorityLevel: 5, ExpertiseScore: 0.5},
	})
	feedback := []FeedbackRecord{
		{AgentID: "analyst", Score: 0.6},
		{AgentID: "analyst", Score: 0.8},
		{AgentID: "someone-else", Score: 1},
	}
	contributions := []Contribution{
		{AgentID: "analyst", Quality: ptr(0.9), Relevance: ptr(1)},
		{AgentID: "dreamer"},
		{AgentID: "ghost", Quality: ptr(1), Relevance: ptr(1)},
	}

	res := UpdateBias(contributions, profiles, feedback, p)

	require.Len(t, res.Components, 2)
	assert.Equal(t, []string{"ghost"}, res.Skipped)

	analyst := res.Components[0]
	assert.InDelta(t, 0.72, analyst.Weight, 1e-12)
	assert.InDelta(t, 0.9, analyst.Deviation, 1e-12)
	assert.InDelta(t, 0.7, analyst.Reward, 1e-12)
	wantAnalyst := 0.72 * math.Tanh((0.9-0.6)/0.2) * 1.2
	assert.InDelta(t, wantAnalyst, analyst.Component, 1e-12)

	dreamer := res.Components[1]
	assert.InDelta(t, 0.25, dreamer.Deviation, 1e-12)
	assert.Equal(t, 0.0, dreamer.Reward)
	wantDreamer := 0.25 * math.Tanh((0.25-0.6)/0.2) * 0.5
	assert.InDelta(t, wantDreamer, dreamer.Component, 1e-12)

	assert.InDelta(t, (wantAnalyst+wantDreamer)/3, res.Bias, 1e-12)
}

func TestUpdateBias_NilLookupSkipsAll(t *testing.T) {
	res := UpdateBias([]Contribution{{AgentID: "a"}, {AgentID: "b"}}, nil, nil, DefaultPolicy().Bias)

	assert.Equal(t, 0.0, res.Bias)
	assert.Equal(t, []string{"a", "b"}, res.Skipped)
}
