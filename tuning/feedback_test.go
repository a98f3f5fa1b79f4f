package tuning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackEvaluator_Optimal(t *testing.T) {
	res := NewFeedbackEvaluator(DefaultPolicy().Feedback).Evaluate(FeedbackInput{Score: 0.95})

	assert.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, -0.05, res.Gap, 1e-12)
	assert.Empty(t, res.Recommendations)
	assert.Nil(t, res.UserRating)
}

func TestFeedbackEvaluator_Good(t *testing.T) {
	res := NewFeedbackEvaluator(DefaultPolicy().Feedback).Evaluate(FeedbackInput{Score: 0.8})

	assert.Equal(t, StatusGood, res.Status)
	assert.Empty(t, res.Recommendations)
}

func TestFeedbackEvaluator_AllRecommendations(t *testing.T) {
	latency, quality, rating := 7000.0, 0.5, 4.0
	e := NewFeedbackEvaluator(DefaultPolicy().Feedback).WithClock(func() time.Time { return fixedNow })

	res := e.Evaluate(FeedbackInput{Score: 0.6, LatencyMS: &latency, QualityScore: &quality, UserRating: &rating})

	assert.Equal(t, StatusNeedsImprovement, res.Status)
	var names []string
	for _, r := range res.Recommendations {
		names = append(names, r.Strategy)
	}
	assert.Equal(t, []string{InterventionCostReduction, InterventionCompression, InterventionLatency, InterventionQuality}, names)
	require.NotNil(t, res.UserRating)
	assert.Equal(t, 4.0, res.UserRating.Value)
	assert.Equal(t, fixedNow, res.UserRating.RecordedAt)
}

func TestFeedbackEvaluator_RatingDoesNotChangeOutcome(t *testing.T) {
	e := NewFeedbackEvaluator(DefaultPolicy().Feedback)
	rating := 1.0
	with := e.Evaluate(FeedbackInput{Score: 0.7, UserRating: &rating})
	without := e.Evaluate(FeedbackInput{Score: 0.7})

	assert.Equal(t, without.Status, with.Status)
	assert.Equal(t, without.Recommendations, with.Recommendations)
}
