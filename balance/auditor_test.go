package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func tagged(tags ...Hemisphere) []Statement {
	out := make([]Statement, len(tags))
	for i, h := range tags {
		out[i] = Statement{Hemisphere: h}
	}
	return out
}

func TestAudit_WeightsAndFlags(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)

	r, err := a.Audit(
		"The data and evidence support a novel vision.",
		tagged(HemisphereLeft, HemisphereLeft, HemisphereRight, HemisphereCentral),
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 2, r.Counts[HemisphereLeft])
	assert.InDelta(t, 0.5, r.Weights.Left, 1e-12)
	assert.InDelta(t, 0.25, r.Weights.Right, 1e-12)
	assert.InDelta(t, 0.25, r.Weights.Central, 1e-12)
	assert.Equal(t, 2, r.AnalyticHits)
	assert.Equal(t, 2, r.CreativeHits)
	assert.Equal(t, 1.0, r.Similarity)
	assert.True(t, r.ConsensusReached)
	assert.True(t, r.IsBalanced)
	assert.Nil(t, r.BlendDrift)
}

func TestAudit_NoStatementsNoKeywords(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)

	r, err := a.Audit("", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, Weights{}, r.Weights)
	assert.Equal(t, 1.0, r.Similarity)
	assert.True(t, r.ConsensusReached)
	assert.True(t, r.IsBalanced)
}

func TestAudit_PresenceNotFrequency(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)

	r, err := a.Audit("DATA data Data, more data. Imagine.", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, r.AnalyticHits)
	assert.Equal(t, 1, r.CreativeHits)
}

func TestAudit_OneSidedText(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)

	r, err := a.Audit("A systematic, structured analysis of the metrics.", tagged(HemisphereLeft, HemisphereLeft, HemisphereLeft, HemisphereRight), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, r.AnalyticHits)
	assert.Equal(t, 0, r.CreativeHits)
	assert.Equal(t, 0.0, r.Similarity)
	assert.False(t, r.ConsensusReached)
	// |0.75 - 0.25| = 0.5
	assert.False(t, r.IsBalanced)
}

func TestAudit_ThresholdsAreExclusive(t *testing.T) {
	p := DefaultPolicy()
	p.ConsensusThreshold = 0.5
	p.BalanceTolerance = 0.5
	a := NewAuditor(p, nil)

	// 2 analytic vs 1 creative -> similarity 1 - 1/3
	r, err := a.Audit("logic, evidence, story", tagged(HemisphereLeft, HemisphereLeft, HemisphereLeft, HemisphereRight), nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, r.Similarity, 1e-12)
	assert.True(t, r.ConsensusReached)
	assert.False(t, r.IsBalanced, "difference equal to tolerance is not balanced")
}

func TestAudit_BlendDrift(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)
	omega := 0.45

	r, err := a.Audit("", tagged(HemisphereLeft, HemisphereRight), &omega)
	require.NoError(t, err)
	require.NotNil(t, r.BlendDrift)
	assert.InDelta(t, 0.05, *r.BlendDrift, 1e-12)
}

func TestAudit_WholeWordsOnly(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)

	r, err := a.Audit("The history of the revision is in the database.", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.AnalyticHits)
	assert.Equal(t, 0, r.CreativeHits)
	assert.Equal(t, 1.0, r.Similarity)

	r, err = a.Audit("A story (with data) and a vision!", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.AnalyticHits)
	assert.Equal(t, 2, r.CreativeHits)
}

func TestAudit_PhraseKeywords(t *testing.T) {
	p := DefaultPolicy()
	p.AnalyticKeywords = []string{"Root  Cause"}
	p.CreativeKeywords = []string{"blue sky"}
	a := NewAuditor(p, nil)

	r, err := a.Audit("Find the root cause; skip the sky blue ideas.", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.AnalyticHits)
	assert.Equal(t, 0, r.CreativeHits)
}

func TestAudit_CustomKeywords(t *testing.T) {
	p := DefaultPolicy()
	p.AnalyticKeywords = []string{"Proof"}
	p.CreativeKeywords = []string{"Dream", ""}
	a := NewAuditor(p, nil)

	r, err := a.Audit("a proof and a dream", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.AnalyticHits)
	assert.Equal(t, 1, r.CreativeHits)
}

func TestAudit_UnknownTag(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)

	_, err := a.Audit("", []Statement{{Hemisphere: "upper"}}, nil)
	assert.Error(t, err)
}

func TestParseHemisphere(t *testing.T) {
	h, err := ParseHemisphere(" Left ")
	require.NoError(t, err)
	assert.Equal(t, HemisphereLeft, h)

	_, err = ParseHemisphere("")
	assert.Error(t, err)
}

// 属性：权重之和为 1（有陈述时），相似度落在 [0,1]
func TestAudit_Properties(t *testing.T) {
	a := NewAuditor(DefaultPolicy(), nil)
	words := append(append([]string{"plain", "words", "here"}, DefaultPolicy().AnalyticKeywords...), DefaultPolicy().CreativeKeywords...)
	tags := []Hemisphere{HemisphereLeft, HemisphereRight, HemisphereCentral}

	rapid.Check(t, func(rt *rapid.T) {
		picked := rapid.SliceOf(rapid.SampledFrom(words)).Draw(rt, "words")
		hs := rapid.SliceOfN(rapid.SampledFrom(tags), 1, 20).Draw(rt, "tags")

		text := ""
		for _, w := range picked {
			text += w + " "
		}
		r, err := a.Audit(text, tagged(hs...), nil)
		if err != nil {
			rt.Fatalf("audit: %v", err)
		}

		sum := r.Weights.Left + r.Weights.Right + r.Weights.Central
		if sum < 1-1e-9 || sum > 1+1e-9 {
			rt.Fatalf("weights sum to %v", sum)
		}
		if r.Similarity < 0 || r.Similarity > 1 {
			rt.Fatalf("similarity %v out of range", r.Similarity)
		}
	})
}
