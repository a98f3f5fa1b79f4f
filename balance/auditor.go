package balance

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Hemisphere tags the style of one statement.
type Hemisphere string

const (
	HemisphereLeft    Hemisphere = "left"
	HemisphereRight   Hemisphere = "right"
	HemisphereCentral Hemisphere = "central"
)

// ParseHemisphere accepts the tag in any letter case.
func ParseHemisphere(s string) (Hemisphere, error) {
	switch h := Hemisphere(strings.ToLower(strings.TrimSpace(s))); h {
	case HemisphereLeft, HemisphereRight, HemisphereCentral:
		return h, nil
	}
	return "", fmt.Errorf("unknown hemisphere tag %q", s)
}

// Statement is one tagged contribution to the synthesized output.
type Statement struct {
	AgentID    string     `json:"agent_id,omitempty"`
	Text       string     `json:"text,omitempty"`
	Hemisphere Hemisphere `json:"hemisphere" validate:"required,oneof=left right central"`
}

// Policy holds the audit thresholds and keyword sets.
type Policy struct {
	// ConsensusThreshold is exclusive: similarity must exceed it.
	ConsensusThreshold float64 `yaml:"consensus_threshold" json:"consensus_threshold"`
	// BalanceTolerance is exclusive: |w_left - w_right| must stay below it.
	BalanceTolerance float64  `yaml:"balance_tolerance" json:"balance_tolerance"`
	AnalyticKeywords []string `yaml:"analytic_keywords" json:"analytic_keywords"`
	CreativeKeywords []string `yaml:"creative_keywords" json:"creative_keywords"`
}

// DefaultPolicy returns the stock thresholds and keyword sets.
func DefaultPolicy() Policy {
	return Policy{
		ConsensusThreshold: 0.7,
		BalanceTolerance:   0.3,
		AnalyticKeywords: []string{
			"analysis", "data", "logic", "evidence",
			"systematic", "structured", "quantitative", "metrics",
		},
		CreativeKeywords: []string{
			"creative", "innovative", "imagine", "novel",
			"intuition", "vision", "story", "possibility",
		},
	}
}

// Weights is the share of statements per hemisphere.
type Weights struct {
	Left    float64 `json:"left"`
	Right   float64 `json:"right"`
	Central float64 `json:"central"`
}

// Report is the audit outcome.
type Report struct {
	Counts           map[Hemisphere]int `json:"counts"`
	Weights          Weights            `json:"weights"`
	AnalyticHits     int                `json:"analytic_hits"`
	CreativeHits     int                `json:"creative_hits"`
	Similarity       float64            `json:"similarity_score"`
	ConsensusReached bool               `json:"consensus_reached"`
	IsBalanced       bool               `json:"is_balanced"`
	// BlendDrift is |w_left - ω| when a target blend weight was supplied.
	BlendDrift *float64 `json:"blend_drift,omitempty"`
}

// Auditor checks whether a synthesized output matches the intended
// analytic/creative composition.
type Auditor struct {
	policy   Policy
	analytic []string
	creative []string
	logger   *zap.Logger
}

// NewAuditor creates an auditor. Keywords are matched case-insensitively
// against whole words; a multi-word keyword must appear as a consecutive phrase.
func NewAuditor(policy Policy, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{
		policy:   policy,
		analytic: lowerAll(policy.AnalyticKeywords),
		creative: lowerAll(policy.CreativeKeywords),
		logger:   logger.With(zap.String("component", "balance_auditor")),
	}
}

// Audit weighs the tagged statements and scans text for keyword hits.
// blendWeight, when non-nil, is the intended left share.
func (a *Auditor) Audit(text string, statements []Statement, blendWeight *float64) (*Report, error) {
	counts := map[Hemisphere]int{
		HemisphereLeft:    0,
		HemisphereRight:   0,
		HemisphereCentral: 0,
	}
	for i, st := range statements {
		h, err := ParseHemisphere(string(st.Hemisphere))
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
		counts[h]++
	}

	r := &Report{Counts: counts}
	if total := len(statements); total > 0 {
		n := float64(total)
		r.Weights = Weights{
			Left:    float64(counts[HemisphereLeft]) / n,
			Right:   float64(counts[HemisphereRight]) / n,
			Central: float64(counts[HemisphereCentral]) / n,
		}
	}

	padded := " " + strings.Join(tokenize(text), " ") + " "
	r.AnalyticHits = presentCount(padded, a.analytic)
	r.CreativeHits = presentCount(padded, a.creative)

	diff := math.Abs(float64(r.AnalyticHits - r.CreativeHits))
	r.Similarity = 1 - diff/math.Max(float64(r.AnalyticHits+r.CreativeHits), 1)
	r.ConsensusReached = r.Similarity > a.policy.ConsensusThreshold
	r.IsBalanced = math.Abs(r.Weights.Left-r.Weights.Right) < a.policy.BalanceTolerance

	if blendWeight != nil {
		drift := math.Abs(r.Weights.Left - *blendWeight)
		r.BlendDrift = &drift
	}

	a.logger.Debug("balance audited",
		zap.Int("statements", len(statements)),
		zap.Float64("similarity", r.Similarity),
		zap.Bool("consensus", r.ConsensusReached),
		zap.Bool("balanced", r.IsBalanced))
	return r, nil
}

// presentCount counts keywords that occur at least once in padded, the
// space-joined word list of the text with a leading and trailing space.
func presentCount(padded string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(padded, " "+kw+" ") {
			n++
		}
	}
	return n
}

// tokenize lowercases s and splits it on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.Join(tokenize(s), " "))
	}
	return out
}
