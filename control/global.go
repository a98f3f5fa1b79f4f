package control

// GlobalInput is the state vector consumed by UpdateGlobal.
type GlobalInput struct {
	Left         float64 `json:"left_signal"`
	Right        float64 `json:"right_signal"`
	BlendWeight  float64 `json:"blend_weight"`
	Drive        float64 `json:"drive"`
	Baseline     float64 `json:"baseline"`
	Bias         float64 `json:"bias"`
	Perturbation float64 `json:"perturbation"`
}

// GlobalBreakdown lists the additive terms of G(t).
type GlobalBreakdown struct {
	LeftContribution  float64 `json:"left_contribution"`
	RightContribution float64 `json:"right_contribution"`
	BiasPenalty       float64 `json:"bias_penalty"`
	External          float64 `json:"external"`
}

// GlobalResult is G(t) with the integrated blend weight.
type GlobalResult struct {
	Global          float64         `json:"global_state"`
	BlendWeight     float64         `json:"blend_weight"`
	BlendWeightRate float64         `json:"blend_weight_rate"`
	Breakdown       GlobalBreakdown `json:"breakdown"`
}

// UpdateGlobal takes one forward Euler step of
//
//	dω/dt = αD·(D - D0) - βD·ω
//
// clamps ω to [0,1] and returns G = ω·FL + (1-ω)·FR - λB·B + Φ.
func UpdateGlobal(in GlobalInput, p GlobalParams) GlobalResult {
	rate := p.AlphaD*(in.Drive-in.Baseline) - p.BetaD*in.BlendWeight
	omega := clamp01(in.BlendWeight + rate*p.TimeStep)

	b := GlobalBreakdown{
		LeftContribution:  omega * in.Left,
		RightContribution: (1 - omega) * in.Right,
		BiasPenalty:       p.LambdaB * in.Bias,
		External:          in.Perturbation,
	}
	return GlobalResult{
		Global:          b.LeftContribution + b.RightContribution - b.BiasPenalty + b.External,
		BlendWeight:     omega,
		BlendWeightRate: rate,
		Breakdown:       b,
	}
}
