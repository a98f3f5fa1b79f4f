package control

// State is the full control vector carried between ticks by the caller.
type State struct {
	Drive        float64   `json:"drive"`
	DriveHistory []float64 `json:"drive_history"`
	Bias         float64   `json:"bias"`
	BlendWeight  float64   `json:"blend_weight"`
	Global       float64   `json:"global_state"`
}

// TickInput is everything one tick needs besides the policy.
type TickInput struct {
	Prior         State
	Now           float64
	Events        []Event
	Contributions []Contribution
	Profiles      ProfileLookup
	Feedback      []FeedbackRecord
	Left          float64
	Right         float64
	Perturbation  float64
}

// TickResult is the next state plus each updater's breakdown.
type TickResult struct {
	State  State        `json:"state"`
	Drive  DriveResult  `json:"drive"`
	Bias   BiasResult   `json:"bias"`
	Global GlobalResult `json:"global"`
}

// Tick advances drive, bias, and the global state in order.
func Tick(in TickInput, p Policy) TickResult {
	drive := UpdateDrive(p.Drive, in.Events, in.Now, in.Prior.DriveHistory, p.HistoryCapacity)
	bias := UpdateBias(in.Contributions, in.Profiles, in.Feedback, p.Bias)
	return Combine(in, drive, bias, p)
}

// Combine finishes a tick from already computed drive and bias results.
func Combine(in TickInput, drive DriveResult, bias BiasResult, p Policy) TickResult {
	global := UpdateGlobal(GlobalInput{
		Left:         in.Left,
		Right:        in.Right,
		BlendWeight:  in.Prior.BlendWeight,
		Drive:        drive.Drive,
		Baseline:     p.Drive.Baseline,
		Bias:         bias.Bias,
		Perturbation: in.Perturbation,
	}, p.Global)

	return TickResult{
		State: State{
			Drive:        drive.Drive,
			DriveHistory: drive.History,
			Bias:         bias.Bias,
			BlendWeight:  global.BlendWeight,
			Global:       global.Global,
		},
		Drive:  drive,
		Bias:   bias,
		Global: global,
	}
}
