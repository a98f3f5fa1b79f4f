package control

import (
	"math"
	"slices"
)

// Event is a timed stimulus. Times share the unit of the tick clock.
type Event struct {
	Time      float64 `json:"time"`
	Magnitude float64 `json:"magnitude"`
}

// DriveResult is the next drive value plus its terms.
type DriveResult struct {
	Drive     float64   `json:"drive"`
	BoostTerm float64   `json:"boost_term"`
	DecayTerm float64   `json:"decay_term"`
	History   []float64 `json:"drive_history"`
}

// UpdateDrive computes
//
//	D(t) = D0 + η·Σ exp(-(t-te)²/(2σ²))·m - κ·Σ history
//
// clamped to [0,1]. The decay sums the whole supplied history; callers bound
// it. The result history is a new slice with D(t) appended and trimmed to
// capacity. history is not modified.
func UpdateDrive(p DriveParams, events []Event, now float64, history []float64, capacity int) DriveResult {
	var sum float64
	for _, h := range history {
		sum += h
	}
	return finishDrive(p, events, now, sum, history, capacity)
}

func finishDrive(p DriveParams, events []Event, now, historySum float64, history []float64, capacity int) DriveResult {
	boost := p.Boost * eventKernel(events, now, p.Spread)
	decay := p.Decay * historySum
	d := clamp01(p.Baseline + boost - decay)

	return DriveResult{
		Drive:     d,
		BoostTerm: boost,
		DecayTerm: decay,
		History:   pushBounded(history, d, capacity),
	}
}

// eventKernel is Σ exp(-(t-te)²/(2σ²))·m. A non-positive spread degenerates
// to counting only events at exactly t.
func eventKernel(events []Event, now, spread float64) float64 {
	var total float64
	for _, e := range events {
		dt := now - e.Time
		if spread <= 0 {
			if dt == 0 {
				total += e.Magnitude
			}
			continue
		}
		total += math.Exp(-(dt*dt)/(2*spread*spread)) * e.Magnitude
	}
	return total
}

func pushBounded(history []float64, v float64, capacity int) []float64 {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	out := make([]float64, 0, min(len(history)+1, capacity))
	if over := len(history) + 1 - capacity; over > 0 {
		history = history[over:]
	}
	out = append(out, history...)
	return append(out, v)
}

// DriveState is a rolling drive accumulator. It keeps the bounded history and
// its running sum so each update costs O(events) instead of replaying history.
// A DriveState is not safe for concurrent use.
type DriveState struct {
	params   DriveParams
	capacity int
	history  []float64
	sum      float64
}

// NewDriveState seeds the accumulator with prior history, keeping the newest
// capacity values.
func NewDriveState(p DriveParams, capacity int, history []float64) *DriveState {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	if len(history) > capacity {
		history = history[len(history)-capacity:]
	}
	s := &DriveState{params: p, capacity: capacity, history: slices.Clone(history)}
	for _, h := range s.history {
		s.sum += h
	}
	return s
}

// Update advances the state to now and returns the same result UpdateDrive
// would for the retained history.
func (s *DriveState) Update(events []Event, now float64) DriveResult {
	res := finishDrive(s.params, events, now, s.sum, s.history, s.capacity)

	if len(s.history) == s.capacity {
		s.sum -= s.history[0]
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, res.Drive)
	s.sum += res.Drive
	return res
}

// History returns a copy of the retained drive values, oldest first.
func (s *DriveState) History() []float64 {
	return slices.Clone(s.history)
}

// Sum returns the running history sum used by the decay term.
func (s *DriveState) Sum() float64 {
	return s.sum
}
