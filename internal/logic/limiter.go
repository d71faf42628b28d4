package logic

// Engine is the limiter decision state machine. Each dimension (speed,
// rpm) keeps its own latch with hysteresis: it sets when a valid
// reading crosses the threshold and clears only when a valid reading
// drops below threshold minus hysteresis. An invalid reading freezes
// the latch in both directions: a sensor dropout is never read as
// overspeed, and a dropout while limiting is never read as "now safe".
//
// The engine is owned exclusively by the decision cycle and is not safe
// for concurrent use; actuation is the caller's responsibility.
type Engine struct {
	speedOver bool
	rpmOver   bool
	state     State
	cuts      int
	releases  int
}

// NewEngine creates an engine in the Allowing state.
func NewEngine() *Engine {
	return &Engine{}
}

// Decide advances the state machine with the current readings and
// threshold snapshot and returns the new state. When both dimensions
// are over, the reported reason is the speed limit; the rpm latch is
// still tracked, so recovery requires both dimensions to clear.
func (g *Engine) Decide(speed, rpm Reading, lim Limits) State {
	g.speedOver = latch(g.speedOver, speed, lim.MaxSpeedKmh, lim.SpeedHysteresisKmh)
	g.rpmOver = latch(g.rpmOver, rpm, lim.MaxRPM, lim.RPMHysteresis)

	var next State
	switch {
	case g.speedOver:
		next = State{Active: true, Reason: ReasonSpeed}
	case g.rpmOver:
		next = State{Active: true, Reason: ReasonRPM}
	}

	if next.Active && !g.state.Active {
		g.cuts++
	}
	if !next.Active && g.state.Active {
		g.releases++
	}
	g.state = next
	return next
}

// State returns the current limiter state without advancing it.
func (g *Engine) State() State {
	return g.state
}

// Counts returns how many times the cut was engaged and released.
func (g *Engine) Counts() (cuts, releases int) {
	return g.cuts, g.releases
}

func latch(over bool, r Reading, max, hysteresis float64) bool {
	if !r.Valid {
		return over
	}
	if over {
		// Exit only below the hysteresis band to avoid cut chatter
		// around the threshold.
		return r.Value >= max-hysteresis
	}
	return r.Value >= max
}
