package game

import "time"

// Rules are the fixed gameplay constants for one match. They are part
// of every tick snapshot so clients never have to hardcode them.
type Rules struct {
	WarmUpTicks         int
	PointsPerDiamond    int
	InitialSummonLevel  int
	MaximumSummonLevel  int
	MaxUnitsPerPosition int

	// OrderingsHorizon is how many future ticks of the fairness table
	// are exposed to clients.
	OrderingsHorizon int

	// WarmStartTicks / WarmStartDelay: the first WarmStartTicks ticks
	// get WarmStartDelay added on top of the per-tick response timeout,
	// as an allowance for slow-starting clients.
	WarmStartTicks int
	WarmStartDelay time.Duration
}

func DefaultRules() Rules {
	return Rules{
		WarmUpTicks:         0,
		PointsPerDiamond:    1,
		InitialSummonLevel:  1,
		MaximumSummonLevel:  5,
		MaxUnitsPerPosition: 1,
		OrderingsHorizon:    5,
		WarmStartTicks:      10,
		WarmStartDelay:      time.Second,
	}
}

// isWarmUpTick reports whether tick falls inside the warm-up period,
// during which diamonds are frozen and scoring is suspended.
func (r Rules) isWarmUpTick(tick int) bool {
	return tick < r.WarmUpTicks
}
