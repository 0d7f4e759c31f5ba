package game

import "math/rand"

// computePlayOrderings builds the full fairness table for a match: one
// ordered team id list per tick. The list is shuffled once, rotated by
// one every tick, and reshuffled from scratch every len(teams)^2 ticks
// so no pair of teams keeps a fixed relative advantage.
//
// The whole table is computed up front; only a short forward window of
// it is ever exposed to clients.
func computePlayOrderings(teamIDs []string, numTicks int, rng *rand.Rand) PlayOrderings {
	orderings := make(PlayOrderings, numTicks)
	if len(teamIDs) == 0 {
		return orderings
	}

	current := shuffled(teamIDs, rng)
	reshuffleEvery := len(teamIDs) * len(teamIDs)
	for tick := 0; tick < numTicks; tick++ {
		if tick%reshuffleEvery == 0 {
			current = shuffled(teamIDs, rng)
		}
		current = append(current[1:], current[0])
		orderings[tick] = append([]string(nil), current...)
	}
	return orderings
}

func shuffled(ids []string, rng *rand.Rand) []string {
	out := append([]string(nil), ids...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// window returns the forward-looking slice of the table exposed in
// ticks: [currentTick, currentTick+horizon), capped at the match end.
func (o PlayOrderings) window(currentTick, totalTicks, horizon int) PlayOrderings {
	out := PlayOrderings{}
	end := currentTick + horizon
	if end > totalTicks {
		end = totalTicks
	}
	for tick := currentTick; tick < end; tick++ {
		if order, ok := o[tick]; ok {
			out[tick] = order
		}
	}
	return out
}
