package game

import (
	"fmt"
	"math"
)

// Position is a grid coordinate. X indexes rows, Y indexes columns,
// matching the map grids which are laid out [x][y].
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Adjacent reports whether a and b are orthogonal neighbors. Diagonals
// never count.
func Adjacent(a, b Position) bool {
	if a.X == b.X {
		return a.Y == b.Y-1 || a.Y == b.Y+1
	}
	if a.Y == b.Y {
		return a.X == b.X-1 || a.X == b.X+1
	}
	return false
}

// Distance is the euclidean distance between two positions.
func Distance(from, to Position) float64 {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Key encodes a position as a stable map key. Also the node identity
// used by the pathfinder.
func (p Position) Key() string {
	return fmt.Sprintf("%d|%d", p.X, p.Y)
}

func (p Position) String() string {
	return fmt.Sprintf("[x: %d, y: %d]", p.X, p.Y)
}
