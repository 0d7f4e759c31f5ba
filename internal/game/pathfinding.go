package game

import "container/heap"

type PathStatus int

const (
	PathFound PathStatus = iota
	PathNotFound
	PathTimeout
)

// PathResult holds an A* outcome. On success Path starts with the
// searching unit's own position and ends with the target.
type PathResult struct {
	Status PathStatus
	Path   []Position
}

type pathNode struct {
	pos    Position
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int           { return len(pq) }
func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }
func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func manhattan(a, b Position) float64 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return float64(dx + dy)
}

// computePathForUnit runs A* from the unit's position over the live
// walkability of the map: an edge exists iff the destination tile is
// currently walkable for this unit. Search effort is capped relative to
// the map area; hitting the cap reports a timeout.
func (g *Game) computePathForUnit(u *Unit, to Position) PathResult {
	maxExpansions := g.gameMap.Height() * g.gameMap.Width() * 4

	open := &pathQueue{}
	heap.Init(open)
	start := &pathNode{pos: u.Position, g: 0, f: manhattan(u.Position, to)}
	heap.Push(open, start)
	gScore := map[string]float64{u.Position.Key(): 0}
	closed := map[string]bool{}

	expansions := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if current.pos == to {
			return PathResult{Status: PathFound, Path: reconstructPath(current)}
		}
		key := current.pos.Key()
		if closed[key] {
			continue
		}
		closed[key] = true

		expansions++
		if expansions > maxExpansions {
			return PathResult{Status: PathTimeout}
		}

		for _, t := range g.gameMap.walkableNeighborsForUnit(current.pos, u) {
			nKey := t.Position.Key()
			if closed[nKey] {
				continue
			}
			tentative := current.g + 1
			if prev, seen := gScore[nKey]; seen && tentative >= prev {
				continue
			}
			gScore[nKey] = tentative
			heap.Push(open, &pathNode{
				pos:    t.Position,
				g:      tentative,
				f:      tentative + manhattan(t.Position, to),
				parent: current,
			})
		}
	}
	return PathResult{Status: PathNotFound}
}

func reconstructPath(end *pathNode) []Position {
	var reversed []Position
	for n := end; n != nil; n = n.parent {
		reversed = append(reversed, n.pos)
	}
	path := make([]Position, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return path
}
