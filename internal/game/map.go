package game

import (
	"fmt"

	"github.com/google/uuid"
)

// GameMap owns the two tile grids of a match: the gameplay grid of
// TileTypes and the raw display grid kept for spectators. Both are
// indexed [x][y] with x in [0,Height) and y in [0,Width). Never resized
// after construction.
type GameMap struct {
	Diamonds    *Diamonds
	SpawnPoints []Position

	playerTiles [][]TileType
	viewerTiles [][]int

	height int
	width  int
}

// MapFromRaw builds a map from a decoded raw tile grid. Every diamond
// cell becomes a Diamond entity at the initial summon level and is
// rewritten to a floor code, so gameplay queries never see a diamond
// tile type. Fails on any raw code without a type mapping.
func MapFromRaw(raw [][]int, rules Rules) (*GameMap, error) {
	height := len(raw)
	width := 0
	if height > 0 {
		width = len(raw[0])
	}

	m := &GameMap{
		playerTiles: make([][]TileType, height),
		viewerTiles: make([][]int, height),
		height:      height,
		width:       width,
	}

	var diamonds []*Diamond
	for x, row := range raw {
		m.playerTiles[x] = make([]TileType, len(row))
		m.viewerTiles[x] = make([]int, len(row))
		for y, code := range row {
			tileType, ok := rawToTileType[code]
			if !ok {
				return nil, fmt.Errorf("the tile code %d at [%d,%d] has no tile type mapping", code, x, y)
			}
			pos := Position{X: x, Y: y}
			m.playerTiles[x][y] = tileType
			m.viewerTiles[x][y] = code

			switch code {
			case RawDiamond:
				diamonds = append(diamonds, &Diamond{
					ID:          uuid.NewString(),
					Position:    pos,
					SummonLevel: rules.InitialSummonLevel,
				})
				m.viewerTiles[x][y] = RawFloor
			case RawSpawn:
				m.SpawnPoints = append(m.SpawnPoints, pos)
			}
		}
	}

	m.Diamonds = newDiamonds(diamonds, rules.InitialSummonLevel, rules.MaximumSummonLevel)
	return m, nil
}

// EmptyMap generates a size x size floor with a spawn in each corner
// and a diamond in the middle.
func EmptyMap(size int, rules Rules) *GameMap {
	raw := make([][]int, size)
	for i := range raw {
		raw[i] = make([]int, size)
	}
	raw[0][0] = RawSpawn
	raw[size-1][0] = RawSpawn
	raw[0][size-1] = RawSpawn
	raw[size-1][size-1] = RawSpawn
	raw[size/2][size/2] = RawDiamond

	m, err := MapFromRaw(raw, rules)
	if err != nil {
		// All codes above are mapped; only a programming error gets here.
		panic(err)
	}
	return m
}

func (m *GameMap) Height() int { return m.height }
func (m *GameMap) Width() int  { return m.width }

func (m *GameMap) InBounds(at Position) bool {
	return at.X >= 0 && at.Y >= 0 && at.X < m.height && at.Y < m.width
}

// TileAt returns the tile at the given position, or false when out of
// bounds. Out of bounds is not an error.
func (m *GameMap) TileAt(at Position) (Tile, bool) {
	if !m.InBounds(at) {
		return Tile{}, false
	}
	return Tile{
		Type:     m.playerTiles[at.X][at.Y],
		Position: at,
		Raw:      m.viewerTiles[at.X][at.Y],
	}, true
}

// NeighborPositions returns the in-bounds orthogonal neighbors of a
// position, never diagonals.
func (m *GameMap) NeighborPositions(from Position) []Position {
	candidates := [4]Position{
		{X: from.X, Y: from.Y - 1},
		{X: from.X, Y: from.Y + 1},
		{X: from.X - 1, Y: from.Y},
		{X: from.X + 1, Y: from.Y},
	}
	out := make([]Position, 0, 4)
	for _, p := range candidates {
		if m.InBounds(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *GameMap) neighbors(from Position) []Tile {
	positions := m.NeighborPositions(from)
	tiles := make([]Tile, 0, len(positions))
	for _, p := range positions {
		if t, ok := m.TileAt(p); ok {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// WalkableNeighbors filters the orthogonal neighbors of from down to
// the tiles walkable under the given actor traits.
func (m *GameMap) WalkableNeighbors(from Position, g *Game, spawnExempt, carriesDiamond bool) []Tile {
	var out []Tile
	for _, t := range m.neighbors(from) {
		if m.IsWalkableTile(t, g, spawnExempt, carriesDiamond) {
			out = append(out, t)
		}
	}
	return out
}

func (m *GameMap) walkableNeighborsForUnit(from Position, u *Unit) []Tile {
	return m.WalkableNeighbors(from, u.team.game, u.IsOnSpawn(), u.HasDiamond)
}

// IsWalkableTile decides whether an actor can enter a tile: walls
// never, spawns only for spawn-exempt actors (dead or already on a
// spawn), diamond tiles never for carriers nor for anyone during the
// warm-up period, and only while the tile has occupant capacity left.
func (m *GameMap) IsWalkableTile(t Tile, g *Game, spawnExempt, carriesDiamond bool) bool {
	if t.Type == TileWall {
		return false
	}
	if !spawnExempt && t.Type == TileSpawn {
		return false
	}
	diamondOnTile := m.Diamonds.IsDiamondAt(t.Position)
	if carriesDiamond && diamondOnTile {
		return false
	}
	if diamondOnTile && g.rules.isWarmUpTick(g.currentTick) {
		return false
	}
	return g.countUnitsAt(t.Position) < g.rules.MaxUnitsPerPosition
}

func (m *GameMap) isWalkableTileForUnit(t Tile, u *Unit) bool {
	return m.IsWalkableTile(t, u.team.game, u.isDeadOrOnSpawn(), u.HasDiamond)
}

// SpacesBetween returns the intervening tiles between two axis-aligned
// positions, exclusive of from and inclusive of to, in travel order.
// Non-axis-aligned pairs yield nothing.
func (m *GameMap) SpacesBetween(from, to Position) []Tile {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx != 0 && dy != 0 || from == to {
		return nil
	}

	step := Position{X: sign(dx), Y: sign(dy)}
	var out []Tile
	for p := (Position{X: from.X + step.X, Y: from.Y + step.Y}); ; p.X, p.Y = p.X+step.X, p.Y+step.Y {
		t, ok := m.TileAt(p)
		if !ok {
			break
		}
		out = append(out, t)
		if p == to {
			break
		}
	}
	return out
}

// NotBlockingLineOfSight: walls always block; spawns block unless the
// viewer is spawn-exempt.
func (m *GameMap) NotBlockingLineOfSight(t Tile, viewerSpawnExempt bool) bool {
	if t.Type == TileWall {
		return false
	}
	return viewerSpawnExempt || t.Type != TileSpawn
}

// Serialize builds the gameplay map snapshot for ticks.
func (m *GameMap) Serialize() TickMap {
	tiles := make([][]TileType, m.height)
	for x := range m.playerTiles {
		tiles[x] = append([]TileType(nil), m.playerTiles[x]...)
	}
	return TickMap{Tiles: tiles, Diamonds: m.Diamonds.Serialize()}
}

// SerializeForViewer builds the raw display snapshot for spectators.
func (m *GameMap) SerializeForViewer() ViewerTickMap {
	tiles := make([][]int, m.height)
	for x := range m.viewerTiles {
		tiles[x] = append([]int(nil), m.viewerTiles[x]...)
	}
	return ViewerTickMap{ViewerTiles: tiles, Diamonds: m.Diamonds.Serialize()}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
