package game

// TileType is the gameplay view of a map cell. The raw display codes
// carry more variety (two wall skins, traps) but gameplay only ever
// distinguishes these four.
type TileType string

const (
	TileEmpty TileType = "EMPTY"
	TileWall  TileType = "WALL"
	TileSpawn TileType = "SPAWN"
	// TileDiamond only exists in raw grids. Map loading converts every
	// diamond cell into a Diamond entity on an EMPTY tile.
	TileDiamond TileType = "DIAMOND"
)

// Raw display tile codes, kept verbatim in the viewer grid.
const (
	RawFloor     = 0
	RawSpawn     = 1
	RawDiamond   = 2
	RawWaterWall = 3
	RawStoneWall = 4
	RawTrap      = 5
)

// rawToTileType maps every known raw code to its gameplay type. A raw
// code missing from this table is a fatal map-load error.
var rawToTileType = map[int]TileType{
	RawFloor:     TileEmpty,
	RawSpawn:     TileSpawn,
	RawDiamond:   TileEmpty,
	RawTrap:      TileEmpty,
	RawWaterWall: TileWall,
	RawStoneWall: TileWall,
}

// Tile is a derived view of one map cell: never stored, always built
// on lookup.
type Tile struct {
	Type     TileType `json:"type"`
	Position Position `json:"position"`
	Raw      int      `json:"number"`
}
