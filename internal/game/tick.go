package game

// Action kinds a command may name.
const (
	ActionSpawn  = "SPAWN"
	ActionMove   = "MOVE"
	ActionSummon = "SUMMON"
	ActionDrop   = "DROP"
	ActionVine   = "VINE"
	ActionAttack = "ATTACK"
	ActionNone   = "NONE"
)

// CommandAction is one unit order inside a command. Target is required
// for every kind except SUMMON and NONE.
type CommandAction struct {
	Type   string    `json:"type"` // only "UNIT" is valid
	Action string    `json:"action"`
	UnitID string    `json:"unitId"`
	Target *Position `json:"target,omitempty"`
}

// Command is the ordered action list one team submits for one tick.
type Command struct {
	Actions []CommandAction `json:"actions"`
}

// Team event kinds surfaced to spectators.
const (
	EventSummon         = "SUMMON"
	EventDrop           = "DROP"
	EventVine           = "VINE"
	EventAttack         = "ATTACK"
	EventDisconnect     = "DISCONNECT"
	EventCommandTimeout = "COMMAND_TIMEOUT"
)

type AttackEvent struct {
	TargetUnitID string `json:"targetUnitId"`
}

type SummonEvent struct {
	DiamondPoints             int `json:"diamondPoints"`
	DiamondCurrentSummonLevel int `json:"diamondCurrentSummonLevel"`
}

type DropEvent struct {
	DropPosition       Position `json:"dropPosition"`
	DiamondID          string   `json:"diamondId"`
	PointsScored       int      `json:"pointsScored"`
	DiamondSummonLevel int      `json:"diamondSummonLevel"`
}

type VineEvent struct {
	VineUnitID         string `json:"vineUnitId"`
	DiamondSummonLevel *int   `json:"diamondSummonLevel"`
	DiamondPoints      *int   `json:"diamondPoints"`
}

// TeamEvent is one structured entry of a team's per-tick event log.
type TeamEvent struct {
	Action string       `json:"action"`
	UnitID string       `json:"unitId,omitempty"`
	Attack *AttackEvent `json:"attackEvent,omitempty"`
	Summon *SummonEvent `json:"summonEvent,omitempty"`
	Drop   *DropEvent   `json:"dropEvent,omitempty"`
	Vine   *VineEvent   `json:"vineEvent,omitempty"`
}

// ActionStats are per-team rollup counters for spectators.
type ActionStats struct {
	SummonCount int `json:"summonCount"`
	AttackCount int `json:"attackCount"`
	DropCount   int `json:"dropCount"`
	VineCount   int `json:"vineCount"`
}

// UnitTurnState is the transient last-turn view of a unit.
type UnitTurnState struct {
	PositionBefore      *Position `json:"positionBefore,omitempty"`
	WasVinedBy          string    `json:"wasVinedBy,omitempty"`
	WasAttackedBy       string    `json:"wasAttackedBy,omitempty"`
	PositionBeforeDying *Position `json:"positionBeforeDying,omitempty"`
	HasSummoned         bool      `json:"hasSummoned,omitempty"`
}

// TickTeamUnit is a unit's snapshot inside a tick.
type TickTeamUnit struct {
	ID          string        `json:"id"`
	TeamID      string        `json:"teamId"`
	Position    *Position     `json:"position"`
	Path        []Position    `json:"path"`
	HasDiamond  bool          `json:"hasDiamond"`
	DiamondID   string        `json:"diamondId,omitempty"`
	IsSummoning bool          `json:"isSummoning"`
	HasSpawned  bool          `json:"hasSpawned"`
	LastState   UnitTurnState `json:"lastState"`
}

// TickTeam is a team's snapshot inside a tick.
type TickTeam struct {
	ID     string         `json:"id"`
	IsDead bool           `json:"isDead"`
	Name   string         `json:"name"`
	Score  int            `json:"score"`
	Units  []TickTeamUnit `json:"units"`
	Errors []string       `json:"errors"`
}

type TickMap struct {
	Tiles    [][]TileType `json:"tiles"`
	Diamonds []Diamond    `json:"diamonds"`
}

type ViewerTickMap struct {
	ViewerTiles [][]int   `json:"viewerTiles"`
	Diamonds    []Diamond `json:"diamonds"`
}

// TickGameConfig carries the rule constants inside every snapshot.
type TickGameConfig struct {
	WarmUpPeriod              int `json:"warmUpPeriod"`
	PointsPerDiamond          int `json:"pointsPerDiamond"`
	MaximumDiamondSummonLevel int `json:"maximumDiamondSummonLevel"`
	InitialDiamondSummonLevel int `json:"initialDiamondSummonLevel"`
	MaximumUnitPerPosition    int `json:"maximumUnitPerPosition"`
}

// PlayOrderings maps tick numbers to the order team commands are
// applied on that tick.
type PlayOrderings map[int][]string

// Tick is the canonical immutable snapshot produced every tick.
type Tick struct {
	TickNumber        int            `json:"tick"`
	TotalTick         int            `json:"totalTick"`
	Teams             []TickTeam     `json:"teams"`
	Map               TickMap        `json:"map"`
	GameConfig        TickGameConfig `json:"gameConfig"`
	TeamPlayOrderings PlayOrderings  `json:"teamPlayOrderings"`
}

// PlayerTick is a Tick scoped to one team: every other team's errors
// are redacted.
type PlayerTick struct {
	Tick
	TeamID string `json:"teamId"`
}

// ViewerTickTeam adds the spectator-only event log and stats.
type ViewerTickTeam struct {
	TickTeam
	Events []TeamEvent `json:"events"`
	Stats  ActionStats `json:"stats"`
}

// ViewerTick is the spectator snapshot: raw display tiles, events and
// stats, no fairness table. PlayingTeamID is set on command-scoped
// emissions only.
type ViewerTick struct {
	TickNumber    int              `json:"tick"`
	TotalTick     int              `json:"totalTick"`
	Teams         []ViewerTickTeam `json:"teams"`
	Map           ViewerTickMap    `json:"map"`
	GameConfig    TickGameConfig   `json:"gameConfig"`
	PlayingTeamID string           `json:"playingTeamId,omitempty"`
}
