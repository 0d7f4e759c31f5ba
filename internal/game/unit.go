package game

import "fmt"

// Unit is one controllable entity. Units are created once at team
// construction and never destroyed: death only clears the transient
// fields and the unit waits for its next SPAWN.
type Unit struct {
	ID string

	HasSpawned  bool
	HasDiamond  bool
	DiamondID   string
	SummonLevel int
	IsSummoning bool
	Position    Position

	// Path is the cached remainder of the last A* search. It may go
	// stale at any tick; move revalidates the next waypoint before
	// consuming it.
	Path []Position

	StateOfTurn UnitTurnState

	team *Team
}

func newUnit(team *Team) *Unit {
	u := &Unit{
		ID:   team.game.nextUnitID(),
		team: team,
	}
	team.Units = append(team.Units, u)
	return u
}

func (u *Unit) Team() *Team { return u.team }

func (u *Unit) IsAlive() bool { return u.HasSpawned }
func (u *Unit) IsDead() bool  { return !u.HasSpawned }

// IsOnSpawn reports whether the unit stands on a spawn tile, which
// protects it from attacks and pulls and restricts its own actions.
func (u *Unit) IsOnSpawn() bool {
	if !u.HasSpawned {
		return false
	}
	t, ok := u.team.game.gameMap.TileAt(u.Position)
	return ok && t.Type == TileSpawn
}

func (u *Unit) isDeadOrOnSpawn() bool {
	return !u.HasSpawned || u.IsOnSpawn()
}

// validateAction rejects the action kinds a unit cannot take in its
// current state: anything but SPAWN while dead, anything but NONE and
// MOVE while on a spawn tile, anything but SUMMON and NONE while
// summoning.
func (u *Unit) validateAction(action CommandAction) error {
	if u.IsDead() && action.Action != ActionSpawn {
		return newUnitError(u, "Unit is dead!")
	}
	if u.IsAlive() && action.Action != ActionNone && action.Action != ActionMove && u.IsOnSpawn() {
		return newUnitError(u, fmt.Sprintf("Invalid action, you cannot execute action '%s' on a spawn point", action.Action))
	}
	if u.IsSummoning && action.Action != ActionSummon && action.Action != ActionNone {
		return newUnitError(u, fmt.Sprintf("Invalid action, you cannot execute action '%s' while summoning!", action.Action))
	}
	return nil
}

// Spawn places a dead unit on the targeted spawn tile. A saturated
// target falls back to a random walkable spawn neighbor; the action
// fails only when no alternative exists.
func (u *Unit) Spawn(target Position) error {
	if u.IsAlive() {
		return newUnitError(u, "Unit has already spawned")
	}

	g := u.team.game
	m := g.gameMap

	spawnTile, ok := m.TileAt(target)
	if !ok || spawnTile.Type != TileSpawn {
		return newUnitError(u, fmt.Sprintf("Target is not a spawn point: %s", target))
	}

	if !m.isWalkableTileForUnit(spawnTile, u) {
		var alternatives []Tile
		for _, t := range m.WalkableNeighbors(target, g, true, false) {
			if t.Type == TileSpawn {
				alternatives = append(alternatives, t)
			}
		}
		if len(alternatives) == 0 {
			return newUnitError(u, fmt.Sprintf("A unit is already on that location: %s. No alternative spawn is available either!", target))
		}
		target = alternatives[g.rng.Intn(len(alternatives))].Position
	}

	u.Position = target
	u.HasSpawned = true
	return nil
}

// None holds position; a living unit still picks up a free diamond
// under its feet.
func (u *Unit) None() error {
	if u.IsAlive() {
		if err := u.maybePickUpDiamond(); err != nil {
			return err
		}
	}
	u.resetPath()
	return nil
}

// Move advances the unit one step toward target: directly when
// adjacent, along the cached path when the standing order is unchanged
// and the next waypoint is still walkable, otherwise through a fresh
// A* search. A unit pulled this turn stays put.
func (u *Unit) Move(target Position) error {
	if u.IsDead() {
		return newUnitError(u, "Unit is dead!")
	}

	if u.StateOfTurn.WasVinedBy != "" {
		u.resetPath()
		return u.maybePickUpDiamond()
	}

	if u.Position == target {
		u.resetPath()
		return u.maybePickUpDiamond()
	}

	g := u.team.game
	if !u.isTargetWalkable(target) {
		u.resetPath()
		if g.rules.isWarmUpTick(g.currentTick) && g.gameMap.Diamonds.IsDiamondAt(target) {
			return newUnitError(u, fmt.Sprintf("Diamond cannot be targeted during the warm up period : %s", target))
		}
		return newUnitError(u, fmt.Sprintf("Target destination is not walkable: %s", target))
	}

	if Adjacent(u.Position, target) {
		u.Path = nil
		u.Position = target
		return u.maybePickUpDiamond()
	}

	// Same standing order: keep the cached search and advance one step
	// if the next waypoint is still open.
	if n := len(u.Path); n != 0 && u.Path[n-1] == target {
		next := u.Path[0]
		if u.isTargetWalkable(next) {
			u.Position = next
			u.Path = u.Path[1:]
			return u.maybePickUpDiamond()
		}
	}

	result := g.computePathForUnit(u, target)
	if result.Status != PathFound {
		u.resetPath()
		return newUnitError(u, fmt.Sprintf("No path to %s", target))
	}

	// The first path node is the unit's own position: consume two.
	u.Path = result.Path
	u.Position = u.Path[1]
	u.Path = u.Path[2:]

	return u.maybePickUpDiamond()
}

// maybePickUpDiamond is the opportunistic pickup run after every
// relocation and on NONE: outside the warm-up period, a unit without a
// diamond claims the richest free diamond on its tile.
func (u *Unit) maybePickUpDiamond() error {
	g := u.team.game
	if g.rules.isWarmUpTick(g.currentTick) || u.HasDiamond {
		return nil
	}
	if !g.gameMap.Diamonds.IsFreeDiamondAt(u.Position) {
		return nil
	}
	diamondID, err := g.gameMap.Diamonds.PickUp(u.Position, u)
	if err != nil {
		return err
	}
	u.HasDiamond = true
	u.DiamondID = diamondID
	return nil
}

// Summon starts (or continues) charging the carried diamond. The level
// increment itself happens tick by tick through incrementSummonLevel.
func (u *Unit) Summon() error {
	if !u.HasDiamond {
		return newUnitError(u, "Unit does not have diamond!")
	}
	if u.IsDead() {
		return newUnitError(u, "Unit is dead!")
	}
	u.resetPath()

	diamonds := u.team.game.gameMap.Diamonds
	if diamonds.SummonLevelOf(u.DiamondID) == u.team.game.rules.MaximumSummonLevel {
		return newUnitError(u, fmt.Sprintf("Diamond with id '%s' is already at the maximum summon level!", u.DiamondID))
	}

	if !u.IsSummoning {
		u.team.pushEvent(TeamEvent{
			Action: EventSummon,
			UnitID: u.ID,
			Summon: &SummonEvent{
				DiamondCurrentSummonLevel: diamonds.SummonLevelOf(u.DiamondID),
				DiamondPoints:             diamonds.PointsOf(u.DiamondID),
			},
		})
	}
	u.IsSummoning = true
	u.StateOfTurn.HasSummoned = true
	return nil
}

// incrementSummonLevel advances an in-progress summon by one tick. When
// the unit's counter passes the diamond's current level the diamond
// levels up and the unit stops summoning.
func (u *Unit) incrementSummonLevel() {
	if !u.IsSummoning {
		return
	}
	u.StateOfTurn.HasSummoned = true
	u.SummonLevel++

	diamonds := u.team.game.gameMap.Diamonds
	if u.SummonLevel >= diamonds.SummonLevelOf(u.DiamondID)+1 {
		diamonds.Summon(u.DiamondID)
		u.SummonLevel = 0
		u.IsSummoning = false
	}
}

// Drop places the carried diamond on an adjacent empty tile. A bare
// tile scores the accrued points; a tile occupied by a diamond-less
// unit transfers the diamond to it instead, without scoring.
func (u *Unit) Drop(target Position) error {
	if !u.HasDiamond {
		return newUnitError(u, "Unit does not have diamond!")
	}
	if u.IsDead() {
		return newUnitError(u, "Unit is dead!")
	}
	u.resetPath()

	if !Adjacent(u.Position, target) {
		return newUnitError(u, fmt.Sprintf("Target is not adjacent : %s", target))
	}

	g := u.team.game
	if t, ok := g.gameMap.TileAt(target); !ok || t.Type != TileEmpty {
		return newUnitError(u, fmt.Sprintf("Can only drop on empty tile : %s", target))
	}

	diamonds := g.gameMap.Diamonds
	if receiver := g.unitAt(target); receiver != nil {
		if receiver.HasDiamond {
			return newUnitError(u, fmt.Sprintf("Cannot drop a diamond on a user that has a diamond : %s", target))
		}
		if err := diamonds.Transfer(u.DiamondID, receiver); err != nil {
			return err
		}
		receiver.HasDiamond = true
		receiver.DiamondID = u.DiamondID
	} else {
		u.team.pushEvent(TeamEvent{
			Action: EventDrop,
			UnitID: u.ID,
			Drop: &DropEvent{
				DiamondID:          u.DiamondID,
				DropPosition:       target,
				PointsScored:       diamonds.PointsOf(u.DiamondID),
				DiamondSummonLevel: diamonds.SummonLevelOf(u.DiamondID),
			},
		})
		if err := diamonds.Drop(u.DiamondID, target); err != nil {
			return err
		}
	}
	u.HasDiamond = false
	u.DiamondID = ""
	return nil
}

// Attack kills an adjacent, living, unprotected unit. Carriers cannot
// attack; neither can a unit standing on a spawn.
func (u *Unit) Attack(target Position) error {
	if u.HasDiamond {
		return newUnitError(u, "Unit has a diamond and cannot do this action!")
	}
	if u.IsDead() {
		return newUnitError(u, "Unit is dead!")
	}
	if u.IsOnSpawn() {
		return newUnitError(u, "Unit is on a spawn and cannot do this action!")
	}
	u.resetPath()

	g := u.team.game
	enemy := g.unitAt(target)
	if enemy == nil {
		return newUnitError(u, fmt.Sprintf("There is no unit on position : %s", target))
	}
	if !Adjacent(u.Position, enemy.Position) {
		return newUnitError(u, fmt.Sprintf("Enemy is not reachable for an attack : %s", target))
	}
	if enemy.IsOnSpawn() {
		return newUnitError(u, fmt.Sprintf("Target is on a spawn point, impossible to kill : %s", target))
	}
	if enemy.IsDead() {
		return newUnitError(u, fmt.Sprintf("Target is already dead, impossible to kill : %s", target))
	}

	if err := enemy.kill(u); err != nil {
		return err
	}
	u.team.pushEvent(TeamEvent{Action: EventAttack, UnitID: u.ID, Attack: &AttackEvent{TargetUnitID: enemy.ID}})
	return nil
}

// Vine pulls a distant unit along a clear straight line onto the first
// walkable tile closest to the caster. An enemy carrier loses its
// diamond at its pre-pull position, without scoring.
func (u *Unit) Vine(target Position) error {
	if u.HasDiamond {
		return newUnitError(u, "Unit has a diamond and cannot do this action!")
	}
	if u.IsDead() {
		return newUnitError(u, "Unit is dead!")
	}
	u.resetPath()

	g := u.team.game
	victim := g.unitAt(target)
	if victim == nil {
		return newUnitError(u, fmt.Sprintf("There is no unit on position : %s", target))
	}
	if u.Position == victim.Position {
		return newUnitError(u, "Cannot vine a unit on your position")
	}
	if Adjacent(u.Position, victim.Position) {
		return newUnitError(u, "Cannot vine on an adjacent position")
	}
	if victim.IsDead() {
		return newUnitError(u, fmt.Sprintf("Target is already dead, impossible to vine : %s", target))
	}
	if victim.IsOnSpawn() {
		return newUnitError(u, fmt.Sprintf("Target is on a spawn point, impossible to vine : %s", target))
	}

	line := g.gameMap.SpacesBetween(u.Position, victim.Position)
	if len(line) == 0 {
		return newUnitError(u, fmt.Sprintf("Target is not in your line of sight, impossible to vine : %s", target))
	}
	for _, t := range line {
		if !g.gameMap.NotBlockingLineOfSight(t, false) {
			return newUnitError(u, fmt.Sprintf("Target is not in your line of sight, impossible to vine : %s", target))
		}
	}

	var landing *Tile
	for i := range line {
		if g.gameMap.isWalkableTileForUnit(line[i], victim) {
			landing = &line[i]
			break
		}
	}
	if landing == nil {
		return newUnitError(u, fmt.Sprintf("Could not find any suitable vine location, impossible to vine: %s", target))
	}

	diamonds := g.gameMap.Diamonds
	diamondID := victim.DiamondID
	if err := victim.getVinedTo(landing.Position, u); err != nil {
		return err
	}

	event := TeamEvent{Action: EventVine, UnitID: u.ID, Vine: &VineEvent{VineUnitID: victim.ID}}
	if diamondID != "" {
		level := diamonds.SummonLevelOf(diamondID)
		points := diamonds.PointsOf(diamondID)
		event.Vine.DiamondSummonLevel = &level
		event.Vine.DiamondPoints = &points
	}
	u.team.pushEvent(event)
	return nil
}

// getVinedTo relocates the victim of a pull. An enemy pull strips the
// carried diamond first, leaving it at the pre-pull position with its
// points intact.
func (u *Unit) getVinedTo(target Position, by *Unit) error {
	if u.HasDiamond && u.team.ID != by.team.ID {
		if err := u.team.game.gameMap.Diamonds.DropNoScore(u.DiamondID, u.Position); err != nil {
			return err
		}
		u.HasDiamond = false
		u.DiamondID = ""
		u.IsSummoning = false
		u.SummonLevel = 0
	}
	u.StateOfTurn.WasVinedBy = by.ID
	before := u.Position
	u.StateOfTurn.PositionBefore = &before
	u.Position = target
	u.Path = nil
	return u.maybePickUpDiamond()
}

// kill clears the victim back to the dead state. A carried diamond is
// handed to the killer as a full ownership transfer.
func (u *Unit) kill(by *Unit) error {
	if u.HasDiamond {
		if err := u.team.game.gameMap.Diamonds.Transfer(u.DiamondID, by); err != nil {
			return err
		}
		by.HasDiamond = true
		by.DiamondID = u.DiamondID
	}
	u.StateOfTurn.WasAttackedBy = by.ID
	died := u.Position
	u.StateOfTurn.PositionBeforeDying = &died
	u.HasDiamond = false
	u.DiamondID = ""
	u.SummonLevel = 0
	u.IsSummoning = false
	u.Path = nil
	u.HasSpawned = false
	u.team.NumberOfDeaths++
	return nil
}

// ScorePoints credits the unit's team, except during the warm-up
// period.
func (u *Unit) ScorePoints(points int) {
	if !u.team.game.rules.isWarmUpTick(u.team.game.currentTick) {
		u.team.Score += points
	}
}

// computeStartOfTurn freezes the pre-turn position into the transient
// state so the upcoming snapshot reflects the turn that just ended.
func (u *Unit) computeStartOfTurn() {
	u.StateOfTurn.PositionBefore = u.positionPtr()
	u.StateOfTurn.HasSummoned = false
}

// resetStateOfTurn clears the previous turn's markers once it has been
// snapshotted.
func (u *Unit) resetStateOfTurn() {
	u.StateOfTurn = UnitTurnState{PositionBefore: u.positionPtr()}
}

func (u *Unit) positionPtr() *Position {
	if !u.HasSpawned {
		return nil
	}
	p := u.Position
	return &p
}

func (u *Unit) isTargetWalkable(target Position) bool {
	m := u.team.game.gameMap
	t, ok := m.TileAt(target)
	return ok && m.isWalkableTileForUnit(t, u)
}

func (u *Unit) resetPath() {
	u.Path = nil
}

// Serialize builds the unit's snapshot for ticks.
func (u *Unit) Serialize() TickTeamUnit {
	s := TickTeamUnit{
		ID:          u.ID,
		TeamID:      u.team.ID,
		Position:    u.positionPtr(),
		Path:        append([]Position(nil), u.Path...),
		HasDiamond:  u.HasDiamond,
		HasSpawned:  u.HasSpawned,
		IsSummoning: u.IsSummoning,
		LastState:   u.StateOfTurn,
	}
	if u.HasDiamond {
		s.DiamondID = u.DiamondID
	}
	return s
}
