package game

import (
	"strings"
	"testing"
)

// spawnAt force-places a unit, bypassing the SPAWN action.
func spawnAt(u *Unit, p Position) {
	u.HasSpawned = true
	u.Position = p
}

func TestSpawnRequiresSpawnTile(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor},
		{RawFloor, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]

	if err := u.Spawn(Position{X: 1, Y: 0}); err == nil {
		t.Fatalf("spawning on a floor tile must fail")
	}
	if err := u.Spawn(Position{X: 0, Y: 0}); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if !u.IsAlive() || u.Position != (Position{X: 0, Y: 0}) {
		t.Fatalf("unit not placed: %+v", u)
	}
	if err := u.Spawn(Position{X: 0, Y: 0}); err == nil {
		t.Fatalf("an alive unit must not spawn again")
	}
}

func TestSpawnFallsBackToFreeNeighborSpawn(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawSpawn},
		{RawFloor, RawDiamond},
	}
	opts := testOpts()
	opts.UnitsPerTeam = 2
	g := testGame(t, raw, opts)
	team, _ := g.NewTeam("a", noopSource())

	target := Position{X: 0, Y: 0}
	if err := team.Units[0].Spawn(target); err != nil {
		t.Fatalf("first Spawn: %v", err)
	}
	if err := team.Units[1].Spawn(target); err != nil {
		t.Fatalf("fallback Spawn: %v", err)
	}
	if team.Units[1].Position != (Position{X: 0, Y: 1}) {
		t.Fatalf("second unit landed on %v, want the neighboring spawn", team.Units[1].Position)
	}
}

func TestSpawnFailsWhenNoAlternative(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor},
		{RawFloor, RawDiamond},
	}
	opts := testOpts()
	opts.UnitsPerTeam = 2
	g := testGame(t, raw, opts)
	team, _ := g.NewTeam("a", noopSource())

	target := Position{X: 0, Y: 0}
	if err := team.Units[0].Spawn(target); err != nil {
		t.Fatalf("first Spawn: %v", err)
	}
	if err := team.Units[1].Spawn(target); err == nil {
		t.Fatalf("expected failure with no free spawn alternative")
	}
}

func TestMoveStepsOneTilePerTick(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawFloor, RawFloor, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]
	spawnAt(u, Position{X: 0, Y: 1})

	target := Position{X: 0, Y: 4}
	if err := u.Move(target); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if u.Position != (Position{X: 0, Y: 2}) {
		t.Fatalf("after first move at %v", u.Position)
	}
	if err := u.Move(target); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if u.Position != (Position{X: 0, Y: 3}) {
		t.Fatalf("after second move at %v", u.Position)
	}
	if err := u.Move(target); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if u.Position != target {
		t.Fatalf("after third move at %v", u.Position)
	}
	if !u.HasDiamond {
		t.Fatalf("unit must pick up the free diamond it lands on")
	}
}

func TestMovePathfindsAroundWalls(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawFloor},
		{RawStoneWall, RawStoneWall, RawFloor},
		{RawDiamond, RawFloor, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]
	spawnAt(u, Position{X: 0, Y: 1})

	target := Position{X: 2, Y: 0}
	for i := 0; i < 6 && u.Position != target; i++ {
		if err := u.Move(target); err != nil {
			t.Fatalf("Move %d: %v", i, err)
		}
	}
	if u.Position != target {
		t.Fatalf("never reached %v, stuck at %v", target, u.Position)
	}
}

func TestMoveRejectsUnwalkableTarget(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawStoneWall, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]
	spawnAt(u, Position{X: 0, Y: 1})

	err := u.Move(Position{X: 0, Y: 2})
	if err == nil {
		t.Fatalf("moving onto a wall must fail")
	}
	if !isActionError(err) {
		t.Fatalf("walkability failures must be recoverable, got %v", err)
	}
}

func TestMoveRejectsDiamondDuringWarmUp(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawDiamond},
	}
	opts := testOpts()
	opts.Rules.WarmUpTicks = 10
	g := testGame(t, raw, opts)
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]
	spawnAt(u, Position{X: 0, Y: 1})

	err := u.Move(Position{X: 0, Y: 2})
	if err == nil {
		t.Fatalf("diamond tiles must be frozen during warm-up")
	}
	if !strings.Contains(err.Error(), "warm up") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAttackTransfersDiamondToKiller(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawFloor, RawSpawn},
		{RawFloor, RawDiamond, RawFloor, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	a, _ := g.NewTeam("a", noopSource())
	b, _ := g.NewTeam("b", noopSource())

	attacker := a.Units[0]
	victim := b.Units[0]
	spawnAt(attacker, Position{X: 0, Y: 1})
	spawnAt(victim, Position{X: 1, Y: 1})
	if err := victim.None(); err != nil {
		t.Fatalf("None: %v", err)
	}
	if !victim.HasDiamond {
		t.Fatalf("victim should be carrying")
	}

	if err := attacker.Attack(victim.Position); err != nil {
		t.Fatalf("Attack: %v", err)
	}
	if victim.IsAlive() {
		t.Fatalf("victim survived")
	}
	if !attacker.HasDiamond {
		t.Fatalf("diamond must transfer to the killer")
	}
	if b.NumberOfDeaths != 1 {
		t.Fatalf("deaths = %d, want 1", b.NumberOfDeaths)
	}
	if len(a.Events) != 1 || a.Events[0].Action != EventAttack {
		t.Fatalf("attack event missing: %+v", a.Events)
	}
	if victim.StateOfTurn.WasAttackedBy != attacker.ID {
		t.Fatalf("victim state missing attacker id")
	}
}

func TestAttackBlockedBySpawnProtection(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	a, _ := g.NewTeam("a", noopSource())
	b, _ := g.NewTeam("b", noopSource())

	attacker := a.Units[0]
	victim := b.Units[0]
	spawnAt(attacker, Position{X: 0, Y: 1})
	spawnAt(victim, Position{X: 0, Y: 0})

	if err := attacker.Attack(victim.Position); err == nil {
		t.Fatalf("a unit on a spawn tile must be unattackable")
	}
}

func TestCarrierCannotAttackOrVine(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawDiamond, RawFloor, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	a, _ := g.NewTeam("a", noopSource())
	b, _ := g.NewTeam("b", noopSource())

	carrier := a.Units[0]
	other := b.Units[0]
	spawnAt(carrier, Position{X: 0, Y: 1})
	spawnAt(other, Position{X: 0, Y: 3})
	if err := carrier.None(); err != nil {
		t.Fatalf("None: %v", err)
	}

	if err := carrier.Attack(other.Position); err == nil {
		t.Fatalf("carriers must not attack")
	}
	if err := carrier.Vine(other.Position); err == nil {
		t.Fatalf("carriers must not vine")
	}
}

func TestVinePullsVictimToNearestTile(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawFloor, RawFloor, RawFloor},
		{RawDiamond, RawFloor, RawFloor, RawFloor, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	a, _ := g.NewTeam("a", noopSource())
	b, _ := g.NewTeam("b", noopSource())

	caster := a.Units[0]
	victim := b.Units[0]
	spawnAt(caster, Position{X: 0, Y: 0})
	spawnAt(victim, Position{X: 0, Y: 4})

	if err := caster.Vine(victim.Position); err != nil {
		t.Fatalf("Vine: %v", err)
	}
	if victim.Position != (Position{X: 0, Y: 1}) {
		t.Fatalf("victim landed at %v, want the tile nearest the caster", victim.Position)
	}
	if victim.StateOfTurn.WasVinedBy != caster.ID {
		t.Fatalf("victim state missing vine marker")
	}
	if len(a.Events) != 1 || a.Events[0].Action != EventVine {
		t.Fatalf("vine event missing: %+v", a.Events)
	}
}

func TestVineRejectsAdjacentAndBlockedLines(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawStoneWall, RawFloor, RawFloor},
		{RawDiamond, RawFloor, RawFloor, RawFloor, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	a, _ := g.NewTeam("a", noopSource())
	b, _ := g.NewTeam("b", noopSource())

	caster := a.Units[0]
	victim := b.Units[0]
	spawnAt(caster, Position{X: 0, Y: 0})
	spawnAt(victim, Position{X: 0, Y: 4})

	if err := caster.Vine(victim.Position); err == nil {
		t.Fatalf("a wall in the line must block the vine")
	}

	victim.Position = Position{X: 0, Y: 1}
	if err := caster.Vine(victim.Position); err == nil {
		t.Fatalf("adjacent targets must be rejected")
	}

	victim.Position = Position{X: 1, Y: 3}
	if err := caster.Vine(victim.Position); err == nil {
		t.Fatalf("non-axis-aligned targets must be rejected")
	}
}

func TestVineStripsEnemyCarrier(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawFloor, RawFloor, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	a, _ := g.NewTeam("a", noopSource())
	b, _ := g.NewTeam("b", noopSource())

	caster := a.Units[0]
	victim := b.Units[0]
	spawnAt(caster, Position{X: 0, Y: 0})
	spawnAt(victim, Position{X: 0, Y: 4})
	if err := victim.None(); err != nil {
		t.Fatalf("None: %v", err)
	}
	id := victim.DiamondID
	g.gameMap.Diamonds.byID(id).Points = 8

	if err := caster.Vine(victim.Position); err != nil {
		t.Fatalf("Vine: %v", err)
	}
	if victim.HasDiamond {
		t.Fatalf("enemy pull must strip the diamond")
	}
	dm := g.gameMap.Diamonds.byID(id)
	if dm.Position != (Position{X: 0, Y: 4}) {
		t.Fatalf("diamond must stay at the pre-pull position, got %v", dm.Position)
	}
	if dm.Points != 8 {
		t.Fatalf("forced drop must preserve points, got %d", dm.Points)
	}
	if victim.Position != (Position{X: 0, Y: 1}) {
		t.Fatalf("victim landed at %v", victim.Position)
	}
}

func TestSummonProgression(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawDiamond, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]
	spawnAt(u, Position{X: 0, Y: 1})
	if err := u.None(); err != nil {
		t.Fatalf("None: %v", err)
	}

	ds := g.gameMap.Diamonds
	if err := u.Summon(); err != nil {
		t.Fatalf("Summon: %v", err)
	}
	if !u.IsSummoning {
		t.Fatalf("unit should be summoning")
	}
	if len(team.Events) != 1 || team.Events[0].Action != EventSummon {
		t.Fatalf("summon event missing: %+v", team.Events)
	}

	// Raising level 1 to 2 takes two end-of-command increments.
	u.incrementSummonLevel()
	if lvl := ds.SummonLevelOf(u.DiamondID); lvl != 1 {
		t.Fatalf("level advanced too early: %d", lvl)
	}
	u.incrementSummonLevel()
	if lvl := ds.SummonLevelOf(u.DiamondID); lvl != 2 {
		t.Fatalf("level = %d, want 2", lvl)
	}
	if u.IsSummoning {
		t.Fatalf("summon must complete after the level-up")
	}

	// A second summon of the same unit starts from a clean counter.
	if u.SummonLevel != 0 {
		t.Fatalf("summon counter not reset: %d", u.SummonLevel)
	}
}

func TestSummonRejectedAtMaximumLevel(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawDiamond, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]
	spawnAt(u, Position{X: 0, Y: 1})
	if err := u.None(); err != nil {
		t.Fatalf("None: %v", err)
	}
	g.gameMap.Diamonds.byID(u.DiamondID).SummonLevel = g.rules.MaximumSummonLevel

	if err := u.Summon(); err == nil {
		t.Fatalf("summoning a maxed diamond must fail")
	}
}

func TestDropOntoCarrierlessUnitTransfers(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawDiamond, RawFloor},
	}
	g := testGame(t, raw, testOpts())
	a, _ := g.NewTeam("a", noopSource())
	b, _ := g.NewTeam("b", noopSource())

	carrier := a.Units[0]
	receiver := b.Units[0]
	spawnAt(carrier, Position{X: 0, Y: 1})
	spawnAt(receiver, Position{X: 0, Y: 2})
	if err := carrier.None(); err != nil {
		t.Fatalf("None: %v", err)
	}
	g.gameMap.Diamonds.byID(carrier.DiamondID).Points = 6

	if err := carrier.Drop(receiver.Position); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if carrier.HasDiamond || !receiver.HasDiamond {
		t.Fatalf("drop onto a unit must hand the diamond over")
	}
	// A transfer never scores or resets.
	if a.Score != 0 {
		t.Fatalf("transfer scored %d points", a.Score)
	}
	if got := g.gameMap.Diamonds.PointsOf(receiver.DiamondID); got != 6 {
		t.Fatalf("points = %d, want 6", got)
	}
}

func TestDropScoringHonorsWarmUp(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawDiamond, RawFloor},
	}
	opts := testOpts()
	opts.Rules.WarmUpTicks = 3
	g := testGame(t, raw, opts)
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]

	spawnAt(u, Position{X: 0, Y: 1})
	g.currentTick = 3
	if err := u.None(); err != nil {
		t.Fatalf("None: %v", err)
	}
	id := u.DiamondID
	g.gameMap.Diamonds.byID(id).Points = 4

	g.currentTick = 2
	if err := u.Drop(Position{X: 0, Y: 2}); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if team.Score != 0 {
		t.Fatalf("a drop during warm-up scored %d points", team.Score)
	}
	d := g.gameMap.Diamonds.byID(id)
	if d.Points != 0 || d.OwnerID != "" || d.Position != (Position{X: 0, Y: 2}) {
		t.Fatalf("diamond not reset after warm-up drop: %+v", d)
	}

	// The first tick at the warm-up boundary scores normally.
	g.currentTick = 3
	if err := u.Move(Position{X: 0, Y: 2}); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !u.HasDiamond || u.DiamondID != id {
		t.Fatalf("unit did not pick the diamond back up: %+v", u)
	}
	g.gameMap.Diamonds.byID(id).Points = 4
	if err := u.Drop(Position{X: 0, Y: 1}); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if team.Score != 4 {
		t.Fatalf("score = %d, want 4", team.Score)
	}
}

func TestActionLockoutOnSpawnTile(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())
	u := team.Units[0]
	spawnAt(u, Position{X: 0, Y: 0})

	target := Position{X: 0, Y: 1}
	err := u.validateAction(CommandAction{Type: "UNIT", Action: ActionAttack, UnitID: u.ID, Target: &target})
	if err == nil {
		t.Fatalf("attacking from a spawn tile must be rejected")
	}
	if err := u.validateAction(CommandAction{Type: "UNIT", Action: ActionMove, UnitID: u.ID, Target: &target}); err != nil {
		t.Fatalf("moving off a spawn tile must be allowed: %v", err)
	}
}

func TestApplyCommandRecordsDuplicateAndContinues(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawSpawn, RawFloor, RawDiamond},
	}
	opts := testOpts()
	opts.UnitsPerTeam = 2
	g := testGame(t, raw, opts)
	team, _ := g.NewTeam("a", noopSource())
	u1, u2 := team.Units[0], team.Units[1]

	s0 := Position{X: 0, Y: 0}
	s1 := Position{X: 0, Y: 1}
	if err := team.ApplyCommand(&Command{Actions: []CommandAction{
		{Type: "UNIT", Action: ActionSpawn, UnitID: u1.ID, Target: &s0},
		{Type: "UNIT", Action: ActionSpawn, UnitID: u1.ID, Target: &s1},
		{Type: "UNIT", Action: ActionSpawn, UnitID: u2.ID, Target: &s1},
	}}); err != nil {
		t.Fatalf("ApplyCommand: %v", err)
	}

	if len(team.Errors) != 1 || !strings.Contains(team.Errors[0], "already received a command") {
		t.Fatalf("duplicate not recorded: %v", team.Errors)
	}
	if !u1.IsAlive() || !u2.IsAlive() {
		t.Fatalf("valid actions around the duplicate must still apply")
	}
}

func TestApplyCommandNilActions(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	team, _ := g.NewTeam("a", noopSource())

	if err := team.ApplyCommand(nil); err != nil {
		t.Fatalf("ApplyCommand(nil): %v", err)
	}
	if len(team.Errors) != 1 || team.Errors[0] != "No actions received" {
		t.Fatalf("errors = %v", team.Errors)
	}
}
