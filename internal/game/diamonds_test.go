package game

import "testing"

func TestPickUpPrefersRichestThenInsertionOrder(t *testing.T) {
	at := Position{X: 1, Y: 1}
	ds := newDiamonds([]*Diamond{
		{ID: "a", Position: at, SummonLevel: 1, Points: 3},
		{ID: "b", Position: at, SummonLevel: 1, Points: 7},
		{ID: "c", Position: at, SummonLevel: 1, Points: 7},
	}, 1, 5)
	u := &Unit{ID: "u1"}

	id, err := ds.PickUp(at, u)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	// b and c tie on points; the earlier insertion wins.
	if id != "b" {
		t.Fatalf("picked %q, want b", id)
	}
	if !ds.IsFreeDiamondAt(at) {
		t.Fatalf("remaining diamonds at the position should still be free")
	}

	if _, err := ds.PickUp(Position{X: 9, Y: 9}, u); err == nil {
		t.Fatalf("expected an error for a position without a free diamond")
	}
}

func TestSummonCapsAtMaximum(t *testing.T) {
	ds := newDiamonds([]*Diamond{
		{ID: "a", SummonLevel: 4, OwnerID: "u1"},
	}, 1, 5)
	ds.owners["u1"] = &Unit{ID: "u1"}

	ds.Summon("a")
	if got := ds.SummonLevelOf("a"); got != 5 {
		t.Fatalf("level = %d, want 5", got)
	}
	ds.Summon("a")
	if got := ds.SummonLevelOf("a"); got != 5 {
		t.Fatalf("level must cap at the maximum, got %d", got)
	}

	// Unowned diamonds never level up.
	free := newDiamonds([]*Diamond{{ID: "f", SummonLevel: 1}}, 1, 5)
	free.Summon("f")
	if got := free.SummonLevelOf("f"); got != 1 {
		t.Fatalf("unowned diamond leveled to %d", got)
	}
}

func TestDropScoresAndResets(t *testing.T) {
	raw := [][]int{
		{RawSpawn, RawFloor},
		{RawFloor, RawDiamond},
	}
	g := testGame(t, raw, testOpts())
	team, err := g.NewTeam("a", noopSource())
	if err != nil {
		t.Fatalf("NewTeam: %v", err)
	}
	u := team.Units[0]
	u.HasSpawned = true
	u.Position = Position{X: 1, Y: 1}

	ds := g.gameMap.Diamonds
	id, err := ds.PickUp(u.Position, u)
	if err != nil {
		t.Fatalf("PickUp: %v", err)
	}
	ds.byID(id).Points = 9
	ds.byID(id).SummonLevel = 3

	if err := ds.Drop(id, Position{X: 1, Y: 0}); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if team.Score != 9 {
		t.Fatalf("score = %d, want 9", team.Score)
	}
	dm := ds.byID(id)
	if dm.OwnerID != "" || dm.Points != 0 || dm.SummonLevel != 1 {
		t.Fatalf("diamond not reset after a scoring drop: %+v", dm)
	}
	if dm.Position != (Position{X: 1, Y: 0}) {
		t.Fatalf("diamond position = %v", dm.Position)
	}
}

func TestDropNoScorePreservesState(t *testing.T) {
	ds := newDiamonds([]*Diamond{
		{ID: "a", SummonLevel: 4, Points: 11, OwnerID: "u1"},
	}, 1, 5)
	ds.owners["u1"] = &Unit{ID: "u1"}

	if err := ds.DropNoScore("a", Position{X: 2, Y: 3}); err != nil {
		t.Fatalf("DropNoScore: %v", err)
	}
	dm := ds.byID("a")
	if dm.OwnerID != "" {
		t.Fatalf("diamond still owned")
	}
	if dm.Points != 11 || dm.SummonLevel != 4 {
		t.Fatalf("forced drop must preserve points and level: %+v", dm)
	}
	if dm.Position != (Position{X: 2, Y: 3}) {
		t.Fatalf("diamond position = %v", dm.Position)
	}
}

func TestTransferMovesOwnership(t *testing.T) {
	from := &Unit{ID: "u1", HasSpawned: true, Position: Position{X: 0, Y: 0}}
	to := &Unit{ID: "u2", HasSpawned: true, Position: Position{X: 4, Y: 4}}
	ds := newDiamonds([]*Diamond{
		{ID: "a", Points: 5, SummonLevel: 2, OwnerID: "u1"},
	}, 1, 5)
	ds.owners["u1"] = from

	if err := ds.Transfer("a", to); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	dm := ds.byID("a")
	if dm.OwnerID != "u2" {
		t.Fatalf("owner = %q, want u2", dm.OwnerID)
	}
	if dm.Position != to.Position {
		t.Fatalf("position = %v, want %v", dm.Position, to.Position)
	}
	if dm.Points != 5 || dm.SummonLevel != 2 {
		t.Fatalf("transfer must preserve points and level: %+v", dm)
	}
}

func TestIncrementPointsAccruesByLevel(t *testing.T) {
	ds := newDiamonds([]*Diamond{
		{ID: "owned", SummonLevel: 3, OwnerID: "u1"},
		{ID: "free", SummonLevel: 5},
	}, 1, 5)
	ds.owners["u1"] = &Unit{ID: "u1"}

	ds.IncrementPoints()
	ds.IncrementPoints()
	if got := ds.PointsOf("owned"); got != 6 {
		t.Fatalf("owned points = %d, want 6", got)
	}
	if got := ds.PointsOf("free"); got != 0 {
		t.Fatalf("free diamonds must not accrue, got %d", got)
	}
}
