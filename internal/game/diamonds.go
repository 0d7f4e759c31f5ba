package game

import "fmt"

// Diamond is a collectible. Diamonds are created once at map load and
// persist for the whole match; drops reset them for reuse.
type Diamond struct {
	ID          string   `json:"id"`
	Position    Position `json:"position"`
	SummonLevel int      `json:"summonLevel"`
	Points      int      `json:"points"`
	OwnerID     string   `json:"ownerId,omitempty"`
}

// Diamonds owns every diamond of a match plus the owner index mapping
// unit ids to the units currently carrying a diamond. All mutation goes
// through the engine goroutine; no locking here.
//
// Operations reference diamonds by id. An unknown id is a core invariant
// violation and surfaces as a plain error, which the engine treats as
// fatal.
type Diamonds struct {
	diamonds []*Diamond
	owners   map[string]*Unit

	initialLevel int
	maximumLevel int
}

func newDiamonds(diamonds []*Diamond, initialLevel, maximumLevel int) *Diamonds {
	return &Diamonds{
		diamonds:     diamonds,
		owners:       map[string]*Unit{},
		initialLevel: initialLevel,
		maximumLevel: maximumLevel,
	}
}

// UpdatePositionsAfterTurn snaps every owned diamond onto its owner's
// position. Runs after each command application and again at end of
// tick so a carried diamond follows its carrier through intra-tick
// relocations.
func (d *Diamonds) UpdatePositionsAfterTurn() {
	for _, dm := range d.diamonds {
		if dm.OwnerID == "" {
			continue
		}
		owner := d.owners[dm.OwnerID]
		if owner != nil && owner.HasSpawned {
			dm.Position = owner.Position
		}
	}
}

// IncrementPoints accrues one tick's worth of points on every owned
// diamond: its own summon level. Higher level, faster accrual.
func (d *Diamonds) IncrementPoints() {
	for _, dm := range d.diamonds {
		if dm.OwnerID != "" {
			dm.Points += dm.SummonLevel
		}
	}
}

// positionOf resolves a diamond's effective position: the owner's
// position while carried, the stored position otherwise.
func (d *Diamonds) positionOf(dm *Diamond) Position {
	if dm.OwnerID != "" {
		if owner := d.owners[dm.OwnerID]; owner != nil && owner.HasSpawned {
			return owner.Position
		}
	}
	return dm.Position
}

// IsDiamondAt reports whether any diamond, owned or free, sits at the
// given position.
func (d *Diamonds) IsDiamondAt(at Position) bool {
	for _, dm := range d.diamonds {
		if d.positionOf(dm) == at {
			return true
		}
	}
	return false
}

// IsFreeDiamondAt reports whether an unowned diamond sits at the given
// position.
func (d *Diamonds) IsFreeDiamondAt(at Position) bool {
	for _, dm := range d.diamonds {
		if dm.OwnerID == "" && dm.Position == at {
			return true
		}
	}
	return false
}

// PickUp selects the unowned diamond at the given position with the
// highest accrued points (insertion order breaks ties) and assigns it
// to unit. Returns the diamond id.
func (d *Diamonds) PickUp(at Position, unit *Unit) (string, error) {
	var best *Diamond
	for _, dm := range d.diamonds {
		if dm.OwnerID != "" || dm.Position != at {
			continue
		}
		if best == nil || dm.Points > best.Points {
			best = dm
		}
	}
	if best == nil {
		return "", fmt.Errorf("no free diamond at %s", at)
	}
	best.OwnerID = unit.ID
	d.owners[unit.ID] = unit
	return best.ID, nil
}

// Transfer atomically reassigns ownership to newOwner and relocates the
// diamond onto it. Used by kills and carrier-to-carrier drops.
func (d *Diamonds) Transfer(diamondID string, newOwner *Unit) error {
	dm := d.byID(diamondID)
	if dm == nil {
		return fmt.Errorf("unknown diamond id %q", diamondID)
	}
	delete(d.owners, dm.OwnerID)
	dm.Position = newOwner.Position
	dm.OwnerID = newOwner.ID
	d.owners[newOwner.ID] = newOwner
	return nil
}

// Summon raises the diamond's summon level by one. No-op when the
// diamond is unowned or already at the maximum.
func (d *Diamonds) Summon(diamondID string) {
	dm := d.byID(diamondID)
	if dm != nil && dm.OwnerID != "" && dm.SummonLevel < d.maximumLevel {
		dm.SummonLevel++
	}
}

// Drop is a voluntary, scoring drop: the owner's team is credited with
// the accrued points (warm-up exemption applies inside ScorePoints),
// then the diamond is reset and left at the target position.
func (d *Diamonds) Drop(diamondID string, to Position) error {
	dm := d.byID(diamondID)
	if dm == nil {
		return fmt.Errorf("unknown diamond id %q", diamondID)
	}
	owner := d.owners[dm.OwnerID]
	if owner == nil {
		return fmt.Errorf("diamond %q has no owner to credit", diamondID)
	}
	owner.ScorePoints(dm.Points)
	delete(d.owners, dm.OwnerID)
	dm.Position = to
	dm.OwnerID = ""
	dm.SummonLevel = d.initialLevel
	dm.Points = 0
	return nil
}

// DropNoScore releases the diamond without crediting anyone and without
// resetting points or summon level. Used when a carrier is forcibly
// displaced by an enemy pull.
func (d *Diamonds) DropNoScore(diamondID string, to Position) error {
	dm := d.byID(diamondID)
	if dm == nil {
		return fmt.Errorf("unknown diamond id %q", diamondID)
	}
	delete(d.owners, dm.OwnerID)
	dm.OwnerID = ""
	dm.Position = to
	return nil
}

// PendingPointsForOwner sums the un-scored points of every diamond the
// given unit currently owns.
func (d *Diamonds) PendingPointsForOwner(ownerID string) int {
	total := 0
	for _, dm := range d.diamonds {
		if dm.OwnerID == ownerID {
			total += dm.Points
		}
	}
	return total
}

// SummonLevelOf returns the summon level of the given diamond, or 0 for
// an unknown id.
func (d *Diamonds) SummonLevelOf(diamondID string) int {
	if dm := d.byID(diamondID); dm != nil {
		return dm.SummonLevel
	}
	return 0
}

// PointsOf returns the accrued points of the given diamond, or 0 for an
// unknown id.
func (d *Diamonds) PointsOf(diamondID string) int {
	if dm := d.byID(diamondID); dm != nil {
		return dm.Points
	}
	return 0
}

// Serialize copies every diamond for a tick snapshot, with carried
// diamonds resolved onto their owner's position.
func (d *Diamonds) Serialize() []Diamond {
	out := make([]Diamond, 0, len(d.diamonds))
	for _, dm := range d.diamonds {
		c := *dm
		c.Position = d.positionOf(dm)
		out = append(out, c)
	}
	return out
}

func (d *Diamonds) byID(id string) *Diamond {
	for _, dm := range d.diamonds {
		if dm.ID == id {
			return dm
		}
	}
	return nil
}
