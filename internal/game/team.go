package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CommandSource produces one command per tick for a team. This is the
// single capability a team is polymorphic over: network-backed teams,
// scripted teams and test stubs all just implement it.
//
// GetNextCommand may block until the team answers; the engine races it
// against the per-tick deadline and ignores late results. A source
// whose underlying transport is gone for good must return an error
// wrapping ErrCommandSourceClosed so the engine can mark the team dead
// instead of timing it out every tick.
type CommandSource interface {
	GetNextCommand(ctx context.Context, tick PlayerTick) (*Command, error)
}

// CommandSourceFunc adapts a plain function into a CommandSource.
type CommandSourceFunc func(ctx context.Context, tick PlayerTick) (*Command, error)

func (f CommandSourceFunc) GetNextCommand(ctx context.Context, tick PlayerTick) (*Command, error) {
	return f(ctx, tick)
}

// Team is one registered participant: a fixed set of units plus the
// per-tick error and event accumulators.
type Team struct {
	ID   string
	Name string

	Score          int
	NumberOfDeaths int
	Units          []*Unit

	// Errors are the command validation failures visible to this team
	// in its next player tick. Reset on every applied command.
	Errors []string

	// Events are the structured spectator events of the current tick.
	Events []TeamEvent

	Stats ActionStats

	// IsDead marks an irrecoverable transport failure. Never cleared.
	IsDead bool

	game   *Game
	source CommandSource
}

// NewTeam creates a team with the match's configured unit count and
// registers it with the game. Fails once the match has started.
func (g *Game) NewTeam(name string, source CommandSource) (*Team, error) {
	t := &Team{
		ID:     uuid.NewString(),
		Name:   name,
		game:   g,
		source: source,
	}
	for i := 0; i < g.opts.UnitsPerTeam; i++ {
		newUnit(t)
	}
	// Register last: registering the final team releases the engine
	// goroutine, which must only ever see fully-built teams.
	if err := g.registerTeam(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Team) String() string {
	return fmt.Sprintf("([Team] %s - %s)", t.ID, t.Name)
}

// Kill marks the team permanently dead. The engine stops soliciting
// commands from it.
func (t *Team) Kill() {
	t.IsDead = true
}

func (t *Team) pushEvent(event TeamEvent) {
	switch event.Action {
	case EventSummon:
		t.Stats.SummonCount++
	case EventDrop:
		t.Stats.DropCount++
	case EventVine:
		t.Stats.VineCount++
	case EventAttack:
		t.Stats.AttackCount++
	}
	t.Events = append(t.Events, event)
}

// PendingPoints sums the un-scored points carried by this team's units.
func (t *Team) PendingPoints() int {
	total := 0
	for _, u := range t.Units {
		total += t.game.gameMap.Diamonds.PendingPointsForOwner(u.ID)
	}
	return total
}

func (t *Team) computeStartOfTurn() {
	t.Events = nil
	for _, u := range t.Units {
		u.computeStartOfTurn()
	}
}

func (t *Team) resetStateOfTurn() {
	for _, u := range t.Units {
		u.resetStateOfTurn()
	}
}

// GetUnit resolves a unit id case-insensitively, or nil.
func (t *Team) GetUnit(unitID string) *Unit {
	for _, u := range t.Units {
		if strings.EqualFold(u.ID, unitID) {
			return u
		}
	}
	return nil
}

// UnitAt returns this team's living unit at the given position, or nil.
func (t *Team) UnitAt(at Position) *Unit {
	for _, u := range t.Units {
		if u.HasSpawned && u.Position == at {
			return u
		}
	}
	return nil
}

var targetRequired = map[string]bool{
	ActionMove:   true,
	ActionSpawn:  true,
	ActionDrop:   true,
	ActionVine:   true,
	ActionAttack: true,
}

var knownActions = map[string]bool{
	ActionMove:   true,
	ActionSpawn:  true,
	ActionSummon: true,
	ActionDrop:   true,
	ActionVine:   true,
	ActionAttack: true,
	ActionNone:   true,
}

// validateActionAndGetUnit rejects malformed actions and resolves the
// acting unit, then delegates state-dependent legality to the unit.
func (t *Team) validateActionAndGetUnit(action CommandAction) (*Unit, error) {
	if action.Type != "UNIT" {
		return nil, &CommandError{Msg: fmt.Sprintf("Action type %q is invalid!", action.Type)}
	}
	if !knownActions[action.Action] {
		return nil, &CommandError{Msg: fmt.Sprintf("Invalid action was sent %+v", action)}
	}
	if targetRequired[action.Action] && action.Target == nil {
		return nil, &CommandError{Msg: fmt.Sprintf("Invalid target was sent %+v", action)}
	}
	if action.UnitID == "" {
		return nil, &CommandError{Msg: fmt.Sprintf("No unitId was sent %+v", action)}
	}
	unit := t.GetUnit(action.UnitID)
	if unit == nil {
		return nil, &CommandError{Msg: fmt.Sprintf("Unit %s doesn't exists!", action.UnitID)}
	}
	if err := unit.validateAction(action); err != nil {
		return nil, err
	}
	return unit, nil
}

// ApplyCommand validates and dispatches each action in order. Rule
// violations are recorded in the team's error list and skip only the
// offending action; any other failure aborts the whole tick.
func (t *Team) ApplyCommand(command *Command) error {
	t.Errors = nil

	if command == nil || command.Actions == nil {
		t.Errors = append(t.Errors, "No actions received")
		return nil
	}

	acted := map[*Unit]bool{}
	for _, action := range command.Actions {
		err := t.applyAction(action, acted)
		if err == nil {
			continue
		}
		if !isActionError(err) {
			return err
		}
		t.Errors = append(t.Errors, err.Error())
	}
	return nil
}

func (t *Team) applyAction(action CommandAction, acted map[*Unit]bool) error {
	unit, err := t.validateActionAndGetUnit(action)
	if err != nil {
		return err
	}
	if acted[unit] {
		return &CommandError{Msg: fmt.Sprintf("Unit %s already received a command!", unit.ID)}
	}
	acted[unit] = true

	switch action.Action {
	case ActionNone:
		return unit.None()
	case ActionMove:
		return unit.Move(*action.Target)
	case ActionAttack:
		return unit.Attack(*action.Target)
	case ActionVine:
		return unit.Vine(*action.Target)
	case ActionSpawn:
		return unit.Spawn(*action.Target)
	case ActionDrop:
		return unit.Drop(*action.Target)
	case ActionSummon:
		return unit.Summon()
	}
	// validateActionAndGetUnit already rejected unknown kinds.
	return &CommandError{Msg: fmt.Sprintf("Invalid action %s", action.Action)}
}

// Serialize builds the team's snapshot for ticks.
func (t *Team) Serialize() TickTeam {
	units := make([]TickTeamUnit, 0, len(t.Units))
	for _, u := range t.Units {
		units = append(units, u.Serialize())
	}
	return TickTeam{
		ID:     t.ID,
		IsDead: t.IsDead,
		Name:   t.Name,
		Score:  t.Score,
		Errors: append([]string(nil), t.Errors...),
		Units:  units,
	}
}
