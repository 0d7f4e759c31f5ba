package game

import (
	"errors"
	"fmt"
)

// UnitError is a rule violation raised by a unit action. It is recorded
// in the acting team's error list and never aborts the tick.
type UnitError struct {
	UnitID  string
	UnitPos *Position
	Msg     string
}

func (e *UnitError) Error() string {
	pos := "notSpawned"
	if e.UnitPos != nil {
		pos = e.UnitPos.String()
	}
	return fmt.Sprintf("(id: %s|position: %s) %s", e.UnitID, pos, e.Msg)
}

func newUnitError(u *Unit, msg string) *UnitError {
	e := &UnitError{UnitID: u.ID, Msg: msg}
	if u.HasSpawned {
		p := u.Position
		e.UnitPos = &p
	}
	return e
}

// CommandError is a malformed or invalid command action. Recorded like
// a UnitError.
type CommandError struct {
	Msg string
}

func (e *CommandError) Error() string { return e.Msg }

// isActionError reports whether err is one of the recoverable per-action
// error kinds. Anything else escaping the application loop is fatal to
// the match.
func isActionError(err error) bool {
	var ue *UnitError
	var ce *CommandError
	return errors.As(err, &ue) || errors.As(err, &ce)
}

// TeamError covers registration failures. The match is unaffected.
type TeamError struct {
	TeamID   string
	TeamName string
	Msg      string
}

func (e *TeamError) Error() string {
	return fmt.Sprintf("([Team] %s - %s) %s", e.TeamID, e.TeamName, e.Msg)
}

// OptionError is a fatal configuration error: the match never starts.
type OptionError struct {
	Name   string
	Reason string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("the option '%s' is invalid: %s", e.Name, e.Reason)
}

func validateNonZeroPositive(v int, name string) error {
	if v <= 0 {
		return &OptionError{Name: name, Reason: fmt.Sprintf("the value %d needs to be a non-zero positive integer", v)}
	}
	return nil
}

func validatePositive(v int, name string) error {
	if v < 0 {
		return &OptionError{Name: name, Reason: fmt.Sprintf("the value %d needs to be a positive integer", v)}
	}
	return nil
}

// ErrCommandSourceClosed marks a team's transport as permanently gone.
// The engine kills the team instead of treating it as a per-tick timeout.
var ErrCommandSourceClosed = errors.New("command source closed")
