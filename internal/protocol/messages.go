package protocol

import "diamondrush/internal/game"

// REGISTER (client -> server): first message on a fresh connection,
// expected within the registration deadline.
type RegisterMsg struct {
	Type     string `json:"type"`
	TeamName string `json:"teamName,omitempty"`
	Token    string `json:"token,omitempty"`
}

// REGISTER_ACK (server -> client)
type RegisterAckMsg struct {
	Type     string `json:"type"`
	TeamID   string `json:"teamId"`
	TeamName string `json:"teamName"`
}

// VIEWER (client -> server): first message selecting the spectator
// stream instead of team registration.
type ViewerMsg struct {
	Type string `json:"type"`
}

// TICK (server -> client): the per-team snapshot soliciting the next
// command.
type TickMsg struct {
	Type string          `json:"type"`
	Tick game.PlayerTick `json:"tick"`
}

// COMMAND (client -> server)
type CommandMsg struct {
	Type    string               `json:"type"`
	Tick    int                  `json:"tick"`
	Actions []game.CommandAction `json:"actions"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Viewer stream frames. Lowercase types, one JSON object per frame.
type ViewerTickMsg struct {
	Type string          `json:"type"`
	Tick game.ViewerTick `json:"tick"`
}

type ViewerCommandMsg struct {
	Type          string          `json:"type"`
	Tick          game.ViewerTick `json:"tick"`
	PlayingTeamID string          `json:"playingTeamId"`
}

type ViewerResultsMsg struct {
	Type    string            `json:"type"`
	Results []game.GameResult `json:"results"`
	Err     string            `json:"error,omitempty"`
}

func NewErrorMsg(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: message}
}
