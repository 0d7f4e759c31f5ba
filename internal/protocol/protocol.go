package protocol

import "encoding/json"

const Version = "1.1"

// Player channel message types.
const (
	TypeRegister    = "REGISTER"
	TypeRegisterAck = "REGISTER_ACK"
	TypeViewer      = "VIEWER"
	TypeTick        = "TICK"
	TypeCommand     = "COMMAND"
	TypeError       = "ERROR"
)

// Viewer stream message types.
const (
	ViewerTypeTick    = "tick"
	ViewerTypeCommand = "command"
	ViewerTypeResults = "results"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
