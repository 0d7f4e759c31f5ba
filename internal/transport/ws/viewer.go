package ws

import (
	"encoding/json"
	"log"

	"diamondrush/internal/game"
	"diamondrush/internal/protocol"
)

// viewerConn turns engine notifications into viewer stream frames. The
// out channel is drained by the connection's writer goroutine; a slow
// viewer loses old frames, never stalls the engine.
type viewerConn struct {
	out chan []byte
	log *log.Logger
}

func newViewerConn(logger *log.Logger) *viewerConn {
	return &viewerConn{
		out: make(chan []byte, 8),
		log: logger,
	}
}

func (v *viewerConn) OnTick(tick game.ViewerTick) {
	b, err := json.Marshal(protocol.ViewerTickMsg{Type: protocol.ViewerTypeTick, Tick: tick})
	if err != nil {
		v.log.Printf("marshal viewer tick: %v", err)
		return
	}
	sendLatest(v.out, b)
}

func (v *viewerConn) OnCommand(tick game.ViewerTick, playingTeamID string) {
	b, err := json.Marshal(protocol.ViewerCommandMsg{
		Type:          protocol.ViewerTypeCommand,
		Tick:          blankOtherTeamEvents(tick, playingTeamID),
		PlayingTeamID: playingTeamID,
	})
	if err != nil {
		v.log.Printf("marshal viewer command: %v", err)
		return
	}
	sendLatest(v.out, b)
}

// blankOtherTeamEvents keeps only the acting team's event log in a
// command frame. Works on copies; the shared snapshot is untouched.
func blankOtherTeamEvents(tick game.ViewerTick, playingTeamID string) game.ViewerTick {
	teams := make([]game.ViewerTickTeam, len(tick.Teams))
	for i, t := range tick.Teams {
		if t.ID != playingTeamID {
			t.Events = []game.TeamEvent{}
		}
		teams[i] = t
	}
	tick.Teams = teams
	tick.PlayingTeamID = playingTeamID
	return tick
}
