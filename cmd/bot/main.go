package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"diamondrush/internal/game"
	"diamondrush/internal/protocol"
)

// A reference client: spawns its units, walks them toward free
// diamonds and summons whatever it carries. Useful to fill seats in a
// match and as smoke traffic for the server.
func main() {
	var (
		url   = flag.String("url", "ws://127.0.0.1:8765/v1/ws", "server websocket url")
		name  = flag.String("name", "bot", "team name")
		token = flag.String("token", "", "registration token")
		seed  = flag.Int64("seed", 0, "decision seed (0 picks a time-based seed)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial %s: %v", *url, err)
	}
	defer conn.Close()

	if err := writeJSON(conn, protocol.RegisterMsg{
		Type:     protocol.TypeRegister,
		TeamName: *name,
		Token:    *token,
	}); err != nil {
		logger.Fatalf("register: %v", err)
	}

	var teamID string
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("connection closed: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeRegisterAck:
			var ack protocol.RegisterAckMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				logger.Fatalf("bad REGISTER_ACK: %v", err)
			}
			teamID = ack.TeamID
			logger.Printf("registered as %s (%s)", ack.TeamName, teamID)
		case protocol.TypeTick:
			var tm protocol.TickMsg
			if err := json.Unmarshal(msg, &tm); err != nil {
				continue
			}
			actions := decideActions(tm.Tick, teamID, rng)
			if err := writeJSON(conn, protocol.CommandMsg{
				Type:    protocol.TypeCommand,
				Tick:    tm.Tick.TickNumber,
				Actions: actions,
			}); err != nil {
				logger.Printf("send command: %v", err)
				return
			}
		case protocol.TypeError:
			var em protocol.ErrorMsg
			_ = json.Unmarshal(msg, &em)
			logger.Printf("server error: %s %s", em.Code, em.Message)
		}
	}
}

func decideActions(tick game.PlayerTick, teamID string, rng *rand.Rand) []game.CommandAction {
	var mine *game.TickTeam
	for i := range tick.Teams {
		if tick.Teams[i].ID == teamID {
			mine = &tick.Teams[i]
			break
		}
	}
	if mine == nil {
		return nil
	}

	spawns := spawnTiles(tick.Map.Tiles)
	var actions []game.CommandAction
	for _, u := range mine.Units {
		switch {
		case !u.HasSpawned || u.Position == nil:
			if len(spawns) == 0 {
				continue
			}
			target := spawns[rng.Intn(len(spawns))]
			actions = append(actions, game.CommandAction{
				Type:   "UNIT",
				Action: game.ActionSpawn,
				UnitID: u.ID,
				Target: &target,
			})
		case u.HasDiamond:
			actions = append(actions, game.CommandAction{
				Type:   "UNIT",
				Action: game.ActionSummon,
				UnitID: u.ID,
			})
		default:
			target := nearestDiamond(*u.Position, tick.Map.Diamonds)
			if target == nil {
				actions = append(actions, game.CommandAction{
					Type:   "UNIT",
					Action: game.ActionNone,
					UnitID: u.ID,
				})
				continue
			}
			actions = append(actions, game.CommandAction{
				Type:   "UNIT",
				Action: game.ActionMove,
				UnitID: u.ID,
				Target: target,
			})
		}
	}
	return actions
}

func spawnTiles(tiles [][]game.TileType) []game.Position {
	var out []game.Position
	for x, row := range tiles {
		for y, t := range row {
			if t == game.TileSpawn {
				out = append(out, game.Position{X: x, Y: y})
			}
		}
	}
	return out
}

func nearestDiamond(from game.Position, diamonds []game.Diamond) *game.Position {
	var best *game.Position
	bestDist := 0.0
	for i := range diamonds {
		if diamonds[i].OwnerID != "" {
			continue
		}
		p := diamonds[i].Position
		d := game.Distance(from, p)
		if best == nil || d < bestDist {
			best = &p
			bestDist = d
		}
	}
	return best
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
