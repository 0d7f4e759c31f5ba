package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"diamondrush/internal/game"
	"diamondrush/internal/protocol"
)

const (
	registrationDeadline = 5 * time.Second
	writeDeadline        = 5 * time.Second
)

// Server exposes one match over a single websocket endpoint. The first
// message on a fresh connection selects the role: REGISTER for a team,
// VIEWER for the spectator stream.
type Server struct {
	game *game.Game
	log  *log.Logger

	// tokens maps registration tokens to team names. Empty means open
	// registration under whatever name the client sends.
	tokens map[string]string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers map[*viewerConn]struct{}
}

func NewServer(g *game.Game, tokens map[string]string, logger *log.Logger) *Server {
	s := &Server{
		game:    g,
		log:     logger,
		tokens:  tokens,
		viewers: map[*viewerConn]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	g.OnGameCompleted(s.broadcastResults)
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(registrationDeadline))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.log.Printf("no registration message received in time from %s", r.RemoteAddr)
			return
		}

		base, err := protocol.DecodeBase(msg)
		if err != nil {
			writeError(conn, protocol.ErrProtoBadRequest, "first message must be REGISTER or VIEWER")
			return
		}

		switch base.Type {
		case protocol.TypeRegister:
			s.serveTeam(conn, msg)
		case protocol.TypeViewer:
			s.serveViewer(conn)
		default:
			writeError(conn, protocol.ErrProtoBadRequest, "first message must be REGISTER or VIEWER")
		}
	}
}

func (s *Server) serveTeam(conn *websocket.Conn, raw []byte) {
	var reg protocol.RegisterMsg
	if err := json.Unmarshal(raw, &reg); err != nil {
		writeError(conn, protocol.ErrProtoBadRequest, "malformed REGISTER message")
		return
	}

	name, ok := s.resolveTeamName(reg)
	if !ok {
		writeError(conn, protocol.ErrBadToken, "unknown registration token")
		return
	}

	tc := newTeamConn(conn, s.log)
	team, err := s.game.NewTeam(name, tc)
	if err != nil {
		s.log.Printf("rejecting registration of %q: %v", name, err)
		writeError(conn, protocol.ErrRegistrationClosed, err.Error())
		return
	}
	s.log.Printf("%s registered over websocket", team)

	// Through the teamConn's write lock: the engine may already be
	// sending the first TICK on this connection.
	if err := tc.writeJSON(protocol.RegisterAckMsg{
		Type:     protocol.TypeRegisterAck,
		TeamID:   team.ID,
		TeamName: team.Name,
	}); err != nil {
		tc.markClosed()
		return
	}

	// The read loop owns this goroutine until the client goes away. The
	// engine notices through the source's closed state on its next
	// solicitation.
	tc.readLoop()
}

func (s *Server) resolveTeamName(reg protocol.RegisterMsg) (string, bool) {
	if len(s.tokens) == 0 {
		name := reg.TeamName
		if name == "" {
			name = "team"
		}
		return name, true
	}
	name, ok := s.tokens[reg.Token]
	return name, ok
}

func (s *Server) serveViewer(conn *websocket.Conn) {
	vc := newViewerConn(s.log)
	s.mu.Lock()
	s.viewers[vc] = struct{}{}
	s.mu.Unlock()
	s.game.RegisterViewer(vc)

	defer func() {
		s.game.DeregisterViewer(vc)
		s.mu.Lock()
		delete(s.viewers, vc)
		s.mu.Unlock()
	}()

	done := make(chan struct{})

	// Writer goroutine.
	go func() {
		for {
			select {
			case <-done:
				return
			case b := <-vc.out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop: viewers send nothing of interest, it only detects
	// the connection going away.
	for {
		conn.SetReadDeadline(time.Time{})
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
}

func (s *Server) broadcastResults(results []game.GameResult, err error) {
	msg := protocol.ViewerResultsMsg{Type: protocol.ViewerTypeResults, Results: results}
	if err != nil {
		msg.Err = err.Error()
	}
	b, merr := json.Marshal(msg)
	if merr != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for vc := range s.viewers {
		sendLatest(vc.out, b)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func writeError(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.NewErrorMsg(code, message))
}

// sendLatest delivers b without ever blocking: when the channel is
// full the oldest pending frame is dropped to make room.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
