package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"diamondrush/internal/game"
	"diamondrush/internal/protocol"
)

// teamConn adapts one registered websocket connection to the engine's
// command source interface. The engine solicits by sending a TICK
// frame and waiting for the matching COMMAND; a solicitation abandoned
// on timeout is superseded by the next one, and a COMMAND for a tick
// nobody is waiting on is discarded.
type teamConn struct {
	conn *websocket.Conn
	log  *log.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending *pendingCommand

	closed    chan struct{}
	closeOnce sync.Once
}

type pendingCommand struct {
	tick int
	ch   chan *game.Command
}

func newTeamConn(conn *websocket.Conn, logger *log.Logger) *teamConn {
	return &teamConn{
		conn:   conn,
		log:    logger,
		closed: make(chan struct{}),
	}
}

func (t *teamConn) GetNextCommand(ctx context.Context, pt game.PlayerTick) (*game.Command, error) {
	select {
	case <-t.closed:
		return nil, fmt.Errorf("websocket gone: %w", game.ErrCommandSourceClosed)
	default:
	}

	ch := make(chan *game.Command, 1)
	t.mu.Lock()
	t.pending = &pendingCommand{tick: pt.TickNumber, ch: ch}
	t.mu.Unlock()

	if err := t.writeJSON(protocol.TickMsg{Type: protocol.TypeTick, Tick: pt}); err != nil {
		t.markClosed()
		return nil, fmt.Errorf("write tick: %v: %w", err, game.ErrCommandSourceClosed)
	}

	select {
	case cmd := <-ch:
		return cmd, nil
	case <-t.closed:
		return nil, fmt.Errorf("websocket gone: %w", game.ErrCommandSourceClosed)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readLoop consumes COMMAND frames until the connection dies. Frames
// failing schema validation get an ERROR frame back and are otherwise
// ignored.
func (t *teamConn) readLoop() {
	defer t.markClosed()
	for {
		_ = t.conn.SetReadDeadline(time.Time{})
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			return
		}

		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeCommand {
			t.writeError(protocol.ErrProtoBadRequest, "expected a COMMAND message")
			continue
		}
		if err := protocol.ValidateCommand(msg); err != nil {
			t.writeError(protocol.ErrSchema, err.Error())
			continue
		}
		var cm protocol.CommandMsg
		if err := json.Unmarshal(msg, &cm); err != nil {
			t.writeError(protocol.ErrProtoBadRequest, "malformed COMMAND message")
			continue
		}

		t.mu.Lock()
		if p := t.pending; p != nil && p.tick == cm.Tick {
			t.pending = nil
			p.ch <- &game.Command{Actions: cm.Actions}
		}
		// A command for a tick nobody waits on anymore is dropped.
		t.mu.Unlock()
	}
}

func (t *teamConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return t.conn.WriteMessage(websocket.TextMessage, b)
}

func (t *teamConn) writeError(code, message string) {
	if err := t.writeJSON(protocol.NewErrorMsg(code, message)); err != nil {
		t.markClosed()
	}
}

func (t *teamConn) markClosed() {
	t.closeOnce.Do(func() { close(t.closed) })
}
