// Package hub fans live room updates out to websocket subscribers. Mutations
// happen over the HTTP API; the hub only pushes, it never changes game state.
package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/bcspragu/Codewords"
	"github.com/gorilla/websocket"
)

// Hub maintains the set of active connections, grouped by room code, and
// broadcasts messages to them.
type Hub struct {
	// Registered connections.
	connections map[string][]*connection

	// Messages to send to everyone in a room.
	broadcast chan *roomMsg

	// Messages to send to a single player in a room.
	player chan *playerMsg

	// Register requests from the connections.
	register chan *connection

	// Unregister requests from connections.
	unregister chan *connection
}

// New creates a new Hub and starts it in a background Go routine.
func New() *Hub {
	h := &Hub{
		broadcast:   make(chan *roomMsg),
		player:      make(chan *playerMsg),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		connections: make(map[string][]*connection),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			conns := h.connections[c.code]
			h.connections[c.code] = append(conns, c)
		case c := <-h.unregister:
			h.deleteConn(c)
		case m := <-h.broadcast:
			var dead []*connection
			for _, c := range h.connections[m.code] {
				select {
				case c.send <- m.msg:
				default:
					dead = append(dead, c)
				}
			}
			for _, c := range dead {
				h.deleteConn(c)
			}
		case m := <-h.player:
			var dead []*connection
			for _, c := range h.connections[m.code] {
				if c.playerID == m.playerID {
					select {
					case c.send <- m.msg:
					default:
						dead = append(dead, c)
					}
				}
			}
			for _, c := range dead {
				h.deleteConn(c)
			}
		}
	}
}

// deleteConn removes a connection from its room and closes its send channel.
// Unregistering a connection that was already dropped is a no-op, so a
// readPump unregister racing a slow-consumer drop can't close the channel
// twice.
func (h *Hub) deleteConn(c *connection) {
	rconns := h.connections[c.code]
	for i, rconn := range rconns {
		if rconn.id == c.id {
			copy(rconns[i:], rconns[i+1:])
			rconns[len(rconns)-1] = nil
			h.connections[c.code] = rconns[:len(rconns)-1]
			close(c.send)
			return
		}
	}
}

type roomMsg struct {
	code string
	msg  []byte
}

// ToRoom sends a message to everyone subscribed to a room.
func (h *Hub) ToRoom(code string, msg interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(msg); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	h.broadcast <- &roomMsg{
		code: code,
		msg:  buf.Bytes(),
	}

	return nil
}

type playerMsg struct {
	code     string
	playerID codewords.PlayerID
	msg      []byte
}

// ToPlayer sends a message to a single player's connections in a room.
func (h *Hub) ToPlayer(code string, pID codewords.PlayerID, msg interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(msg); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	h.player <- &playerMsg{
		code:     code,
		playerID: pID,
		msg:      buf.Bytes(),
	}

	return nil
}

// Register associates a connection with the hub and a given room, and starts
// its read/write pumps. The hub owns the connection from here on.
func (h *Hub) Register(ws *websocket.Conn, code string, pID codewords.PlayerID) {
	conn := &connection{
		id:       newID(code),
		h:        h,
		code:     code,
		playerID: pID,
		send:     make(chan []byte, 256),
		ws:       ws,
	}
	h.register <- conn
	go conn.writePump()
	go conn.readPump()
}

func newID(code string) string {
	return fmt.Sprintf("%s-%d", code, rand.Int63())
}
