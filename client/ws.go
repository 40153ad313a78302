package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bcspragu/Codewords/web"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type wsClient struct {
	conn  *websocket.Conn
	msgs  chan []byte
	done  chan struct{}
	hooks WSHooks
}

// WSHooks are the callbacks fired for each message on a room's feed. Nil
// hooks are skipped.
type WSHooks struct {
	OnConnect    func()
	OnRoomUpdate func(*web.RoomUpdate)
	OnCardVote   func(*web.CardVote)
}

// ListenForUpdates subscribes to the room's live feed and blocks, invoking
// hooks as frames arrive, until the connection drops. The first frame is
// always a full snapshot of the room.
func (c *Client) ListenForUpdates(code string, hooks WSHooks) error {
	scheme := "ws"
	if c.scheme == "https" {
		scheme = "wss"
	}

	addr := scheme + "://" + c.addr + "/api/room/" + code + "/ws"

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
		Jar:              c.http.Jar,
	}
	conn, _, err := dialer.Dial(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	if hooks.OnConnect != nil {
		go hooks.OnConnect()
	}

	wsc := &wsClient{
		conn: conn,
		done: make(chan struct{}),
		// We buffer it in case messages come in while we're waiting on user input.
		// We don't want to process messages concurrently, because that seems
		// likely to cause tricky problems.
		msgs:  make(chan []byte, 100),
		hooks: hooks,
	}

	go wsc.handleMessages()

	return wsc.read()
}

func (ws *wsClient) read() error {
	defer close(ws.done)
	for {
		messageType, message, err := ws.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ReadMessage: %w", err)
		}

		if messageType != websocket.TextMessage {
			continue
		}

		ws.msgs <- message
	}
}

func (ws *wsClient) handleMessages() {
	for {
		select {
		case <-ws.done:
			return
		case msg := <-ws.msgs:
			var justAction struct {
				Action string `json:"action"`
			}
			if err := json.Unmarshal(msg, &justAction); err != nil {
				// Skip the frame, the feed is still usable.
				log.Warn().Err(err).Msg("failed to unmarshal action from server")
				continue
			}

			switch justAction.Action {
			case web.ActionRoomState:
				ws.handleRoomUpdate(msg)
			case web.ActionCardVote:
				ws.handleCardVote(msg)
			default:
				log.Warn().Str("action", justAction.Action).Msg("unknown message action")
			}
		}
	}
}

func (ws *wsClient) handleRoomUpdate(dat []byte) {
	var ru web.RoomUpdate
	if err := json.Unmarshal(dat, &ru); err != nil {
		log.Warn().Err(err).Msg("failed to unmarshal room update")
		return
	}

	if ws.hooks.OnRoomUpdate == nil {
		return
	}
	ws.hooks.OnRoomUpdate(&ru)
}

func (ws *wsClient) handleCardVote(dat []byte) {
	var cv web.CardVote
	if err := json.Unmarshal(dat, &cv); err != nil {
		log.Warn().Err(err).Msg("failed to unmarshal card vote")
		return
	}

	if ws.hooks.OnCardVote == nil {
		return
	}
	ws.hooks.OnCardVote(&cv)
}
