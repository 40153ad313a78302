package wsrpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bcspragu/Codewords"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server answers store calls arriving over websocket connections. Each
// connection's requests run in arrival order; clients that want parallelism
// keep multiple requests in flight and the replies carry their IDs.
type Server struct {
	store codewords.Store
	log   zerolog.Logger
	up    websocket.Upgrader
}

func NewServer(store codewords.Store, logger zerolog.Logger) *Server {
	return &Server{
		store: store,
		log:   logger,
		up: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Store peers are backends, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		return
	}
	defer ws.Close()

	for {
		var req request
		if err := ws.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("store connection ended")
			}
			return
		}

		if err := ws.WriteJSON(s.dispatch(r.Context(), &req)); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req *request) *response {
	resp := &response{ID: req.ID}

	var err error
	switch req.Op {
	case opCreate:
		if req.Room == nil {
			err = fmt.Errorf("%s without a room document", req.Op)
			break
		}
		err = s.store.CreateRoom(ctx, req.Room)
	case opGet:
		resp.Room, err = s.store.Room(ctx, req.Code)
	case opUpdate:
		if req.Room == nil {
			err = fmt.Errorf("%s without a room document", req.Op)
			break
		}
		err = s.store.UpdateRoom(ctx, req.Room, req.FromVersion)
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}

	resp.ErrCode, resp.ErrMsg = toWire(err)
	return resp
}
