// Package wsrpc tunnels the store contract over one persistent websocket.
// The server side wraps any store and answers JSON frames; the client side
// is itself a store, multiplexing calls onto the connection by request ID.
// It's the low-overhead alternative to the HTTP sync API when a satellite
// server holds a long-lived link to the box that owns the data.
package wsrpc

import (
	"errors"
	"fmt"

	"github.com/bcspragu/Codewords"
)

const (
	opCreate = "CREATE_ROOM"
	opGet    = "GET_ROOM"
	opUpdate = "UPDATE_ROOM"
)

const (
	errRoomNotFound    = "ROOM_NOT_FOUND"
	errRoomExists      = "ROOM_EXISTS"
	errVersionConflict = "VERSION_CONFLICT"
	errInternal        = "INTERNAL"
)

// request is one store call. ID correlates the reply; unused fields stay
// empty for a given op.
type request struct {
	ID          uint64          `json:"id"`
	Op          string          `json:"op"`
	Code        string          `json:"code,omitempty"`
	Room        *codewords.Room `json:"room,omitempty"`
	FromVersion int64           `json:"from_version,omitempty"`
}

type response struct {
	ID      uint64          `json:"id"`
	Room    *codewords.Room `json:"room,omitempty"`
	ErrCode string          `json:"error_code,omitempty"`
	ErrMsg  string          `json:"error_msg,omitempty"`
}

func toWire(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, codewords.ErrRoomNotFound):
		return errRoomNotFound, err.Error()
	case errors.Is(err, codewords.ErrRoomExists):
		return errRoomExists, err.Error()
	case errors.Is(err, codewords.ErrVersionConflict):
		return errVersionConflict, err.Error()
	}
	return errInternal, err.Error()
}

func fromWire(code, msg string) error {
	var sentinel error
	switch code {
	case "":
		return nil
	case errRoomNotFound:
		sentinel = codewords.ErrRoomNotFound
	case errRoomExists:
		sentinel = codewords.ErrRoomExists
	case errVersionConflict:
		sentinel = codewords.ErrVersionConflict
	default:
		return fmt.Errorf("wsrpc: server error: %s", msg)
	}
	return &wireError{sentinel: sentinel, msg: msg}
}

// wireError keeps the server's message verbatim while still matching the
// sentinel under errors.Is.
type wireError struct {
	sentinel error
	msg      string
}

func (e *wireError) Error() string { return e.msg }
func (e *wireError) Unwrap() error { return e.sentinel }
