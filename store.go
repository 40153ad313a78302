package codewords

import (
	"context"
	"errors"
	"math/rand"
	"strings"
)

var (
	// ErrRoomNotFound is returned when no room exists with the given code.
	ErrRoomNotFound = errors.New("codewords: room not found")
	// ErrRoomExists is returned by CreateRoom when the code is taken.
	ErrRoomExists = errors.New("codewords: room already exists")
	// ErrVersionConflict is returned by UpdateRoom when the room changed
	// out from under the caller. Re-read and retry.
	ErrVersionConflict = errors.New("codewords: room version conflict")

	// ErrPlayerNotFound is returned when an operation names a player the
	// room has never seen.
	ErrPlayerNotFound = errors.New("codewords: player not found")
	// ErrTeamRequired is returned when a spectator tries a team action.
	ErrTeamRequired = errors.New("codewords: player has no team")
	// ErrForbidden is returned when a known player acts out of turn or
	// out of role.
	ErrForbidden = errors.New("codewords: action not allowed")
	// ErrInvalidInput is returned for malformed arguments.
	ErrInvalidInput = errors.New("codewords: invalid input")
)

// Store is the persistence contract every backend adapter implements. All
// three calls are atomic per room.
//
// UpdateRoom is a compare-and-set: it writes rm only if the stored room's
// version still equals fromVersion, and returns ErrVersionConflict otherwise.
// Callers bump rm.Version before writing; the store never assigns versions.
type Store interface {
	// CreateRoom stores a brand-new room. ErrRoomExists if the code is
	// taken.
	CreateRoom(ctx context.Context, rm *Room) error
	// Room fetches a room by code. ErrRoomNotFound if absent.
	Room(ctx context.Context, code string) (*Room, error)
	// UpdateRoom overwrites the room if its stored version is still
	// fromVersion. ErrVersionConflict otherwise.
	UpdateRoom(ctx context.Context, rm *Room, fromVersion int64) error
}

// CodeLength is how many characters a room code has.
const CodeLength = 6

// codeChars leaves out 0/O/1/I/L so codes survive being read aloud or copied
// off a whiteboard.
var codeChars = []rune("ABCDEFGHJKMNPQRSTUVWXYZ23456789")

// RandomCode returns a fresh room code. Collisions are possible; creators
// retry on ErrRoomExists.
func RandomCode(r *rand.Rand) string {
	return randomString(r, CodeLength)
}

func randomString(r *rand.Rand, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteRune(codeChars[r.Intn(len(codeChars))])
	}
	return sb.String()
}

// NormalizeCode upper-cases a user-entered room code and trims surrounding
// whitespace, so " abc234 " and "ABC234" name the same room.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is a well-formed, already-normalized room
// code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(string(codeChars), c) {
			return false
		}
	}
	return true
}
