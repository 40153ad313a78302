package web

import (
	"encoding/json"

	"github.com/bcspragu/Codewords"
)

// Actions tag every frame on the room feed so clients can dispatch without
// decoding the whole message.
const (
	ActionRoomState = "ROOM_STATE"
	ActionCardVote  = "CARD_VOTE"
)

// Events say which mutation produced a ROOM_STATE frame.
const (
	EventSnapshot     = "SNAPSHOT"
	EventPlayerJoined = "PLAYER_JOINED"
	EventTeamSelected = "TEAM_SELECTED"
	EventRoleChanged  = "ROLE_CHANGED"
	EventHintGiven    = "HINT_GIVEN"
	EventCardRevealed = "CARD_REVEALED"
	EventTurnEnded    = "TURN_ENDED"
	EventNewGame      = "NEW_GAME"
	EventMicToggled   = "MIC_TOGGLED"
	EventPlayerLeft   = "PLAYER_LEFT"
)

// RoomUpdate is a fresh snapshot of the room, pushed after every mutation.
// The broadcast copy is redacted; seated spymasters get a follow-up copy with
// the card types filled in.
type RoomUpdate struct {
	Event string          `json:"event"`
	Room  *codewords.Room `json:"room"`
}

func (ru *RoomUpdate) MarshalJSON() ([]byte, error) {
	type alias RoomUpdate
	return json.Marshal(struct {
		Action string `json:"action"`
		*alias
	}{ActionRoomState, (*alias)(ru)})
}

// CardVote announces one guesser's advisory nomination to the whole room.
// Majority is true when the nominated card now has a strict majority of the
// team's active guessers behind it.
type CardVote struct {
	PlayerID codewords.PlayerID `json:"player_id"`
	Name     string             `json:"name"`
	Team     codewords.Team     `json:"team"`
	CardID   int                `json:"card_id"`
	Votes    int                `json:"votes"`
	Majority bool               `json:"majority"`
}

func (cv *CardVote) MarshalJSON() ([]byte, error) {
	type alias CardVote
	return json.Marshal(struct {
		Action string `json:"action"`
		*alias
	}{ActionCardVote, (*alias)(cv)})
}
