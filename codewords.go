// Package codewords holds the shared data model for a game of Codewords: the
// room record, its players and cards, and the storage contract that every
// backend adapter implements. The turn logic itself lives in the rooms
// package.
package codewords

import (
	"time"
)

const (
	// Rows is the number of rows of cards on a Codewords board.
	Rows = 5
	// Columns is the number of columns of cards on a Codewords board.
	Columns = 5
	// DeckSize is the total number of cards on a Codewords board.
	DeckSize = Rows * Columns

	// HintHistorySize is how many past hints a room keeps, most recent
	// first. A policy knob, not a rule of the game.
	HintHistorySize = 3
)

// PlayerID is a client-generated identifier, stable across reconnects within
// the same room.
type PlayerID string

// Team is a side in the game.
type Team string

const (
	// NoTeam marks a spectator, or "no winner yet" in Room.Winner.
	NoTeam   = Team("")
	RedTeam  = Team("RED")
	BlueTeam = Team("BLUE")
)

// Other returns the opposing team, or NoTeam for NoTeam.
func (t Team) Other() Team {
	switch t {
	case RedTeam:
		return BlueTeam
	case BlueTeam:
		return RedTeam
	}
	return NoTeam
}

// Role is what a player does for their team.
type Role string

const (
	// NoRole is an error case.
	NoRole = Role("")
	// GuesserRole players reveal cards. Every player starts as one.
	GuesserRole = Role("GUESSER")
	// SpymasterRole players see card identities and give hints. At most
	// one per team.
	SpymasterRole = Role("SPYMASTER")
)

// CardType is the hidden affiliation of a card.
type CardType string

const (
	// UnknownCard is what redacted snapshots show for unrevealed cards.
	UnknownCard  = CardType("")
	RedCard      = CardType("RED")
	BlueCard     = CardType("BLUE")
	NeutralCard  = CardType("NEUTRAL")
	AssassinCard = CardType("ASSASSIN")
)

// Card is a single word on the board. Everything except Revealed/RevealedBy
// is fixed at deck generation; those two are set exactly once, by the first
// reveal.
type Card struct {
	ID         int      `json:"id" firestore:"id"`
	Word       string   `json:"word" firestore:"word"`
	Type       CardType `json:"type" firestore:"type"`
	Revealed   bool     `json:"revealed" firestore:"revealed"`
	RevealedBy Team     `json:"revealed_by" firestore:"revealed_by"`
}

// Player is one member of a room. A player with no team is a spectator and
// can't guess, hint, or hold a spymaster slot. Leaving a room flips Active
// off instead of removing the record, so past associations stay visible.
type Player struct {
	ID       PlayerID `json:"id" firestore:"id"`
	Name     string   `json:"name" firestore:"name"`
	Team     Team     `json:"team" firestore:"team"`
	Role     Role     `json:"role" firestore:"role"`
	MicMuted bool     `json:"mic_muted" firestore:"mic_muted"`
	Active   bool     `json:"active" firestore:"active"`
}

// TurnStatus says whose kind of action the game is waiting on.
type TurnStatus string

const (
	// WaitingHint means the turn team's spymaster needs to give a hint.
	WaitingHint = TurnStatus("WAITING_HINT")
	// Guessing means the turn team's guessers are revealing cards.
	Guessing = TurnStatus("GUESSING")
)

// TurnState is the live turn of a room. In WAITING_HINT the hint fields are
// empty and GuessesLeft is zero; in GUESSING they're set.
type TurnState struct {
	Team        Team       `json:"team" firestore:"team"`
	Status      TurnStatus `json:"status" firestore:"status"`
	HintWord    string     `json:"hint_word" firestore:"hint_word"`
	HintCount   int        `json:"hint_count" firestore:"hint_count"`
	GuessesLeft int        `json:"guesses_left" firestore:"guesses_left"`
}

// Hint is a past hint, kept in Room.Hints most recent first.
type Hint struct {
	Word  string `json:"word" firestore:"word"`
	Count int    `json:"count" firestore:"count"`
	Team  Team   `json:"team" firestore:"team"`
}

// Room is the full state of one game session. It's a plain document: every
// backend stores it whole, keyed by Code, and Version gates writes so
// concurrent mutations can't trample each other.
type Room struct {
	Code    string `json:"code" firestore:"code"`
	Version int64  `json:"version" firestore:"version"`

	StartingTeam Team      `json:"starting_team" firestore:"starting_team"`
	Cards        []Card    `json:"cards" firestore:"cards"`
	Players      []*Player `json:"players" firestore:"players"`

	RedSpymaster  PlayerID `json:"red_spymaster" firestore:"red_spymaster"`
	BlueSpymaster PlayerID `json:"blue_spymaster" firestore:"blue_spymaster"`

	Turn   TurnState `json:"turn" firestore:"turn"`
	Winner Team      `json:"winner" firestore:"winner"`

	// RedLeft/BlueLeft mirror the unrevealed card counts of each color.
	// They're maintained incrementally and must never drift from Cards.
	RedLeft  int `json:"red_left" firestore:"red_left"`
	BlueLeft int `json:"blue_left" firestore:"blue_left"`

	Hints []Hint `json:"hints" firestore:"hints"`

	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

// Player returns the player with the given ID, active or not, or nil.
func (r *Room) Player(id PlayerID) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Card returns the card with the given ID, or nil.
func (r *Room) Card(id int) *Card {
	for i := range r.Cards {
		if r.Cards[i].ID == id {
			return &r.Cards[i]
		}
	}
	return nil
}

// Spymaster returns the player ID holding the team's spymaster slot, or ""
// if the slot is empty.
func (r *Room) Spymaster(t Team) PlayerID {
	switch t {
	case RedTeam:
		return r.RedSpymaster
	case BlueTeam:
		return r.BlueSpymaster
	}
	return PlayerID("")
}

// SetSpymaster points the team's spymaster slot at the given player ID.
func (r *Room) SetSpymaster(t Team, id PlayerID) {
	switch t {
	case RedTeam:
		r.RedSpymaster = id
	case BlueTeam:
		r.BlueSpymaster = id
	}
}

// Clone returns a deep copy of the room. Adapters hand out clones so callers
// can't reach into stored state.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	rc := *r
	rc.Cards = make([]Card, len(r.Cards))
	copy(rc.Cards, r.Cards)
	rc.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		pc := *p
		rc.Players[i] = &pc
	}
	rc.Hints = make([]Hint, len(r.Hints))
	copy(rc.Hints, r.Hints)
	return &rc
}

// Redacted returns a copy of the room with unrevealed card types blanked out,
// unless the viewer holds one of the spymaster slots. Revealed cards always
// show their type. Transports should serve this to non-spymasters.
func (r *Room) Redacted(viewer PlayerID) *Room {
	rc := r.Clone()
	if viewer != "" && (viewer == r.RedSpymaster || viewer == r.BlueSpymaster) {
		return rc
	}
	for i := range rc.Cards {
		if !rc.Cards[i].Revealed {
			rc.Cards[i].Type = UnknownCard
		}
	}
	return rc
}

// CountUnrevealed counts the unrevealed cards of the given type.
func CountUnrevealed(cards []Card, ct CardType) int {
	n := 0
	for _, c := range cards {
		if c.Type == ct && !c.Revealed {
			n++
		}
	}
	return n
}

// CardTypeFor maps a team to its card color.
func CardTypeFor(t Team) CardType {
	switch t {
	case RedTeam:
		return RedCard
	case BlueTeam:
		return BlueCard
	}
	return UnknownCard
}
