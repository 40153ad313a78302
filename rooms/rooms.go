// Package rooms implements the rules of Codewords: room and player lifecycle,
// team and role assignment, hints, card reveals, and turn advancement. It
// runs against any codewords.Store and is the only package that mutates room
// state.
//
// Every mutation is a read, compute, conditional-write cycle keyed on the
// room's version, retried a bounded number of times on conflict. Two guessers
// racing to reveal cards can never lose an update to each other.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/deckgen"
)

const (
	// MinHintCount and MaxHintCount bound the count a spymaster can attach
	// to a hint. House rule, not a rule of the game.
	MinHintCount = 1
	MaxHintCount = 9

	// updateRetries bounds how many times a mutation re-reads and re-applies
	// after a version conflict before giving up.
	updateRetries = 5
	// createRetries bounds room code collision retries.
	createRetries = 10
)

// Manager owns game semantics. It's safe for concurrent use as long as the
// underlying store is.
type Manager struct {
	store codewords.Store
	pool  []string

	mu sync.Mutex // guards r, which isn't safe for concurrent use
	r  *rand.Rand
}

// New returns a Manager running games against the given store, drawing deck
// words from pool. The pool needs at least codewords.DeckSize distinct words.
func New(store codewords.Store, pool []string, r *rand.Rand) (*Manager, error) {
	if err := deckgen.Validate(pool); err != nil {
		return nil, err
	}
	return &Manager{store: store, pool: pool, r: r}, nil
}

// CreateRoom makes a fresh room with a new deck and a random starting team,
// seeds the caller as its only player (no team yet, guesser), and returns
// both. Room codes are generated until one doesn't collide.
func (m *Manager) CreateRoom(ctx context.Context, playerID codewords.PlayerID, name string) (*codewords.Room, *codewords.Player, error) {
	name, err := validName(name)
	if err != nil {
		return nil, nil, err
	}
	if playerID == "" {
		return nil, nil, fmt.Errorf("%w: player id is required", codewords.ErrInvalidInput)
	}

	for i := 0; i < createRetries; i++ {
		starter, cards, err := m.freshDeck()
		if err != nil {
			return nil, nil, err
		}
		rm := &codewords.Room{
			Code:         m.randomCode(),
			Version:      1,
			StartingTeam: starter,
			Cards:        cards,
			Players: []*codewords.Player{{
				ID:     playerID,
				Name:   name,
				Role:   codewords.GuesserRole,
				Active: true,
			}},
			Turn:      codewords.TurnState{Team: starter, Status: codewords.WaitingHint},
			RedLeft:   codewords.CountUnrevealed(cards, codewords.RedCard),
			BlueLeft:  codewords.CountUnrevealed(cards, codewords.BlueCard),
			CreatedAt: time.Now(),
		}
		switch err := m.store.CreateRoom(ctx, rm); {
		case errors.Is(err, codewords.ErrRoomExists):
			continue
		case err != nil:
			return nil, nil, fmt.Errorf("failed to create room: %w", err)
		}
		return rm, rm.Player(playerID), nil
	}
	return nil, nil, errors.New("rooms: couldn't find an unused room code")
}

// JoinRoom adds the player to the room as a spectator. If the player id is
// already in the room this is a reconnect: the name is refreshed and the
// player reactivated in place, keeping their team and role.
func (m *Manager) JoinRoom(ctx context.Context, code string, playerID codewords.PlayerID, name string) (*codewords.Room, *codewords.Player, error) {
	name, err := validName(name)
	if err != nil {
		return nil, nil, err
	}
	if playerID == "" {
		return nil, nil, fmt.Errorf("%w: player id is required", codewords.ErrInvalidInput)
	}

	rm, err := m.mutate(ctx, code, func(rm *codewords.Room) error {
		if p := rm.Player(playerID); p != nil {
			p.Name = name
			p.Active = true
		} else {
			rm.Players = append(rm.Players, &codewords.Player{
				ID:     playerID,
				Name:   name,
				Role:   codewords.GuesserRole,
				Active: true,
			})
		}
		rm.Version++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return rm, rm.Player(playerID), nil
}

// SelectTeam puts the player on a team. Changing teams resets the player to
// guesser and vacates any spymaster slot they held, so a team can never end
// up with a spymaster from the other side. Re-selecting the current team
// changes nothing but still counts as a write.
func (m *Manager) SelectTeam(ctx context.Context, code string, playerID codewords.PlayerID, team codewords.Team) (*codewords.Room, error) {
	if team != codewords.RedTeam && team != codewords.BlueTeam {
		return nil, fmt.Errorf("%w: team must be %s or %s, got %q", codewords.ErrInvalidInput, codewords.RedTeam, codewords.BlueTeam, team)
	}

	return m.mutate(ctx, code, func(rm *codewords.Room) error {
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		if p.Team != team {
			if rm.Spymaster(p.Team) == p.ID {
				rm.SetSpymaster(p.Team, "")
			}
			p.Team = team
			p.Role = codewords.GuesserRole
		}
		rm.Version++
		return nil
	})
}

// SetRole makes the player a guesser or a spymaster. Promotion to spymaster
// demotes whoever held the team's slot in the same write, and the returned
// bool reports whether anyone was demoted. Players without a team can't hold
// a role.
func (m *Manager) SetRole(ctx context.Context, code string, playerID codewords.PlayerID, role codewords.Role) (*codewords.Room, bool, error) {
	if role != codewords.GuesserRole && role != codewords.SpymasterRole {
		return nil, false, fmt.Errorf("%w: role must be %s or %s, got %q", codewords.ErrInvalidInput, codewords.GuesserRole, codewords.SpymasterRole, role)
	}

	var replaced bool
	rm, err := m.mutate(ctx, code, func(rm *codewords.Room) error {
		replaced = false
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		if p.Team == codewords.NoTeam {
			return fmt.Errorf("%w: player %q needs a team before a role", codewords.ErrTeamRequired, playerID)
		}

		switch role {
		case codewords.GuesserRole:
			if rm.Spymaster(p.Team) == p.ID {
				rm.SetSpymaster(p.Team, "")
			}
			p.Role = codewords.GuesserRole
		case codewords.SpymasterRole:
			if cur := rm.Spymaster(p.Team); cur != "" && cur != p.ID {
				if cp := rm.Player(cur); cp != nil {
					cp.Role = codewords.GuesserRole
				}
				replaced = true
			}
			rm.SetSpymaster(p.Team, p.ID)
			p.Role = codewords.SpymasterRole
		}
		rm.Version++
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rm, replaced, nil
}

// SendHint issues the turn team's hint and opens guessing. Only the player
// holding the turn team's spymaster slot may hint, and only while the room
// is waiting on one. The team gets count+1 guesses, one more than the hint
// names.
func (m *Manager) SendHint(ctx context.Context, code string, playerID codewords.PlayerID, word string, count int) (*codewords.Room, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("%w: hint word is required", codewords.ErrInvalidInput)
	}
	if len(strings.Fields(word)) != 1 {
		return nil, fmt.Errorf("%w: hint %q must be a single word", codewords.ErrInvalidInput, word)
	}
	if count < MinHintCount || count > MaxHintCount {
		return nil, fmt.Errorf("%w: hint count %d must be between %d and %d", codewords.ErrInvalidInput, count, MinHintCount, MaxHintCount)
	}

	return m.mutate(ctx, code, func(rm *codewords.Room) error {
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		if p.Team == codewords.NoTeam {
			return fmt.Errorf("%w: player %q needs a team before hinting", codewords.ErrTeamRequired, playerID)
		}
		if rm.Winner != codewords.NoTeam {
			return fmt.Errorf("%w: game in room %s is over", codewords.ErrForbidden, rm.Code)
		}
		if rm.Spymaster(rm.Turn.Team) != p.ID {
			return fmt.Errorf("%w: only the %s spymaster can hint now", codewords.ErrForbidden, rm.Turn.Team)
		}
		if rm.Turn.Status != codewords.WaitingHint {
			return fmt.Errorf("%w: team %s is still guessing", codewords.ErrForbidden, rm.Turn.Team)
		}
		if unrevealedWordOnBoard(rm, word) {
			return fmt.Errorf("%w: hint %q is a word on the board", codewords.ErrInvalidInput, word)
		}

		rm.Turn.HintWord = word
		rm.Turn.HintCount = count
		rm.Turn.Status = codewords.Guessing
		rm.Turn.GuessesLeft = count + 1

		rm.Hints = append([]codewords.Hint{{Word: word, Count: count, Team: rm.Turn.Team}}, rm.Hints...)
		if len(rm.Hints) > codewords.HintHistorySize {
			rm.Hints = rm.Hints[:codewords.HintHistorySize]
		}
		rm.Version++
		return nil
	})
}

// RevealCard resolves a guess. Anything that makes the click stale (not that
// team's turn, not guessing, card already flipped, game over, card id from an
// old board) returns the room unchanged with no error and no version bump:
// guessers race each other and their own polling, and stale clicks are
// routine, not failures. Only an unknown room or player is an error.
//
// A live reveal flips the card, then: assassin hands the win to the other
// team on the spot; revealing the last card of a color wins for that color's
// team; the guessing team's own color spends a guess and keeps the turn while
// guesses remain; anything else ends the turn.
func (m *Manager) RevealCard(ctx context.Context, code string, playerID codewords.PlayerID, cardID int) (*codewords.Room, error) {
	return m.mutate(ctx, code, func(rm *codewords.Room) error {
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		if rm.Winner != codewords.NoTeam || rm.Turn.Status != codewords.Guessing {
			return nil
		}
		if p.Role != codewords.GuesserRole || p.Team != rm.Turn.Team {
			return nil
		}
		c := rm.Card(cardID)
		if c == nil || c.Revealed {
			return nil
		}

		c.Revealed = true
		c.RevealedBy = rm.Turn.Team

		if c.Type == codewords.AssassinCard {
			rm.Winner = rm.Turn.Team.Other()
			rm.Version++
			return nil
		}

		switch c.Type {
		case codewords.RedCard:
			rm.RedLeft--
		case codewords.BlueCard:
			rm.BlueLeft--
		}
		switch {
		case rm.RedLeft == 0:
			rm.Winner = codewords.RedTeam
		case rm.BlueLeft == 0:
			rm.Winner = codewords.BlueTeam
		}
		if rm.Winner != codewords.NoTeam {
			rm.Version++
			return nil
		}

		if c.Type == codewords.CardTypeFor(rm.Turn.Team) {
			rm.Turn.GuessesLeft--
			if rm.Turn.GuessesLeft <= 0 {
				advanceTurn(rm)
			}
		} else {
			advanceTurn(rm)
		}
		rm.Version++
		return nil
	})
}

// EndTurn passes play to the other team without spending the remaining
// guesses. Any guesser on the turn team may do it; spymasters may not, the
// guessing phase belongs to the guessers. It also works while waiting on a
// hint, so a team whose spymaster walked away can pass.
func (m *Manager) EndTurn(ctx context.Context, code string, playerID codewords.PlayerID) (*codewords.Room, error) {
	return m.mutate(ctx, code, func(rm *codewords.Room) error {
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		if rm.Winner != codewords.NoTeam {
			return fmt.Errorf("%w: game in room %s is over", codewords.ErrForbidden, rm.Code)
		}
		if p.Team == codewords.NoTeam {
			return fmt.Errorf("%w: player %q needs a team to end a turn", codewords.ErrTeamRequired, playerID)
		}
		if p.Team != rm.Turn.Team || p.Role != codewords.GuesserRole {
			return fmt.Errorf("%w: only a %s guesser can end this turn", codewords.ErrForbidden, rm.Turn.Team)
		}
		advanceTurn(rm)
		rm.Version++
		return nil
	})
}

// ResetGame deals a new board and turn state into the room, keeping the
// roster, teams, and spymaster slots. Either spymaster may do it.
func (m *Manager) ResetGame(ctx context.Context, code string, playerID codewords.PlayerID) (*codewords.Room, error) {
	return m.mutate(ctx, code, func(rm *codewords.Room) error {
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		if rm.RedSpymaster != p.ID && rm.BlueSpymaster != p.ID {
			return fmt.Errorf("%w: only a spymaster can start a new game", codewords.ErrForbidden)
		}

		starter, cards, err := m.freshDeck()
		if err != nil {
			return err
		}
		rm.StartingTeam = starter
		rm.Cards = cards
		rm.Winner = codewords.NoTeam
		rm.Turn = codewords.TurnState{Team: starter, Status: codewords.WaitingHint}
		rm.RedLeft = codewords.CountUnrevealed(cards, codewords.RedCard)
		rm.BlueLeft = codewords.CountUnrevealed(cards, codewords.BlueCard)
		rm.Hints = nil
		rm.Version++
		return nil
	})
}

// ToggleMic flips the player's cosmetic mute flag. Game rules never read it.
func (m *Manager) ToggleMic(ctx context.Context, code string, playerID codewords.PlayerID) (*codewords.Room, error) {
	return m.mutate(ctx, code, func(rm *codewords.Room) error {
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		p.MicMuted = !p.MicMuted
		rm.Version++
		return nil
	})
}

// LeaveRoom marks the player inactive. The record stays, so rejoining with
// the same id restores their seat, and the roster still shows who held what.
// Spymaster slots aren't vacated; SetRole replacement is the recovery path.
func (m *Manager) LeaveRoom(ctx context.Context, code string, playerID codewords.PlayerID) (*codewords.Room, error) {
	return m.mutate(ctx, code, func(rm *codewords.Room) error {
		p := rm.Player(playerID)
		if p == nil {
			return playerNotFound(rm.Code, playerID)
		}
		p.Active = false
		rm.Version++
		return nil
	})
}

// RoomState returns the full current snapshot of a room.
func (m *Manager) RoomState(ctx context.Context, code string) (*codewords.Room, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	rm, err := m.store.Room(ctx, code)
	if errors.Is(err, codewords.ErrRoomNotFound) {
		return nil, roomNotFound(code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room %q: %w", code, err)
	}
	return rm, nil
}

// mutate runs fn against a fresh read of the room and writes the result back
// if the version hasn't moved underneath it, retrying the whole cycle on
// conflict. fn reports a real change by bumping rm.Version; leaving the
// version alone means nothing is written and the room is returned as read.
func (m *Manager) mutate(ctx context.Context, code string, fn func(rm *codewords.Room) error) (*codewords.Room, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	for i := 0; i < updateRetries; i++ {
		rm, err := m.store.Room(ctx, code)
		if errors.Is(err, codewords.ErrRoomNotFound) {
			return nil, roomNotFound(code)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load room %q: %w", code, err)
		}

		from := rm.Version
		if err := fn(rm); err != nil {
			return nil, err
		}
		if rm.Version == from {
			return rm, nil
		}

		switch err := m.store.UpdateRoom(ctx, rm, from); {
		case errors.Is(err, codewords.ErrVersionConflict):
			continue
		case err != nil:
			return nil, fmt.Errorf("failed to update room %q: %w", code, err)
		}
		return rm, nil
	}
	return nil, fmt.Errorf("%w: room %s kept changing", codewords.ErrVersionConflict, code)
}

func (m *Manager) freshDeck() (codewords.Team, []codewords.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	starter := codewords.RedTeam
	if m.r.Intn(2) == 1 {
		starter = codewords.BlueTeam
	}
	cards, err := deckgen.New(m.pool, starter, m.r)
	if err != nil {
		return codewords.NoTeam, nil, fmt.Errorf("failed to generate deck: %w", err)
	}
	return starter, cards, nil
}

func (m *Manager) randomCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return codewords.RandomCode(m.r)
}

// advanceTurn hands play to the other team and clears the hint.
func advanceTurn(rm *codewords.Room) {
	rm.Turn = codewords.TurnState{
		Team:   rm.Turn.Team.Other(),
		Status: codewords.WaitingHint,
	}
}

func unrevealedWordOnBoard(rm *codewords.Room, word string) bool {
	for _, c := range rm.Cards {
		if !c.Revealed && strings.EqualFold(c.Word, word) {
			return true
		}
	}
	return false
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: player name is required", codewords.ErrInvalidInput)
	}
	return name, nil
}

func normalizeCode(code string) (string, error) {
	code = codewords.NormalizeCode(code)
	if !codewords.ValidCode(code) {
		return "", fmt.Errorf("%w: malformed room code %q", codewords.ErrInvalidInput, code)
	}
	return code, nil
}

func roomNotFound(code string) error {
	return fmt.Errorf("%w: %s", codewords.ErrRoomNotFound, code)
}

func playerNotFound(code string, id codewords.PlayerID) error {
	return fmt.Errorf("%w: %q in room %s", codewords.ErrPlayerNotFound, id, code)
}
