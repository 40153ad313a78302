// Package consensus tracks advisory card votes so a team can see which card
// their guessers want before anyone clicks it. Votes never touch room state;
// the reveal that follows a vote goes through the usual API call.
package consensus

import (
	"sync"

	"github.com/bcspragu/Codewords"
)

func New() *Tracker {
	return &Tracker{
		votes: make(map[teamKey][]*Vote),
	}
}

type Vote struct {
	PlayerID codewords.PlayerID
	CardID   int
}

type teamKey struct {
	code string
	team codewords.Team
}

type Tracker struct {
	mu    sync.Mutex
	votes map[teamKey][]*Vote
}

// RecordVote notes that a player wants their team to reveal a card. A
// player's newer vote replaces their older one.
func (t *Tracker) RecordVote(code string, team codewords.Team, pID codewords.PlayerID, cardID int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := teamKey{code: code, team: team}
	for _, vote := range t.votes[k] {
		if vote.PlayerID == pID {
			// Update an existing player's vote.
			vote.CardID = cardID
			return
		}
	}

	// If we're here, this is a new vote.
	t.votes[k] = append(t.votes[k], &Vote{
		PlayerID: pID,
		CardID:   cardID,
	})
}

// Votes returns how many recorded votes the card currently has.
func (t *Tracker) Votes(code string, team codewords.Team, cardID int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, vote := range t.votes[teamKey{code: code, team: team}] {
		if vote.CardID == cardID {
			n++
		}
	}
	return n
}

// Consensus reports whether any card has a strict majority of the team's
// voters behind it, and which card that is.
func (t *Tracker) Consensus(code string, team codewords.Team, totalVoters int) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	votes := make(map[int]int)
	for _, vote := range t.votes[teamKey{code: code, team: team}] {
		votes[vote.CardID]++
	}

	// We require a strict majority, meaning > 50%. E.g.
	// totalVoters == 2, majority == 2
	// totalVoters == 3, majority == 2
	// totalVoters == 4, majority == 3
	// totalVoters == 5, majority == 3
	// totalVoters == 6, majority == 4
	majority := totalVoters/2 + 1
	for cardID, cnt := range votes {
		if cnt >= majority {
			return cardID, true
		}
	}

	return 0, false
}

// ClearTeam drops a team's votes. Call it when their turn ends or a card is
// revealed, so stale nominations don't linger into the next decision.
func (t *Tracker) ClearTeam(code string, team codewords.Team) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.votes, teamKey{code: code, team: team})
}

// Clear drops all votes for a room.
func (t *Tracker) Clear(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.votes, teamKey{code: code, team: codewords.RedTeam})
	delete(t.votes, teamKey{code: code, team: codewords.BlueTeam})
}
