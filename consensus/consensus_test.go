package consensus

import (
	"testing"

	"github.com/bcspragu/Codewords"
)

const code = "GAME22"

func TestConsensus(t *testing.T) {
	tr := New()

	tr.RecordVote(code, codewords.RedTeam, "p1", 3)
	tr.RecordVote(code, codewords.RedTeam, "p2", 3)
	tr.RecordVote(code, codewords.RedTeam, "p3", 7)

	cardID, ok := tr.Consensus(code, codewords.RedTeam, 3)
	if !ok {
		t.Fatal("expected consensus with 2/3 votes on one card")
	}
	if cardID != 3 {
		t.Errorf("consensus card = %d, want 3", cardID)
	}
}

func TestConsensus_StrictMajority(t *testing.T) {
	tr := New()

	// 2/4 voters is exactly half, not a majority.
	tr.RecordVote(code, codewords.RedTeam, "p1", 3)
	tr.RecordVote(code, codewords.RedTeam, "p2", 3)

	if cardID, ok := tr.Consensus(code, codewords.RedTeam, 4); ok {
		t.Errorf("Consensus = (%d, true), want none with 2/4 votes", cardID)
	}

	tr.RecordVote(code, codewords.RedTeam, "p3", 3)
	if _, ok := tr.Consensus(code, codewords.RedTeam, 4); !ok {
		t.Error("expected consensus with 3/4 votes")
	}
}

func TestRecordVote_Replaces(t *testing.T) {
	tr := New()

	tr.RecordVote(code, codewords.RedTeam, "p1", 3)
	tr.RecordVote(code, codewords.RedTeam, "p1", 7)

	if got := tr.Votes(code, codewords.RedTeam, 3); got != 0 {
		t.Errorf("card 3 votes = %d, want 0 after revote", got)
	}
	if got := tr.Votes(code, codewords.RedTeam, 7); got != 1 {
		t.Errorf("card 7 votes = %d, want 1", got)
	}

	// A single voter is a majority of one.
	if cardID, ok := tr.Consensus(code, codewords.RedTeam, 1); !ok || cardID != 7 {
		t.Errorf("Consensus = (%d, %t), want (7, true)", cardID, ok)
	}
}

func TestTeamsAreIndependent(t *testing.T) {
	tr := New()

	tr.RecordVote(code, codewords.RedTeam, "p1", 3)
	tr.RecordVote(code, codewords.BlueTeam, "p2", 5)

	if got := tr.Votes(code, codewords.BlueTeam, 3); got != 0 {
		t.Errorf("blue votes for red's card = %d, want 0", got)
	}

	tr.ClearTeam(code, codewords.RedTeam)
	if got := tr.Votes(code, codewords.RedTeam, 3); got != 0 {
		t.Errorf("red votes after ClearTeam = %d, want 0", got)
	}
	if got := tr.Votes(code, codewords.BlueTeam, 5); got != 1 {
		t.Errorf("blue votes after red ClearTeam = %d, want 1", got)
	}
}

func TestClear(t *testing.T) {
	tr := New()

	tr.RecordVote(code, codewords.RedTeam, "p1", 3)
	tr.RecordVote(code, codewords.BlueTeam, "p2", 5)
	tr.Clear(code)

	if got := tr.Votes(code, codewords.RedTeam, 3); got != 0 {
		t.Errorf("red votes after Clear = %d, want 0", got)
	}
	if got := tr.Votes(code, codewords.BlueTeam, 5); got != 0 {
		t.Errorf("blue votes after Clear = %d, want 0", got)
	}
}
