package codewords

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClone_Deep(t *testing.T) {
	rm := testRoom()
	cl := rm.Clone()

	if diff := cmp.Diff(rm, cl); diff != "" {
		t.Fatalf("unexpected diff between room and clone (-want +got)\n%s", diff)
	}

	cl.Cards[0].Revealed = true
	cl.Players[0].Team = BlueTeam
	cl.Hints[0].Word = "changed"

	if rm.Cards[0].Revealed {
		t.Error("mutating clone cards changed the original")
	}
	if rm.Players[0].Team == BlueTeam {
		t.Error("mutating clone players changed the original")
	}
	if rm.Hints[0].Word == "changed" {
		t.Error("mutating clone hints changed the original")
	}
}

func TestRedacted(t *testing.T) {
	rm := testRoom()

	tests := []struct {
		desc     string
		viewer   PlayerID
		wantType CardType
	}{
		{desc: "guesser sees unknown", viewer: "p2", wantType: UnknownCard},
		{desc: "spectator sees unknown", viewer: "nobody", wantType: UnknownCard},
		{desc: "anonymous sees unknown", viewer: "", wantType: UnknownCard},
		{desc: "red spymaster sees all", viewer: "p1", wantType: RedCard},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got := rm.Redacted(test.viewer)
			if got.Cards[0].Type != test.wantType {
				t.Errorf("unrevealed card type = %q, want %q", got.Cards[0].Type, test.wantType)
			}
			// Revealed cards always show their color.
			if got.Cards[1].Type != BlueCard {
				t.Errorf("revealed card type = %q, want %q", got.Cards[1].Type, BlueCard)
			}
		})
	}
}

func TestRedacted_DoesNotMutate(t *testing.T) {
	rm := testRoom()
	rm.Redacted("p2")
	if rm.Cards[0].Type != RedCard {
		t.Errorf("redaction mutated the source room, card type = %q", rm.Cards[0].Type)
	}
}

func TestTeamOther(t *testing.T) {
	tests := []struct {
		in   Team
		want Team
	}{
		{RedTeam, BlueTeam},
		{BlueTeam, RedTeam},
		{NoTeam, NoTeam},
	}
	for _, test := range tests {
		if got := test.in.Other(); got != test.want {
			t.Errorf("Other(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestRandomCode(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		code := RandomCode(r)
		if len(code) != CodeLength {
			t.Fatalf("RandomCode length = %d, want %d", len(code), CodeLength)
		}
		if !ValidCode(code) {
			t.Fatalf("RandomCode produced invalid code %q", code)
		}
		for _, bad := range "01ILO" {
			if strings.ContainsRune(code, bad) {
				t.Fatalf("RandomCode produced ambiguous character %q in %q", bad, code)
			}
		}
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc234", "ABC234"},
		{"  ABC234 ", "ABC234"},
		{"aBc234", "ABC234"},
	}
	for _, test := range tests {
		if got := NormalizeCode(test.in); got != test.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestValidCode(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ABC234", true},
		{"ABC23", false},
		{"ABC2345", false},
		{"ABC23O", false}, // ambiguous O
		{"abc234", false}, // not normalized
		{"", false},
	}
	for _, test := range tests {
		if got := ValidCode(test.in); got != test.want {
			t.Errorf("ValidCode(%q) = %t, want %t", test.in, got, test.want)
		}
	}
}

func TestCountUnrevealed(t *testing.T) {
	cards := []Card{
		{ID: 0, Type: RedCard},
		{ID: 1, Type: RedCard, Revealed: true},
		{ID: 2, Type: BlueCard},
		{ID: 3, Type: NeutralCard},
		{ID: 4, Type: AssassinCard},
	}
	if got := CountUnrevealed(cards, RedCard); got != 1 {
		t.Errorf("CountUnrevealed(red) = %d, want 1", got)
	}
	if got := CountUnrevealed(cards, BlueCard); got != 1 {
		t.Errorf("CountUnrevealed(blue) = %d, want 1", got)
	}
}

func testRoom() *Room {
	return &Room{
		Code:         "ABC234",
		Version:      3,
		StartingTeam: RedTeam,
		Cards: []Card{
			{ID: 0, Word: "apple", Type: RedCard},
			{ID: 1, Word: "bear", Type: BlueCard, Revealed: true, RevealedBy: RedTeam},
		},
		Players: []*Player{
			{ID: "p1", Name: "Alice", Team: RedTeam, Role: SpymasterRole, Active: true},
			{ID: "p2", Name: "Bob", Team: RedTeam, Role: GuesserRole, Active: true},
		},
		RedSpymaster: "p1",
		Turn:         TurnState{Team: RedTeam, Status: WaitingHint},
		RedLeft:      8,
		BlueLeft:     7,
		Hints:        []Hint{{Word: "fruit", Count: 2, Team: RedTeam}},
	}
}
