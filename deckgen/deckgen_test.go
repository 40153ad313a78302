package deckgen

import (
	"math/rand"
	"testing"

	"github.com/bcspragu/Codewords"
	"github.com/google/go-cmp/cmp"
)

func TestNew_Counts(t *testing.T) {
	tests := []struct {
		starter  codewords.Team
		wantRed  int
		wantBlue int
	}{
		{starter: codewords.RedTeam, wantRed: 9, wantBlue: 8},
		{starter: codewords.BlueTeam, wantRed: 8, wantBlue: 9},
	}

	for _, test := range tests {
		t.Run(string(test.starter), func(t *testing.T) {
			r := rand.New(rand.NewSource(1))
			cards, err := New(codewords.Words, test.starter, r)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if len(cards) != codewords.DeckSize {
				t.Fatalf("deck size = %d, want %d", len(cards), codewords.DeckSize)
			}

			counts := make(map[codewords.CardType]int)
			for _, c := range cards {
				counts[c.Type]++
			}
			want := map[codewords.CardType]int{
				codewords.RedCard:      test.wantRed,
				codewords.BlueCard:     test.wantBlue,
				codewords.NeutralCard:  7,
				codewords.AssassinCard: 1,
			}
			if diff := cmp.Diff(want, counts); diff != "" {
				t.Errorf("type counts mismatch (-want +got)\n%s", diff)
			}
		})
	}
}

func TestNew_DistinctWordsAndIDs(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	cards, err := New(codewords.Words, codewords.RedTeam, r)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pool := make(map[string]struct{}, len(codewords.Words))
	for _, w := range codewords.Words {
		pool[w] = struct{}{}
	}

	seen := make(map[string]struct{})
	for i, c := range cards {
		if c.ID != i {
			t.Errorf("cards[%d].ID = %d, want %d", i, c.ID, i)
		}
		if c.Revealed || c.RevealedBy != codewords.NoTeam {
			t.Errorf("cards[%d] starts revealed", i)
		}
		if _, ok := pool[c.Word]; !ok {
			t.Errorf("cards[%d].Word = %q not in pool", i, c.Word)
		}
		if _, ok := seen[c.Word]; ok {
			t.Errorf("duplicate word %q in deck", c.Word)
		}
		seen[c.Word] = struct{}{}
	}
}

func TestNew_Deterministic(t *testing.T) {
	a, err := New(codewords.Words, codewords.BlueTeam, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(codewords.Words, codewords.BlueTeam, rand.New(rand.NewSource(99)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different decks (-a +b)\n%s", diff)
	}
}

func TestNew_PoolTooSmall(t *testing.T) {
	tests := []struct {
		desc string
		pool []string
	}{
		{desc: "short pool", pool: codewords.Words[:24]},
		{desc: "duplicates don't count", pool: repeat("apple", 30)},
		{desc: "case-insensitive duplicates", pool: append(repeat("Apple", 15), repeat("apple", 15)...)},
		{desc: "blank entries don't count", pool: append([]string{" ", ""}, codewords.Words[:23]...)},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			r := rand.New(rand.NewSource(1))
			if _, err := New(test.pool, codewords.RedTeam, r); err == nil {
				t.Error("New succeeded, want error for undersized pool")
			}
		})
	}
}

func TestNew_BadStarter(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	if _, err := New(codewords.Words, codewords.NoTeam, r); err == nil {
		t.Error("New succeeded, want error for missing starting team")
	}
}

// TestNew_AssassinPlacementFair checks that the assassin lands on every board
// position with roughly uniform frequency, via a chi-square statistic. The
// seed is fixed, so the test is deterministic.
func TestNew_AssassinPlacementFair(t *testing.T) {
	const decks = 5000
	r := rand.New(rand.NewSource(42))

	counts := make([]int, codewords.DeckSize)
	for i := 0; i < decks; i++ {
		cards, err := New(codewords.Words, codewords.RedTeam, r)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		for _, c := range cards {
			if c.Type == codewords.AssassinCard {
				counts[c.ID]++
			}
		}
	}

	expected := float64(decks) / float64(codewords.DeckSize)
	chi2 := 0.0
	for _, n := range counts {
		d := float64(n) - expected
		chi2 += d * d / expected
	}

	// 24 degrees of freedom; the p=0.001 critical value is about 51.2.
	// Anything near that with a fixed seed means the shuffle is biased.
	if chi2 > 75 {
		t.Errorf("assassin placement chi-square = %.1f, counts = %v", chi2, counts)
	}
}

func repeat(w string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = w
	}
	return out
}
