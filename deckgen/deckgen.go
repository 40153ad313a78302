// Package deckgen generates random Codewords decks: 25 distinct words from a
// pool, with card types split 9/8/7/1 between the starting team, the other
// team, neutrals, and the assassin.
package deckgen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/bcspragu/Codewords"
)

const (
	starterCards  = 9
	followerCards = 8
	neutralCards  = 7
	assassinCards = 1
)

// Validate reports whether pool holds enough distinct words to build a deck.
func Validate(pool []string) error {
	if n := len(distinctWords(pool)); n < codewords.DeckSize {
		return fmt.Errorf("deckgen: pool has %d distinct words, need at least %d", n, codewords.DeckSize)
	}
	return nil
}

// New returns a fresh deck of codewords.DeckSize cards. Words are drawn
// without replacement from pool, card IDs are board positions 0..24, and the
// starting team gets the extra ninth card. The pool needs at least
// codewords.DeckSize distinct words after trimming and lowercasing.
func New(pool []string, starter codewords.Team, r *rand.Rand) ([]codewords.Card, error) {
	if starter != codewords.RedTeam && starter != codewords.BlueTeam {
		return nil, fmt.Errorf("deckgen: starting team must be RED or BLUE, got %q", starter)
	}
	if err := Validate(pool); err != nil {
		return nil, err
	}
	distinct := distinctWords(pool)

	used := make(map[string]struct{})
	var words []string
	for len(words) < codewords.DeckSize {
		w := distinct[r.Intn(len(distinct))]
		if _, ok := used[w]; ok {
			continue
		}
		used[w] = struct{}{}
		words = append(words, w)
	}

	types := typesToPlace(starter)

	cards := make([]codewords.Card, 0, codewords.DeckSize)
	for i, j := range r.Perm(codewords.DeckSize) {
		cards = append(cards, codewords.Card{
			ID:   i,
			Word: words[i],
			Type: types[j],
		})
	}
	return cards, nil
}

// distinctWords canonicalizes the pool to trimmed lowercase and drops
// duplicates and empties, keeping first-seen order.
func distinctWords(pool []string) []string {
	seen := make(map[string]struct{}, len(pool))
	var out []string
	for _, w := range pool {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func typesToPlace(starter codewords.Team) []codewords.CardType {
	var types []codewords.CardType
	add := func(ct codewords.CardType, n int) {
		for i := 0; i < n; i++ {
			types = append(types, ct)
		}
	}
	add(codewords.CardTypeFor(starter), starterCards)
	add(codewords.CardTypeFor(starter.Other()), followerCards)
	add(codewords.NeutralCard, neutralCards)
	add(codewords.AssassinCard, assassinCards)
	return types
}
