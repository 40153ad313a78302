// The deckgen-cli binary deals a board to stdout, one "word:type" pair per
// card, for poking at deck generation without a server.
package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"strings"

	codewords "github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/cryptorand"
	"github.com/bcspragu/Codewords/deckgen"
	"github.com/bcspragu/Codewords/dict"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		starter  = flag.String("starter", "red", "Which color team gets the extra card, red or blue")
		seed     = flag.Int64("seed", 0, "Deck shuffle seed, 0 draws from the OS")
		wordFile = flag.String("word_file", "", "Optional word pool file, one word per line")
	)
	flag.Parse()

	var team codewords.Team
	switch strings.ToLower(*starter) {
	case "red":
		team = codewords.RedTeam
	case "blue":
		team = codewords.BlueTeam
	default:
		log.Fatal().Str("starter", *starter).Msg("invalid starter, 'red' and 'blue' are the only valid team colors")
	}

	words, err := dict.Pool(*wordFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word pool")
	}

	rng := cryptorand.New()
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

	cards, err := deckgen.New(words, team, rng)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to deal a deck")
	}

	var buf bytes.Buffer
	for i, card := range cards {
		fmt.Fprintf(&buf, "%s:%s", card.Word, strings.ToLower(string(card.Type)))
		if i != len(cards)-1 {
			buf.WriteString(",")
		}
	}
	fmt.Println(buf.String())
}
