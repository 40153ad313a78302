// The codewords-local binary plays a hotseat game on one terminal: both
// spymasters and both guessing sides share the keyboard. It runs the same
// rules as the server, just against in-memory storage.
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"

	codewords "github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/cryptorand"
	"github.com/bcspragu/Codewords/dict"
	"github.com/bcspragu/Codewords/memstore"
	"github.com/bcspragu/Codewords/rooms"
	"github.com/bcspragu/Codewords/termio"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	redSpy    = codewords.PlayerID("red-spymaster")
	redGuess  = codewords.PlayerID("red-guesser")
	blueSpy   = codewords.PlayerID("blue-spymaster")
	blueGuess = codewords.PlayerID("blue-guesser")
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		wordFile = flag.String("word_file", "", "Optional word pool file, one word per line")
		seed     = flag.Int64("seed", 0, "Deck shuffle seed, 0 draws from the OS")
	)
	flag.Parse()

	words, err := dict.Pool(*wordFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word pool")
	}

	rng := cryptorand.New()
	if *seed != 0 {
		rng = rand.New(rand.NewSource(*seed))
	}

	mgr, err := rooms.New(memstore.New(), words, rng)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create room manager")
	}

	ctx := context.Background()
	code, err := seatPlayers(ctx, mgr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up the table")
	}

	in := bufio.NewReader(os.Stdin)
	for {
		rm, err := mgr.RoomState(ctx, code)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load the game")
		}

		if rm.Winner != codewords.NoTeam {
			termio.PrintBoard(os.Stdout, rm)
			termio.PrintStatus(os.Stdout, rm)
			if !promptYes(in, "Play again? [y/n]: ") {
				return
			}
			if _, err := mgr.ResetGame(ctx, code, redSpy); err != nil {
				log.Fatal().Err(err).Msg("failed to reset the game")
			}
			continue
		}

		termio.PrintStatus(os.Stdout, rm)
		switch rm.Turn.Status {
		case codewords.WaitingHint:
			playHint(ctx, mgr, rm)
		case codewords.Guessing:
			playGuess(ctx, mgr, rm)
		}
	}
}

func seatPlayers(ctx context.Context, mgr *rooms.Manager) (string, error) {
	rm, _, err := mgr.CreateRoom(ctx, redSpy, "Red Spymaster")
	if err != nil {
		return "", err
	}
	code := rm.Code

	seats := []struct {
		id   codewords.PlayerID
		name string
		team codewords.Team
		role codewords.Role
	}{
		{redSpy, "Red Spymaster", codewords.RedTeam, codewords.SpymasterRole},
		{redGuess, "Red Guesser", codewords.RedTeam, codewords.GuesserRole},
		{blueSpy, "Blue Spymaster", codewords.BlueTeam, codewords.SpymasterRole},
		{blueGuess, "Blue Guesser", codewords.BlueTeam, codewords.GuesserRole},
	}
	for _, s := range seats {
		if s.id != redSpy {
			if _, _, err := mgr.JoinRoom(ctx, code, s.id, s.name); err != nil {
				return "", err
			}
		}
		if _, err := mgr.SelectTeam(ctx, code, s.id, s.team); err != nil {
			return "", err
		}
		if _, _, err := mgr.SetRole(ctx, code, s.id, s.role); err != nil {
			return "", err
		}
	}
	return code, nil
}

func playHint(ctx context.Context, mgr *rooms.Manager, rm *codewords.Room) {
	spy := rm.Spymaster(rm.Turn.Team)
	s := &termio.Spymaster{In: os.Stdin, Out: os.Stdout}
	word, count, err := s.GiveHint(rm)
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := mgr.SendHint(ctx, rm.Code, spy, word, count); err != nil {
		fmt.Println(err)
	}
}

func playGuess(ctx context.Context, mgr *rooms.Manager, rm *codewords.Room) {
	guesser := redGuess
	if rm.Turn.Team == codewords.BlueTeam {
		guesser = blueGuess
	}

	// Guessers see the board the way the server would show it to them.
	termio.PrintBoard(os.Stdout, rm.Redacted(guesser))

	g := &termio.Guesser{In: os.Stdin, Out: os.Stdout, Team: rm.Turn.Team}
	word, err := g.Guess(rm)
	if err != nil {
		fmt.Println(err)
		return
	}

	if strings.EqualFold(word, "pass") {
		if _, err := mgr.EndTurn(ctx, rm.Code, guesser); err != nil {
			fmt.Println(err)
		}
		return
	}

	cardID, ok := termio.FindCard(rm, word)
	if !ok {
		fmt.Printf("%q isn't an unrevealed word on the board\n", word)
		return
	}
	if _, err := mgr.RevealCard(ctx, rm.Code, guesser, cardID); err != nil {
		fmt.Println(err)
	}
}

func promptYes(in *bufio.Reader, prompt string) bool {
	fmt.Print(prompt)
	line, err := in.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y")
}
