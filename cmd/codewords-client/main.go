// The codewords-client binary joins a room on a Codewords server and plays
// from the terminal, rendering the board as feed updates arrive.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	codewords "github.com/bcspragu/Codewords"
	"github.com/bcspragu/Codewords/client"
	"github.com/bcspragu/Codewords/termio"
	"github.com/bcspragu/Codewords/web"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		serverScheme = flag.String("server_scheme", "http", "The scheme of the server to connect to")
		serverAddr   = flag.String("server_addr", "localhost:8080", "The address of the server to connect to")
		room         = flag.String("room", "", "The code of the room to join, creates one when blank")
		name         = flag.String("name", "", "Display name to join with")
		team         = flag.String("team", "", "Optional team to join, RED or BLUE")
		role         = flag.String("role", "", "Optional role to take, SPYMASTER or GUESSER")
		identityFile = flag.String("identity_file", ".codewords-id", "File to persist this player's identity in, blank to get a fresh player every run")
	)
	flag.Parse()

	if *name == "" {
		log.Fatal().Msg("-name must be specified")
	}

	c, err := client.New(*serverScheme, *serverAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client")
	}

	if *identityFile != "" {
		if dat, err := os.ReadFile(*identityFile); err == nil {
			if err := c.SetIdentity(strings.TrimSpace(string(dat))); err != nil {
				log.Fatal().Err(err).Msg("failed to restore identity")
			}
		} else if !os.IsNotExist(err) {
			log.Fatal().Err(err).Str("file", *identityFile).Msg("failed to read identity file")
		}
	}

	if _, err := c.CreatePlayer(); err != nil {
		log.Fatal().Err(err).Msg("failed to create player")
	}

	if *identityFile != "" {
		// The server mints a fresh identity if the saved one was stale, so
		// persist whatever we actually ended up with.
		if err := os.WriteFile(*identityFile, []byte(c.Identity()), 0600); err != nil {
			log.Fatal().Err(err).Str("file", *identityFile).Msg("failed to save identity")
		}
	}

	var rm *codewords.Room
	if *room == "" {
		rm, _, err = c.CreateRoom(*name)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create room")
		}
		fmt.Printf("Created room %s, share the code to invite players.\n", rm.Code)
	} else {
		rm, _, err = c.JoinRoom(*room, *name)
		if err != nil {
			log.Fatal().Err(err).Str("room", *room).Msg("failed to join room")
		}
	}
	code := rm.Code

	if *team != "" {
		tm, err := parseTeam(*team)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -team")
		}
		if _, err := c.SelectTeam(code, tm); err != nil {
			log.Fatal().Err(err).Msg("failed to select team")
		}
	}
	if *role != "" {
		rl, err := parseRole(*role)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -role")
		}
		if _, replaced, err := c.SetRole(code, rl); err != nil {
			log.Fatal().Err(err).Msg("failed to set role")
		} else if replaced {
			fmt.Println("You bumped the previous spymaster back to guessing.")
		}
	}

	board := &boardView{}
	go func() {
		err := c.ListenForUpdates(code, client.WSHooks{
			OnRoomUpdate: board.apply,
			OnCardVote:   printVote,
		})
		log.Fatal().Err(err).Msg("lost the room feed")
	}()

	fmt.Println(`Commands: hint <word> <count>, guess <word>, vote <word>, pass, new, mic, board, leave, quit`)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if done := run(c, board, code, sc.Text()); done {
			return
		}
	}
}

// run executes one command line, reporting whether the client should exit.
func run(c *client.Client, board *boardView, code, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	var err error
	switch strings.ToLower(fields[0]) {
	case "hint":
		if len(fields) != 3 {
			fmt.Println("usage: hint <word> <count>")
			return false
		}
		var count int
		if count, err = strconv.Atoi(fields[2]); err != nil {
			fmt.Printf("bad hint count %q\n", fields[2])
			return false
		}
		_, err = c.GiveHint(code, fields[1], count)
	case "guess":
		if len(fields) != 2 {
			fmt.Println("usage: guess <word>")
			return false
		}
		var cardID int
		var ok bool
		if cardID, ok = board.findCard(fields[1]); !ok {
			fmt.Printf("%q isn't an unrevealed word on the board\n", fields[1])
			return false
		}
		_, err = c.RevealCard(code, cardID)
	case "vote":
		if len(fields) != 2 {
			fmt.Println("usage: vote <word>")
			return false
		}
		cardID, ok := board.findCard(fields[1])
		if !ok {
			fmt.Printf("%q isn't an unrevealed word on the board\n", fields[1])
			return false
		}
		var votes int
		var majority bool
		if votes, majority, err = c.VoteCard(code, cardID); err == nil {
			fmt.Printf("%d vote(s) for %q, majority: %t\n", votes, fields[1], majority)
		}
	case "pass", "end":
		_, err = c.EndTurn(code)
	case "new":
		_, err = c.NewGame(code)
	case "mic":
		_, err = c.ToggleMic(code)
	case "board":
		board.print()
	case "leave":
		if _, err = c.LeaveRoom(code); err == nil {
			return true
		}
	case "quit", "exit":
		return true
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}

	if err != nil {
		fmt.Println(err)
	}
	return false
}

func printVote(cv *web.CardVote) {
	suffix := ""
	if cv.Majority {
		suffix = ", that's a majority"
	}
	fmt.Printf("%s (%s) wants card %d, %d vote(s)%s\n", cv.Name, cv.Team, cv.CardID, cv.Votes, suffix)
}

// boardView holds the latest room from the feed, so commands can resolve
// words against the board the player is looking at.
type boardView struct {
	mu sync.Mutex
	rm *codewords.Room
}

func (b *boardView) apply(ru *web.RoomUpdate) {
	b.mu.Lock()
	b.rm = ru.Room
	b.mu.Unlock()
	b.print()
}

func (b *boardView) print() {
	b.mu.Lock()
	rm := b.rm
	b.mu.Unlock()
	if rm == nil {
		fmt.Println("no board yet")
		return
	}
	termio.PrintBoard(os.Stdout, rm)
	termio.PrintStatus(os.Stdout, rm)
}

func (b *boardView) findCard(word string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rm == nil {
		return 0, false
	}
	return termio.FindCard(b.rm, word)
}

func parseTeam(s string) (codewords.Team, error) {
	switch t := codewords.Team(strings.ToUpper(s)); t {
	case codewords.RedTeam, codewords.BlueTeam:
		return t, nil
	}
	return codewords.NoTeam, fmt.Errorf("invalid team %q, 'RED' and 'BLUE' are the only valid teams", s)
}

func parseRole(s string) (codewords.Role, error) {
	switch r := codewords.Role(strings.ToUpper(s)); r {
	case codewords.SpymasterRole, codewords.GuesserRole:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q, 'SPYMASTER' and 'GUESSER' are the only valid roles", s)
}
