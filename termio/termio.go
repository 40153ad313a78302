// Package termio renders Codewords boards on a terminal and prompts humans
// for hints and guesses, for the local and CLI clients.
package termio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	codewords "github.com/bcspragu/Codewords"
	"github.com/olekukonko/tablewriter"
)

// PrintBoard draws the 5x5 grid. Card colors only show up for types the
// given room actually carries, so a redacted room renders as a plain grid
// with revealed cards underlined.
func PrintBoard(w io.Writer, rm *codewords.Room) {
	table := tablewriter.NewWriter(w)

	for i := 0; i < codewords.Rows; i++ {
		var row []string
		var colors []tablewriter.Colors
		for j := 0; j < codewords.Columns; j++ {
			card := rm.Cards[i*codewords.Columns+j]
			var c tablewriter.Colors
			switch card.Type {
			case codewords.BlueCard:
				c = append(c, tablewriter.FgBlueColor)
			case codewords.RedCard:
				c = append(c, tablewriter.FgHiRedColor)
			case codewords.AssassinCard:
				c = append(c, tablewriter.BgHiRedColor)
			}
			if card.Revealed {
				c = append(c, tablewriter.UnderlineSingle)
			}
			colors = append(colors, c)
			row = append(row, card.Word)
		}
		table.Rich(row, colors)
	}

	table.Render()
}

// PrintStatus writes a one-line summary of where the game stands.
func PrintStatus(w io.Writer, rm *codewords.Room) {
	if rm.Winner != codewords.NoTeam {
		fmt.Fprintf(w, "Game over, %s wins!\n", teamStr(rm.Winner))
		return
	}

	switch rm.Turn.Status {
	case codewords.WaitingHint:
		fmt.Fprintf(w, "%s spymaster is thinking. %d red and %d blue cards left.\n",
			teamStr(rm.Turn.Team), rm.RedLeft, rm.BlueLeft)
	case codewords.Guessing:
		fmt.Fprintf(w, "%s is guessing for '%s %d', %d guesses left. %d red and %d blue cards left.\n",
			teamStr(rm.Turn.Team), rm.Turn.HintWord, rm.Turn.HintCount, rm.Turn.GuessesLeft, rm.RedLeft, rm.BlueLeft)
	}
}

func teamStr(t codewords.Team) string {
	switch t {
	case codewords.BlueTeam:
		return "Blue"
	case codewords.RedTeam:
		return "Red"
	default:
		return "Unknown"
	}
}

// Spymaster asks the user on the terminal to enter a hint. The room it's
// shown should be the unredacted one, that's the whole job.
type Spymaster struct {
	// In is a reader where the user's hint is read from.
	In io.Reader
	// Out is where the prompts should be written out to.
	Out io.Writer
}

func (s *Spymaster) GiveHint(rm *codewords.Room) (string, int, error) {
	PrintBoard(s.Out, rm)
	fmt.Fprintf(s.Out, "%s Spymaster, enter a hint [ex. 'Muffins 3']: ", teamStr(rm.Turn.Team))
	sc := bufio.NewScanner(s.In)
	if !sc.Scan() {
		return "", 0, fmt.Errorf("scanner error: %v", sc.Err())
	}
	return ParseHint(sc.Text())
}

// Guesser asks the user on the terminal to enter a guess.
type Guesser struct {
	// In is a reader where the user's guess is read from.
	In io.Reader
	// Out is where the prompts should be written out to.
	Out io.Writer
	// Team is which team this Guesser is on.
	Team codewords.Team
}

// Guess prompts for a board word and returns whatever the user typed,
// trimmed. Callers treat "pass" as ending the turn.
func (g *Guesser) Guess(rm *codewords.Room) (string, error) {
	fmt.Fprintf(g.Out, "%s guesser, enter a word for hint '%s %d' (or 'pass'): ",
		teamStr(g.Team), rm.Turn.HintWord, rm.Turn.HintCount)
	sc := bufio.NewScanner(g.In)
	if !sc.Scan() {
		return "", fmt.Errorf("scanner error: %v", sc.Err())
	}
	return strings.TrimSpace(sc.Text()), nil
}

// ParseHint splits user input like "Muffins 3" into its word and count.
func ParseHint(s string) (string, int, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("a hint is one word and a count, got %q", s)
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("bad hint count %q: %v", parts[1], err)
	}
	return parts[0], count, nil
}

// FindCard locates an unrevealed board card by word, case-insensitively.
func FindCard(rm *codewords.Room, word string) (int, bool) {
	for _, c := range rm.Cards {
		if !c.Revealed && strings.EqualFold(c.Word, word) {
			return c.ID, true
		}
	}
	return 0, false
}
