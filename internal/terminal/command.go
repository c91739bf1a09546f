// Package terminal turns text lines into game commands and prints sessions
// as plain text.
package terminal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Verb names a player command.
type Verb string

const (
	VerbFlip  Verb = "flip"
	VerbNew   Verb = "new"
	VerbSave  Verb = "save"
	VerbLoad  Verb = "load"
	VerbReset Verb = "reset"
	VerbShow  Verb = "show"
	VerbHelp  Verb = "help"
	VerbQuit  Verb = "quit"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("wrong arguments")
)

// Command is a parsed input line. Args holds the integer arguments in the
// order they were typed.
type Command struct {
	Verb Verb
	Args []int
}

const Help = `commands:
  flip <index>              reveal the card at a row-major index
  flip <row> <col>          reveal the card at a zero-based position
  new [rows columns [symbols]]
                            start a new game, config dimensions by default
  save                      save the game
  load                      load the saved game
  reset                     restart with the current dimensions
  show                      print the board
  help                      print this help
  quit                      save and leave`

var aliases = map[string]Verb{
	"f":       VerbFlip,
	"n":       VerbNew,
	"s":       VerbSave,
	"l":       VerbLoad,
	"r":       VerbReset,
	"?":       VerbHelp,
	"q":       VerbQuit,
	"exit":    VerbQuit,
	"restart": VerbReset,
}

// argCounts lists the accepted argument counts per verb.
var argCounts = map[Verb][]int{
	VerbFlip:  {1, 2},
	VerbNew:   {0, 2, 3},
	VerbSave:  {0},
	VerbLoad:  {0},
	VerbReset: {0},
	VerbShow:  {0},
	VerbHelp:  {0},
	VerbQuit:  {0},
}

// Parse reads one command line. Verbs are case-insensitive and arguments are
// non-negative integers.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	name := strings.ToLower(fields[0])
	verb, ok := aliases[name]
	if !ok {
		verb = Verb(name)
	}

	counts, ok := argCounts[verb]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}

	args := make([]int, 0, len(fields)-1)
	for _, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Command{}, fmt.Errorf("%w: %s expects non-negative numbers, got %q", ErrUsage, verb, f)
		}
		args = append(args, n)
	}

	if !accepts(counts, len(args)) {
		return Command{}, fmt.Errorf("%w: %s takes %s arguments, got %d", ErrUsage, verb, joinCounts(counts), len(args))
	}

	return Command{Verb: verb, Args: args}, nil
}

func accepts(counts []int, n int) bool {
	for _, c := range counts {
		if c == n {
			return true
		}
	}
	return false
}

func joinCounts(counts []int) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, " or ")
}
