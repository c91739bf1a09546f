package business

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/memory-match/internal/config"
	"github.com/openkcm/memory-match/internal/schedule"
	"github.com/openkcm/memory-match/internal/serviceerr"
	"github.com/openkcm/memory-match/internal/session"
	"github.com/openkcm/memory-match/internal/terminal"
)

const prompt = "> "

// PlayMain runs an interactive game on stdin and stdout. The saved game is
// resumed on start and the running game is saved on quit, end of input or
// cancellation.
func PlayMain(ctx context.Context, cfg *config.Config) error {
	return play(ctx, cfg, os.Stdin, os.Stdout)
}

func play(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	repo, closeFn, err := initRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the save repository: %w", err)
	}
	defer closeFn()

	loop := schedule.NewLoop()
	defer loop.Close()

	manager, err := initManager(ctx, cfg, repo, loop)
	if err != nil {
		return err
	}

	g := newGame(manager, &cfg.Game, out)

	if err := manager.StartOrResume(ctx); err != nil {
		return fmt.Errorf("starting the game: %w", err)
	}
	g.show()
	g.prompt()

	lines := readLines(ctx, in)
	for {
		select {
		case <-ctx.Done():
			slogctx.Info(ctx, "Interrupted, suspending the game")
			g.suspend(context.WithoutCancel(ctx))
			return nil
		case fn := <-loop.Ready():
			fn()
			g.show()
			g.prompt()
		case line, ok := <-lines:
			if !ok {
				g.suspend(ctx)
				return nil
			}
			if quit := g.handle(ctx, line); quit {
				g.suspend(ctx)
				return nil
			}
			g.prompt()
		}
	}
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// game prints the manager's events and executes parsed commands.
type game struct {
	manager  *session.Manager
	defaults *config.Game
	out      io.Writer
}

func newGame(manager *session.Manager, defaults *config.Game, out io.Writer) *game {
	g := &game{
		manager:  manager,
		defaults: defaults,
		out:      out,
	}

	events := manager.Events()
	events.Match.Add(func(p session.Pair) {
		g.printf("match: %d and %d\n", p.First, p.Second)
	})
	events.Mismatch.Add(func(p session.Pair) {
		g.printf("no match: %d and %d\n", p.First, p.Second)
	})
	events.GameOver.Add(func(score int) {
		g.printf("game over, final score %d\n", score)
	})

	return g
}

// handle runs one input line and reports whether the player quit.
func (g *game) handle(ctx context.Context, line string) bool {
	cmd, err := terminal.Parse(line)
	if err != nil {
		if !errors.Is(err, terminal.ErrEmptyCommand) {
			g.printf("%v (type help for commands)\n", err)
		}
		return false
	}

	switch cmd.Verb {
	case terminal.VerbFlip:
		g.flip(ctx, cmd.Args)
	case terminal.VerbNew:
		g.newGame(ctx, cmd.Args)
	case terminal.VerbSave:
		if err := g.manager.SaveGame(ctx); err != nil {
			g.fail(ctx, "save", err)
			return false
		}
		g.printf("saved\n")
	case terminal.VerbLoad:
		if err := g.manager.LoadGame(ctx); err != nil {
			g.fail(ctx, "load", err)
			return false
		}
		g.show()
	case terminal.VerbReset:
		if err := g.manager.ResetSession(ctx); err != nil {
			g.fail(ctx, "reset", err)
			return false
		}
		g.show()
	case terminal.VerbShow:
		g.show()
	case terminal.VerbHelp:
		g.printf("%s\n", terminal.Help)
	case terminal.VerbQuit:
		return true
	}

	return false
}

func (g *game) flip(ctx context.Context, args []int) {
	index := args[0]
	if len(args) == 2 {
		v := g.manager.Snapshot()
		row, col := args[0], args[1]
		if row >= v.Rows || col >= v.Columns {
			g.printf("position %d,%d is off the board\n", row, col)
			return
		}
		index = row*v.Columns + col
	}

	g.manager.SelectCard(ctx, index)
	g.show()
}

func (g *game) newGame(ctx context.Context, args []int) {
	rows, columns, symbols := g.defaults.Rows, g.defaults.Columns, g.defaults.SymbolCount
	switch len(args) {
	case 2:
		rows, columns = args[0], args[1]
		symbols = rows * columns / 2
	case 3:
		rows, columns, symbols = args[0], args[1], args[2]
	}

	if err := g.manager.StartNewGame(ctx, rows, columns, symbols); err != nil {
		g.fail(ctx, "new", err)
		return
	}
	g.show()
}

func (g *game) suspend(ctx context.Context) {
	if err := g.manager.Suspend(ctx); err != nil {
		slogctx.Error(ctx, "Failed to save the game on exit", "error", err)
		g.printf("could not save the game: %v\n", err)
	}
}

func (g *game) fail(ctx context.Context, verb string, err error) {
	switch {
	case errors.Is(err, serviceerr.ErrNotFound):
		g.printf("%s: no saved game\n", verb)
	case errors.Is(err, serviceerr.ErrCorruptSave):
		g.printf("%s: the saved game is corrupt\n", verb)
	case errors.Is(err, serviceerr.ErrNoSession):
		g.printf("%s: no game in progress\n", verb)
	case errors.Is(err, serviceerr.ErrInvalidConfig):
		g.printf("%s: %v\n", verb, err)
	default:
		slogctx.Error(ctx, "Command failed", "command", verb, "error", err)
		g.printf("%s failed: %v\n", verb, err)
	}
}

func (g *game) show() {
	if err := terminal.Render(g.out, g.manager.Snapshot()); err != nil {
		slogctx.Warn(context.Background(), "Failed to print the board", "error", err)
	}
}

func (g *game) prompt() {
	g.printf(prompt)
}

func (g *game) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(g.out, format, args...)
}
