package play

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/memory-match/internal/business"
	"github.com/openkcm/memory-match/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"play",
		"Play Memory Match in the terminal",
		"Play resumes the saved game, reads commands from stdin and saves the game on quit.",
		buildInfo,
		cmdutils.RunInteractive,
		business.PlayMain,
	)
}
