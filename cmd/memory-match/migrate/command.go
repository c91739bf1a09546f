package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/memory-match/internal/business"
	"github.com/openkcm/memory-match/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Memory Match migrations",
		"Applies the database migrations of the postgres save backend.",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
