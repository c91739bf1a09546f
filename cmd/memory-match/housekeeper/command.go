package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/memory-match/internal/business"
	"github.com/openkcm/memory-match/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Memory Match Housekeeping job",
		"Memory Match Housekeeping job deletes saved games older than the retention window.",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
