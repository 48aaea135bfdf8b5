package cli

import (
	"fmt"

	"CompanionGuard/pkg/crisis"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "companionguard %s (commit %s, built %s, patterns %s)\n",
			version, commit, date, crisis.DefaultPatternVersion)
	},
}
