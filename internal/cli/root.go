package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "companionguard",
	Short: "Crisis risk screening and escalation service",
	Long: `companionguard screens companion-chat messages for crisis risk, answers
with tiered crisis resources and escalates repeated high-risk conversations
to a professional as tracked alerts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, classifyCmd, patternsCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
