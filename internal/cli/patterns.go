package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"CompanionGuard/internal/app"
	"CompanionGuard/pkg/config"
	"CompanionGuard/pkg/crisis"
	"CompanionGuard/pkg/storage"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect, validate and publish screening pattern tables",
}

var patternsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a pattern table file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := readTable(args[0])
		if err != nil {
			return err
		}
		counts := table.Count()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: version %s, %d immediate, %d elevated, %d distressed\n",
			args[0], table.Version,
			counts[crisis.SeverityImmediate], counts[crisis.SeverityElevated], counts[crisis.SeverityDistressed])
		return nil
	},
}

var patternsDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in pattern table as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(crisis.DefaultPatternTable())
	},
}

var patternsPublishCmd = &cobra.Command{
	Use:   "publish <file>",
	Short: "Publish a pattern table to the configured store",
	Long: `Validate a pattern table and write it where the service loads it from:
CRISIS_PATTERNS_FILE, or the MinIO object named by CRISIS_PATTERNS_BUCKET and
CRISIS_PATTERNS_OBJECT.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := readTable(args[0])
		if err != nil {
			return err
		}
		if err := config.Load(); err != nil {
			return err
		}
		store, key, err := app.PatternSource(config.GlobalConfig.Patterns)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("no pattern store configured")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := storage.PublishPatternTable(ctx, store, key, table); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %s (%d entries) to %s\n", table.Version, len(table.Entries), key)
		return nil
	},
}

func init() {
	patternsCmd.AddCommand(patternsValidateCmd, patternsDefaultCmd, patternsPublishCmd)
}

func readTable(path string) (crisis.PatternTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return crisis.PatternTable{}, err
	}
	return crisis.ParsePatternTable(data)
}
