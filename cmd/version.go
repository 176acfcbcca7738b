package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spigell/talent-scout/internal/ai"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (default model %s)\n", app, version, ai.DefaultModel)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
