package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/go-drift/reactbind/cmd/reactbind/internal/scenario"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "reactbind %s (built %s)\n", Version, BuildTime)
		fmt.Fprintf(out, "scenario format %s\n", scenario.CurrentVersion)
		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Fprintf(out, "%s\n", dimStyle.Render(info.GoVersion))
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
