package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set through ldflags by the release build; the zero values identify a
// from-source build.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the extractor build and the schemas it understands",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "gestima-profile %s (%s, %s/%s)\n", Version, GitCommit, runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "built:   %s\n", BuildDate)
		fmt.Fprintf(out, "schemas: AP203, AP214 (ISO 10303-21)\n")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
