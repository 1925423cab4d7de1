package cmd

import (
	"runtime"

	"github.com/huangsam/repostats/schema"
	"github.com/spf13/cobra"
)

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of repostats.",
	Long: `Display version information including build details.

Shows:
- Release version
- Snapshot format version
- Git commit hash
- Build timestamp
- Go runtime version`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("repostats CLI\n")
		cmd.Printf("  Version:  %s\n", version)
		cmd.Printf("  Snapshot: %s\n", schema.ToolVersion)
		cmd.Printf("  Commit:   %s\n", commit)
		cmd.Printf("  Built:    %s\n", date)
		cmd.Printf("  Runtime:  %s\n", runtime.Version())
	},
}
