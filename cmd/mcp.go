package cmd

import (
	"errors"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Repostats MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents read the users summary,
the comment timelines and the repository info of cached snapshots.

The tools never reach GitHub, run fetch first to fill the cache.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Every tool call names its repository, so none is needed up front.
		err := sharedSetup(rootCtx, cmd, args)
		if errors.Is(err, contract.ErrNoRepository) {
			return iocache.InitStores(iocache.StoreOptionsFromConfig(cfg))
		}
		return err
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, iocache.Manager)
	},
}
