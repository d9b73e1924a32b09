package cmd

import (
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Grimoire MCP server",
	Long: `Launch an MCP server on stdio that lets AI agents query metrics via standard tools.

Tools: get_aggregate, get_timeseries, get_top, get_onion, get_backlog.
Families and databases come from the usual flags, env vars and config file.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
