package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/polyrag/internal/adapters/driving/mcp"
)

var mcpListen string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve polyrag to MCP clients",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run a Model Context Protocol server backed by the configured policies.

Without --listen the server talks JSON-RPC on stdin/stdout, which is what
desktop assistants spawn. With --listen it serves the streamable HTTP
transport on that address until interrupted.

Tools:     search, history_list, history_get, providers_reconnect
Resources: polyrag://policies, polyrag://config/defaults, polyrag://history/{id}

Examples:
  polyrag mcp serve
  polyrag mcp serve --listen 127.0.0.1:8765

Assistant entry:
  {"mcpServers": {"polyrag": {"command": "polyrag", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVarP(&mcpListen, "listen", "l", "", "serve HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:  svc.Search,
		History: svc.History,
		Config:  svc.Config,
		Gateway: svc.Gateway,
	}, mcp.Options{Version: version})
	if err != nil {
		return err
	}

	if mcpListen == "" {
		return server.Serve(cmd.Context())
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP endpoint: http://%s\n", mcpListen)
	return server.ServeHTTP(cmd.Context(), mcpListen)
}
