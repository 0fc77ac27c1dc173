package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mwrobel/domo/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the assistant's ask and memory search tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		var srv *mcpserver.Server
		if a.memories != nil {
			srv = mcpserver.NewServer(a.orch, a.memories)
		} else {
			srv = mcpserver.NewServer(a.orch, nil)
		}

		fmt.Fprintf(os.Stderr, "domo MCP server started on stdio (db=%s)\n", cfg.DatabasePath)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
