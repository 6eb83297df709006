package main

import (
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/praxislabs/vetta/internal/gate"
	"github.com/praxislabs/vetta/internal/logging"
	"github.com/praxislabs/vetta/internal/mcp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Serve the assessment recorder as an MCP server over stdio",
		Long:         "Starts an MCP server on stdin/stdout exposing the recording tools. A connected agent drives the assessment; the evidence gate and verdict engine run on this side.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, dataDir, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			rules := gate.DefaultRules()
			if _, loaded, err := loadConfig(filepath.Dir(dataDir)); err == nil {
				rules = loaded
			}

			srv := mcp.NewServer(rules)
			logger := logging.Component("mcp")
			logger.Info().Msg("starting vetta MCP server over stdio")
			return srv.Run(cmd.Context(), &sdkmcp.StdioTransport{})
		},
	}
}
