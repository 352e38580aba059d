package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/ziadkadry99/docqa/internal/mcp"
	"github.com/ziadkadry99/docqa/internal/progress"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Index the dataset and start an MCP server on stdio",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing ask_documents, search_documents and list_documents tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the protocol; progress and logs go to stderr.
		a, err := buildApp(context.Background(), progress.NewReporter())
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version
		a.logger.Info("docqa MCP server started on stdio", zap.String("corpus", a.summary()))

		return mcpserver.NewServer(a.orchestrator).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
