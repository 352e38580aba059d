package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/pipeline"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Engine is the question-answering core exposed as MCP tools.
type Engine interface {
	Query(ctx context.Context, question string) (*answer.Response, error)
	Search(ctx context.Context, question string, k int) ([]vectordb.SearchResult, error)
	Status() pipeline.Status
}

// Server wraps an MCP server that exposes document question answering.
type Server struct {
	engine Engine
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server backed by engine.
func NewServer(engine Engine) *Server {
	s := &Server{engine: engine}

	s.mcp = server.NewMCPServer(
		"docqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askDocumentsTool, s.handleAskDocuments)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
