package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docqa/internal/answer"
	"github.com/ziadkadry99/docqa/internal/vectordb"
)

// handleAskDocuments answers a question from the indexed corpus.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	resp, err := s.engine.Query(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(resp)), nil
}

// handleSearchDocuments returns the nearest passages to a query.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 0)
	if limit < 0 {
		limit = 0
	}

	results, err := s.engine.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

// handleListDocuments reports the corpus.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.engine.Status()

	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", st.State)
	fmt.Fprintf(&b, "Chunks: %d\n\n", st.Chunks)

	fmt.Fprintf(&b, "Indexed documents (%d):\n", len(st.Documents))
	for _, d := range st.Documents {
		fmt.Fprintf(&b, "- %s\n", d)
	}

	if len(st.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped documents (%d):\n", len(st.Skipped))
		for _, d := range st.Skipped {
			fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Reason)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

func formatAnswer(resp *answer.Response) string {
	var b strings.Builder
	b.WriteString(resp.Answer)
	b.WriteString("\n")

	if len(resp.Sources) > 0 {
		b.WriteString("\n## Sources\n")
		for i, src := range resp.Sources {
			fmt.Fprintf(&b, "\n%d. %s (score %.3f)\n> %s\n", i+1, src.Source, src.Score, strings.ReplaceAll(src.Content, "\n", "\n> "))
		}
	}
	if len(resp.DocumentsConsulted) > 0 {
		fmt.Fprintf(&b, "\nDocuments consulted: %s\n", strings.Join(resp.DocumentsConsulted, ", "))
	}
	return b.String()
}
