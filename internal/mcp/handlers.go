package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// handleAsk runs one command through the pipeline and returns the reply.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	sessionID := request.GetString("session_id", "")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply := s.chat.Handle(ctx, sessionID, question)

	var b strings.Builder
	b.WriteString(reply.Text)
	b.WriteString(fmt.Sprintf("\n\n(session_id: %s)", sessionID))
	if reply.Clarifying {
		b.WriteString("\nThe assistant is waiting for a choice; call ask again with the same session_id and the user's answer.")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleSearchMemory performs semantic search over the long-term memory.
func (s *Server) handleSearchMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.memories == nil {
		return mcp.NewToolResultError("long-term memory is not configured"), nil
	}

	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 5)
	if limit <= 0 {
		limit = 5
	}

	results, err := s.memories.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("memory search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching memories found."), nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d matching memories:\n\n", len(results)))
	for i, r := range results {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, r.Entry.Text))
		b.WriteString(fmt.Sprintf("   similarity: %.2f, importance: %.1f, score: %.2f\n", r.Similarity, r.Entry.Importance, r.Score))
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}
