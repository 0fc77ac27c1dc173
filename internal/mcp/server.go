// Package mcp exposes the assistant over the Model Context Protocol: an ask
// tool running the full pipeline and a long-term memory search tool.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mwrobel/domo/internal/memory"
	"github.com/mwrobel/domo/internal/orchestrator"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Chat is the slice of the orchestrator the MCP layer needs.
type Chat interface {
	Handle(ctx context.Context, sessionID, command string) orchestrator.Reply
}

// Memories searches the long-term memory store.
type Memories interface {
	Search(ctx context.Context, query string, limit int) ([]memory.Result, error)
}

// Server wraps an MCP server that exposes the assistant's tools.
type Server struct {
	chat     Chat
	memories Memories
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies. memories
// may be nil; search_memory then reports that memory is disabled.
func NewServer(chat Chat, memories Memories) *Server {
	s := &Server{
		chat:     chat,
		memories: memories,
	}

	s.mcp = server.NewMCPServer(
		"domo",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(searchMemoryTool, s.handleSearchMemory)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
