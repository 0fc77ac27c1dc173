package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask MCP tool.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Send a Polish-language command or question to the assistant. Handles expense tracking, weather and free conversation; may answer with a clarifying question that expects a follow-up ask call with the same session_id."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The user's command or question, in Polish"),
	),
	mcp.WithString("session_id",
		mcp.Description("Conversation session identifier; reuse it across calls to keep context. A new one is generated when omitted."),
	),
)

// searchMemoryTool defines the search_memory MCP tool.
var searchMemoryTool = mcp.NewTool("search_memory",
	mcp.WithDescription("Search the assistant's long-term memory semantically. Returns remembered facts ranked by relevance and importance."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of memories to return (default 5)"),
	),
)
