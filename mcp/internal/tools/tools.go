// Package tools registers the MCP tool surface (add_memory,
// search_memories, get_memory, invalidate_memory) against an
// mcp-go server, delegating each call to the hiveminddb HTTP API.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nodenestor/hiveminddb-mcp/internal/client"
)

// Register adds every hiveminddb tool to s, dispatching against c.
func Register(s *server.MCPServer, c *client.Client) {
	s.AddTool(addMemoryTool(), addMemoryHandler(c))
	s.AddTool(searchMemoriesTool(), searchMemoriesHandler(c))
	s.AddTool(getMemoryTool(), getMemoryHandler(c))
	s.AddTool(invalidateMemoryTool(), invalidateMemoryHandler(c))
}

func addMemoryTool() mcp.Tool {
	return mcp.NewTool("add_memory",
		mcp.WithDescription("Store a new memory for the agent fleet. Use this whenever you learn a fact, decision, or preference worth recalling in a future session."),
		mcp.WithString("content", mcp.Required(), mcp.Description("The memory text to store")),
		mcp.WithString("kind", mcp.Description("Memory kind: fact, episodic, procedural, or semantic. Defaults to fact.")),
		mcp.WithString("agent_id", mcp.Description("Agent the memory belongs to, if different from the caller")),
		mcp.WithString("user_id", mcp.Description("User the memory is about, if applicable")),
		mcp.WithNumber("confidence", mcp.Description("Confidence in this memory, 0.0-1.0")),
		mcp.WithString("source", mcp.Description("Where this memory came from, e.g. a conversation or tool result")),
	)
}

func addMemoryHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		addReq := client.AddMemoryRequest{
			Content:    content,
			Kind:       req.GetString("kind", ""),
			Source:     req.GetString("source", ""),
			Confidence: req.GetFloat("confidence", 0),
		}
		if agentID := req.GetString("agent_id", ""); agentID != "" {
			addReq.AgentID = &agentID
		}
		if userID := req.GetString("user_id", ""); userID != "" {
			addReq.UserID = &userID
		}

		m, err := c.AddMemory(ctx, addReq)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(m)
	}
}

func searchMemoriesTool() mcp.Tool {
	return mcp.NewTool("search_memories",
		mcp.WithDescription("Search stored memories by keyword and relevance. Call this before answering questions about prior decisions, facts, or preferences."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query")),
		mcp.WithString("agent_id", mcp.Description("Restrict results to memories belonging to this agent")),
		mcp.WithString("user_id", mcp.Description("Restrict results to memories about this user")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results, defaults to 10")),
	)
}

func searchMemoriesHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		searchReq := client.SearchRequest{
			Query: query,
			Limit: int(req.GetFloat("limit", 10)),
		}
		if agentID := req.GetString("agent_id", ""); agentID != "" {
			searchReq.AgentID = &agentID
		}
		if userID := req.GetString("user_id", ""); userID != "" {
			searchReq.UserID = &userID
		}

		results, err := c.Search(ctx, searchReq)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(results)
	}
}

func getMemoryTool() mcp.Tool {
	return mcp.NewTool("get_memory",
		mcp.WithDescription("Fetch a single memory by id, including its current validity window."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memory id")),
	)
}

func getMemoryHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		m, err := c.GetMemory(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(m)
	}
}

func invalidateMemoryTool() mcp.Tool {
	return mcp.NewTool("invalidate_memory",
		mcp.WithDescription("Mark a memory as no longer valid. Use this when a fact has been superseded or was wrong, rather than deleting history."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memory id to invalidate")),
	)
}

func invalidateMemoryHandler(c *client.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := c.InvalidateMemory(ctx, id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("memory %s invalidated", id)), nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
