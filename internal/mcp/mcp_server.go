// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the repostats MCP server without starting it.
// Every tool reads the cached snapshot and never calls the remote host.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Repostats Server",
		schema.ToolVersion,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_users_summary ---
	s.AddTool(mcp.NewTool("get_users_summary",
		mcp.WithDescription("Summarize opened, merged and commented issues and pull requests per user from the cached snapshot."),
		mcp.WithString("repo", mcp.Description("Repository as <owner>/<name> (defaults to the configured repository).")),
		mcp.WithString("columns", mcp.Description("Comma separated summary columns, the first one sorts (e.g. 'merged PRs,opened issues').")),
		mcp.WithString("start", mcp.Description("Start of the time window (e.g. '2024-01-01', '2024-01', '6 months').")),
		mcp.WithString("end", mcp.Description("End of the time window.")),
		mcp.WithNumber("min_contribution", mcp.Description("Minimum value of the sort column for a user to be listed.")),
	), h.handleGetUsersSummary)

	// --- 2. Tool: get_comment_timeline ---
	s.AddTool(mcp.NewTool("get_comment_timeline",
		mcp.WithDescription("Count comments per user and time bucket from the cached snapshot."),
		mcp.WithString("freq", mcp.Description("Bucket size: D (day), W (ISO week), M (month) or Y (year)."), mcp.Required(), mcp.Enum("D", "W", "M", "Y")),
		mcp.WithString("type", mcp.Description("Restrict to comments on issues or pull requests. Defaults to 'all'."), mcp.Enum("issue", "pr", "all")),
		mcp.WithString("repo", mcp.Description("Repository as <owner>/<name>.")),
		mcp.WithString("start", mcp.Description("Start of the time window.")),
		mcp.WithString("end", mcp.Description("End of the time window.")),
		mcp.WithNumber("min_contribution", mcp.Description("Minimum total comments for a user to be listed.")),
	), h.handleGetCommentTimeline)

	// --- 3. Tool: get_repo_info ---
	s.AddTool(mcp.NewTool("get_repo_info",
		mcp.WithDescription("Describe the cached snapshot of a repository: info, ticket counts and outdated tickets."),
		mcp.WithString("repo", mcp.Description("Repository as <owner>/<name>.")),
	), h.handleGetRepoInfo)

	return s
}

// StartMCPServer starts the repostats MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
