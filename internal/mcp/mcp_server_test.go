package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/iocache"
	mcp_internal "github.com/huangsam/repostats/internal/mcp"
	"github.com/huangsam/repostats/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	store, err := iocache.NewFileStore(t.TempDir())
	require.NoError(t, err)

	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	commented := created.Add(48 * time.Hour)
	snap := schema.NewSnapshot(contract.DefaultHost, "octo/widgets")
	snap.Tickets[1] = schema.Ticket{
		ID: 1, Kind: schema.IssueKind, State: schema.OpenState, Author: "alice",
		CreatedAt: created, UpdatedAt: &commented,
		Comments: []schema.Comment{
			{Author: "bob", Body: "Reproduced with the nightly build as well", CreatedAt: commented},
		},
		ReviewComments: []schema.Comment{},
	}
	snap.Tickets[2] = schema.Ticket{
		ID: 2, Kind: schema.PullRequestKind, State: schema.MergedState, Author: "bob",
		CreatedAt: created, ClosedAt: &commented, MergedAt: &commented, UpdatedAt: &commented,
		Comments: []schema.Comment{}, ReviewComments: []schema.Comment{},
	}
	_, err = iocache.NewSnapshotStore(store, schema.JSONBackend).Save(snap)
	require.NoError(t, err)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetSnapshotStore").Return(store)

	baseCfg := &contract.Config{
		Host:            contract.DefaultHost,
		CacheBackend:    schema.JSONBackend,
		MinContribution: 1,
		BotPatterns:     contract.DefaultBotPatterns,
		SpamPatterns:    contract.DefaultSpamPatterns,
		SpamThreshold:   contract.DefaultSpamThreshold,
	}
	return mcp_internal.NewMCPServer(baseCfg, mgr)
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	t.Run("get_users_summary missing repo", func(t *testing.T) {
		res := callTool(t, s, "get_users_summary", map[string]any{})
		assert.True(t, res.IsError, "The response should indicate an error state")
		assert.Contains(t, resultText(res), "no repository specified")
	})

	t.Run("get_users_summary invalid repo", func(t *testing.T) {
		res := callTool(t, s, "get_users_summary", map[string]any{"repo": "widgets"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "expected <owner>/<name>")
	})

	t.Run("get_comment_timeline invalid freq", func(t *testing.T) {
		res := callTool(t, s, "get_comment_timeline", map[string]any{"repo": "octo/widgets", "freq": "hourly"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "invalid freq")
	})

	t.Run("get_comment_timeline invalid type", func(t *testing.T) {
		res := callTool(t, s, "get_comment_timeline", map[string]any{"repo": "octo/widgets", "freq": "M", "type": "discussion"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "invalid user-comments value")
	})
}

func TestMCPServerHandlers_Reports(t *testing.T) {
	s := newTestServer(t)

	t.Run("get_users_summary", func(t *testing.T) {
		res := callTool(t, s, "get_users_summary", map[string]any{"repo": "octo/widgets", "columns": "commented issues"})
		require.False(t, res.IsError, resultText(res))

		var table schema.SummaryTable
		require.NoError(t, json.Unmarshal([]byte(resultText(res)), &table))
		assert.Equal(t, []schema.SummaryColumn{schema.CommentedIssuesColumn}, table.Columns)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "bob", table.Rows[0].User)
	})

	t.Run("get_users_summary window", func(t *testing.T) {
		res := callTool(t, s, "get_users_summary", map[string]any{"repo": "octo/widgets", "start": "2025-01-01", "min_contribution": 0.0})
		require.False(t, res.IsError, resultText(res))

		var table schema.SummaryTable
		require.NoError(t, json.Unmarshal([]byte(resultText(res)), &table))
		require.Len(t, table.Rows, 2)
		assert.Zero(t, table.Rows[0].AllOpened)
	})

	t.Run("get_comment_timeline", func(t *testing.T) {
		res := callTool(t, s, "get_comment_timeline", map[string]any{"repo": "octo/widgets", "freq": "w", "type": "issue"})
		require.False(t, res.IsError, resultText(res))

		var m schema.TimelineMatrix
		require.NoError(t, json.Unmarshal([]byte(resultText(res)), &m))
		assert.Equal(t, schema.WeeklyFreq, m.Freq)
		assert.Equal(t, []string{"2024-W05"}, m.Buckets)
		assert.Equal(t, []string{"bob"}, m.Users)
		assert.Equal(t, [][]int{{1}}, m.Counts)
	})

	t.Run("get_repo_info", func(t *testing.T) {
		res := callTool(t, s, "get_repo_info", map[string]any{"repo": "octo/widgets"})
		require.False(t, res.IsError, resultText(res))

		var overview schema.RepoOverview
		require.NoError(t, json.Unmarshal([]byte(resultText(res)), &overview))
		assert.Equal(t, 2, overview.Tickets)
		assert.Equal(t, 1, overview.Merged)
		assert.Equal(t, schema.ToolVersion, overview.Version)
	})

	t.Run("get_repo_info unknown repo", func(t *testing.T) {
		res := callTool(t, s, "get_repo_info", map[string]any{"repo": "octo/unknown"})
		require.False(t, res.IsError)
		assert.Contains(t, resultText(res), `"tickets": 0`)
	})
}
