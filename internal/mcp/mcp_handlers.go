package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/repostats/core"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// reportConfig clones the base config and applies the repository, window and
// minimum contribution arguments shared by the report tools.
func (h *toolHandler) reportConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	if repo := request.GetString("repo", ""); repo != "" {
		if err := contract.RevalidateRepo(cfg, repo); err != nil {
			return nil, err
		}
	}
	if cfg.Repo == "" {
		return nil, contract.ErrNoRepository
	}
	start := request.GetString("start", "")
	end := request.GetString("end", "")
	if start != "" || end != "" {
		if err := contract.RevalidateWindow(cfg, start, end); err != nil {
			return nil, err
		}
	}
	if m := request.GetInt("min_contribution", -1); m >= 0 {
		cfg.MinContribution = m
	}
	return cfg, nil
}

func (h *toolHandler) handleGetUsersSummary(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if columns := request.GetString("columns", ""); columns != "" {
		if err := contract.RevalidateReportSelection(cfg, strings.Split(columns, ","), nil); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
		}
	}

	snap, err := core.LoadPreprocessed(cfg, cfg.Host, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading snapshot failed: %v", err)), nil
	}
	_, shown, err := core.UsersSummaryReport(snap, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("users summary failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(shown, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetCommentTimeline(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	freq := strings.ToUpper(request.GetString("freq", ""))
	if _, ok := schema.ValidFrequencies[schema.Frequency(freq)]; !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid freq %q, must be one of D, W, M, Y", freq)), nil
	}
	selection := []string{freq, request.GetString("type", string(schema.AllTypes))}
	if err := contract.RevalidateReportSelection(cfg, nil, selection); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	snap, err := core.LoadPreprocessed(cfg, cfg.Host, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading snapshot failed: %v", err)), nil
	}
	reports, err := core.CommentTimelineReports(snap, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comment timeline failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(reports[0].Shown, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetRepoInfo(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.reportConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	overview, err := core.DescribeCached(cfg, cfg.Host, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading snapshot failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(overview, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
