package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/core"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

// config applies the window, filter and period arguments to a copy of the base config.
func (h *toolHandler) config(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	now := time.Now().UTC()

	if s := request.GetString("end", ""); s != "" {
		end, err := contract.ParseDate(s, now)
		if err != nil {
			return nil, err
		}
		cfg.EndTime = end
		cfg.StartTime = end.AddDate(-contract.DefaultLookbackYears, 0, 0)
	}
	if s := request.GetString("start", ""); s != "" {
		start, err := contract.ParseDate(s, now)
		if err != nil {
			return nil, err
		}
		cfg.StartTime = start
	}
	if cfg.EndTime.IsZero() {
		cfg.EndTime = now
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = cfg.EndTime.AddDate(-contract.DefaultLookbackYears, 0, 0)
	}
	if !cfg.StartTime.Before(cfg.EndTime) {
		return nil, fmt.Errorf("start time (%s) must be before end time (%s)",
			cfg.StartTime.Format(contract.DateTimeFormat), cfg.EndTime.Format(contract.DateTimeFormat))
	}

	if s := request.GetString("filter", ""); s != "" {
		filter, err := schema.ParseFilter(s)
		if err != nil {
			return nil, err
		}
		cfg.Filter = filter
	}
	if s := request.GetString("period", ""); s != "" {
		p := schema.Period(s)
		if _, ok := schema.ValidPeriods[p]; !ok {
			return nil, fmt.Errorf("invalid period '%s'. must be day, week, month, year", s)
		}
		cfg.Period = p
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = min(l, contract.MaxResultLimit)
	}
	return cfg, nil
}

// family returns the family argument, or def when it is absent.
func family(request mcp.CallToolRequest, def schema.DataSource) (schema.DataSource, error) {
	s := request.GetString("family", string(def))
	if s == "" {
		return "", errors.New("family is required")
	}
	return schema.ParseDataSource(s)
}

// respond renders a result as indented JSON, or the error as a tool error.
func respond(what string, result any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", what, err)), nil
	}
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// prepare parses the arguments every handler needs.
func (h *toolHandler) prepare(request mcp.CallToolRequest, def schema.DataSource) (*contract.Config, schema.DataSource, *mcp.CallToolResult) {
	ds, err := family(request, def)
	if err != nil {
		return nil, "", mcp.NewToolResultError(fmt.Sprintf("invalid family: %v", err))
	}
	cfg, err := h.config(request)
	if err != nil {
		return nil, "", mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err))
	}
	return cfg, ds, nil
}

func (h *toolHandler) handleGetAggregate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, ds, bad := h.prepare(request, "")
	if bad != nil {
		return bad, nil
	}
	ids := contract.SplitList(request.GetString("metrics", ""))

	agg, trends, err := core.GetAggregateResults(core.WithSuppressHeader(ctx), cfg, h.mgr, ds, ids)
	return respond("aggregate", map[string]any{"aggregate": agg, "trends": trends}, err)
}

func (h *toolHandler) handleGetTimeseries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, ds, bad := h.prepare(request, "")
	if bad != nil {
		return bad, nil
	}
	ids := contract.SplitList(request.GetString("metrics", ""))

	series, err := core.GetSeriesResults(core.WithSuppressHeader(ctx), cfg, h.mgr, ds, ids)
	return respond("timeseries", series, err)
}

func (h *toolHandler) handleGetTop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, ds, bad := h.prepare(request, "")
	if bad != nil {
		return bad, nil
	}

	lists, err := core.GetTopResults(core.WithSuppressHeader(ctx), cfg, h.mgr, ds, request.GetString("metric", ""))
	return respond("top", lists, err)
}

func (h *toolHandler) handleGetOnion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, ds, bad := h.prepare(request, schema.SCM)
	if bad != nil {
		return bad, nil
	}

	onion, err := core.GetOnionResults(core.WithSuppressHeader(ctx), cfg, h.mgr, ds)
	return respond("onion", onion, err)
}

func (h *toolHandler) handleGetBacklog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, ds, bad := h.prepare(request, schema.ITS)
	if bad != nil {
		return bad, nil
	}

	backlog, err := core.GetBacklogResults(core.WithSuppressHeader(ctx), cfg, h.mgr, ds)
	return respond("backlog", backlog, err)
}
