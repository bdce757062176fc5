package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/registry"
	"github.com/askdb-io/askdb-engine/pkg/services"
)

// RegisterAskTool adds the natural-language query tool.
func RegisterAskTool(s *server.MCPServer, svc services.QueryService, reg registry.Service, logger *zap.Logger) {
	tool := mcp.NewTool(
		"ask",
		mcp.WithDescription(
			"Ask a natural-language question over the registered datasources. "+
				"Returns the generated SQL, rows, a chart encoding, and an analysis narrative. "+
				"Small talk gets a conversational reply instead.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question, e.g. \"按月统计火警趋势\" or \"top 10 units by alarm count\""),
		),
		mcp.WithArray(
			"datasource_ids",
			mcp.Description("Datasource IDs to query; defaults to all enabled datasources"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}

		ids := stringSlice(req, "datasource_ids")
		if len(ids) == 0 {
			ids, err = enabledSourceIDs(ctx, reg)
			if err != nil {
				return errorResult(err), nil
			}
		}

		resp, err := svc.Ask(ctx, mcpTenant, services.AskRequest{
			Question:      question,
			DatasourceIDs: ids,
		})
		if err != nil {
			logger.Warn("MCP ask failed", zap.Error(err))
			return errorResult(err), nil
		}
		return jsonResult(resp)
	})
}

// RegisterDrilldownTool adds the drill-down tool over stored results.
func RegisterDrilldownTool(s *server.MCPServer, svc services.QueryService, logger *zap.Logger) {
	tool := mcp.NewTool(
		"drilldown",
		mcp.WithDescription(
			"Expand one clicked dimension value of a prior result into a detail query. "+
				"Pass the result_id returned by ask or run_sql.",
		),
		mcp.WithString("result_id", mcp.Required(), mcp.Description("ID of the prior result")),
		mcp.WithString("field", mcp.Required(), mcp.Description("The clicked column, e.g. 月份 or unit_name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("The clicked value, e.g. 2026-02")),
		mcp.WithArray("datasource_ids", mcp.Description("Datasource IDs the detail query may touch")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resultID, err := req.RequireString("result_id")
		if err != nil {
			return nil, err
		}
		field, err := req.RequireString("field")
		if err != nil {
			return nil, err
		}
		value, err := req.RequireString("value")
		if err != nil {
			return nil, err
		}

		result, err := svc.Drilldown(ctx, mcpTenant, resultID, field, value, stringSlice(req, "datasource_ids"))
		if err != nil {
			logger.Warn("MCP drilldown failed",
				zap.String("result_id", resultID),
				zap.String("field", field),
				zap.Error(err))
			return errorResult(err), nil
		}
		return jsonResult(result)
	})
}
