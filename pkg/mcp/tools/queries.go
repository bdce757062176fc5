package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/registry"
	"github.com/askdb-io/askdb-engine/pkg/services"
)

// RegisterRunSQLTool adds the validated SQL execution tool.
func RegisterRunSQLTool(s *server.MCPServer, svc services.QueryService, reg registry.Service, logger *zap.Logger) {
	tool := mcp.NewTool(
		"run_sql",
		mcp.WithDescription(
			"Execute a read-only SELECT statement against the registered datasources. "+
				"Statements are validated: only SELECT/WITH, only allow-listed tables, "+
				"and a row limit is enforced. SQL injection attempts are rejected.",
		),
		mcp.WithString(
			"sql",
			mcp.Required(),
			mcp.Description("A single SELECT statement; table aliases come from list_datasources"),
		),
		mcp.WithArray(
			"datasource_ids",
			mcp.Description("Datasource IDs the query may touch; defaults to all enabled datasources"),
		),
		mcp.WithString(
			"question",
			mcp.Description("Optional original question, used for chart inference and the narrative"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlText, err := req.RequireString("sql")
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

		result, err := svc.RunSQL(ctx, mcpTenant, sqlText, ids, optionalString(req, "question"))
		if err != nil {
			logger.Warn("MCP run_sql rejected", zap.Error(err))
			return errorResult(err), nil
		}
		return jsonResult(result)
	})
}
